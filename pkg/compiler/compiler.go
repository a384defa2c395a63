// Package compiler provides the compilation pipeline for lemonscript files (.lemon).
// It turns a script and everything it includes into the functions, globals, defines
// and string literals of a program.Module in these phases:
// 1. Loading: include resolution and preprocessing (package source)
// 2. Node building: lines to a block-structured node tree
// 3. Global definitions: function headers, global variables and defines
// 4. Statement classification and control flow assembly, per function
// 5. OpCode generation, per function (package codegen)
//
// A failed LoadScript leaves the Module and GlobalsLookup as they were before the call
// and reports exactly one error, located in the original source file.
package compiler

import (
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/source"
	"github.com/zurustar/lemonscript/pkg/compiler/translator"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/fileutil"
	"github.com/zurustar/lemonscript/pkg/logger"
	"github.com/zurustar/lemonscript/pkg/program"
)

// CompileOptions provides configuration options for compilation.
type CompileOptions struct {
	// OutputCombinedSource is a file path the flattened source lines are written to, if set.
	OutputCombinedSource string

	// OutputTranslatedSource is a file path the compiled script is written to as C++, if set.
	OutputTranslatedSource string

	// ExternalAddressType is the data type of call and jump targets, u32 or u64.
	// Defaults to u32.
	ExternalAddressType *datatype.Type

	// PreprocessorDefinitions are the identifiers known to #if expressions.
	PreprocessorDefinitions map[string]int64

	// LegacyEncoding decodes script files that are not valid UTF-8.
	// Defaults to Windows-1252.
	LegacyEncoding encoding.Encoding

	// Logger receives progress messages. Defaults to logger.GetLogger().
	Logger *slog.Logger
}

// Compiler compiles lemonscript files into a Module.
// A Compiler is not safe for concurrent use.
type Compiler struct {
	module  *program.Module
	lookup  *program.GlobalsLookup
	options CompileOptions
	fs      fileutil.FileSystem
	logger  *slog.Logger

	errors      []ErrorMessage
	scriptFiles []*source.ScriptFile
	translation *source.LineNumberTranslation
	root        *node.Block
}

// New creates a compiler reading script files from the real file system.
//
// Parameters:
//   - module: The module receiving compiled functions, globals, defines and strings
//   - lookup: The symbol table used to resolve names; may already hold bindings
//   - opts: Compilation options
//
// Returns:
//   - *Compiler: A compiler ready for LoadScript
func New(module *program.Module, lookup *program.GlobalsLookup, opts CompileOptions) *Compiler {
	return NewWithFS(module, lookup, opts, fileutil.NewRealFS(""))
}

// NewWithFS creates a compiler reading script files from fsys.
// Tests use it with an in-memory file system.
func NewWithFS(module *program.Module, lookup *program.GlobalsLookup, opts CompileOptions, fsys fileutil.FileSystem) *Compiler {
	if opts.ExternalAddressType == nil {
		opts.ExternalAddressType = datatype.U32
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return &Compiler{
		module:  module,
		lookup:  lookup,
		options: opts,
		fs:      fsys,
		logger:  opts.Logger,
	}
}

// LoadScript loads the script at path with all its includes and compiles it into
// the module.
//
// Parameters:
//   - path: Path of the main script file, "/" or "\" separated
//
// Returns:
//   - bool: true on success; on failure Errors() holds exactly one ErrorMessage
func (c *Compiler) LoadScript(path string) bool {
	c.errors = nil
	c.root = nil
	c.scriptFiles = nil
	c.translation = nil
	c.module.StartCompiling(c.lookup)

	loader := source.NewLoader(c.fs, c.options.PreprocessorDefinitions)
	loader.LegacyEncoding = c.options.LegacyEncoding
	loader.Logger = c.logger

	result, err := loader.Load(path)
	if err != nil {
		c.fail(c.newLoadErrorMessage(path, err))
		return false
	}
	c.scriptFiles = result.Files
	c.translation = result.Translation

	if c.options.OutputCombinedSource != "" {
		c.writeOutput(c.options.OutputCombinedSource, strings.Join(result.Lines, "\r\n")+"\r\n")
	}

	root, err := c.compileLines(result.Lines)
	if err != nil {
		c.fail(c.newCompileErrorMessage(err))
		return false
	}
	c.root = root

	if c.options.OutputTranslatedSource != "" {
		var sb strings.Builder
		if err := translator.TranslateToCpp(&sb, root); err != nil {
			c.logger.Warn("failed to translate script", "error", err)
		} else {
			c.writeOutput(c.options.OutputTranslatedSource, sb.String())
		}
	}

	c.logger.Debug("script compiled",
		"path", path,
		"files", len(c.scriptFiles),
		"lines", len(result.Lines),
		"functions", len(c.module.ScriptFunctions()))
	return true
}

// compileLines builds the node tree and compiles every function in it. All function
// headers are registered before the first body is processed.
func (c *Compiler) compileLines(lines []string) (*node.Block, error) {
	root, err := c.buildNodes(lines)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("node tree built", "nodes", len(root.Nodes))

	functions, err := c.processGlobalDefinitions(root)
	if err != nil {
		return nil, err
	}

	for _, fn := range functions {
		if err := c.processFunctionBody(fn); err != nil {
			return nil, err
		}
		c.logger.Debug("function compiled",
			"function", program.Signature(fn.Function),
			"opcodes", len(fn.Function.Opcodes))
	}
	return root, nil
}

// fail records the error and discards everything the failed run added to the module.
func (c *Compiler) fail(msg ErrorMessage) {
	c.module.Rollback()
	c.errors = append(c.errors, msg)
	c.logger.Warn("script compilation failed",
		"file", msg.Filename,
		"line", msg.LineNumber,
		"error", msg.Message)
}

func (c *Compiler) writeOutput(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		c.logger.Warn("failed to write compiler output", "path", path, "error", err)
	}
}

// Errors returns the errors of the last LoadScript call.
func (c *Compiler) Errors() []ErrorMessage {
	return c.errors
}

// Err returns the first error of the last LoadScript call, or nil.
func (c *Compiler) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	return &c.errors[0]
}

// ScriptFiles returns the files read by the last LoadScript call.
// The watcher uses them to know which files to observe.
func (c *Compiler) ScriptFiles() []*source.ScriptFile {
	return c.scriptFiles
}

// Root returns the node tree of the last successful LoadScript call.
func (c *Compiler) Root() *node.Block {
	return c.root
}
