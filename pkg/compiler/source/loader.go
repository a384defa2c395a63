package source

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/preprocessor"
	"github.com/zurustar/lemonscript/pkg/fileutil"
)

// MaxIncludeDepth is the nesting depth at which loading fails.
// A chain of MaxIncludeDepth-1 files still loads.
const MaxIncludeDepth = 50

const (
	scriptExtension = ".lemon"
	includePrefix   = "include "
	includeWildcard = "?"
)

// FileError is an error located in a specific source file.
// Line is 1-based within that file, 0 if the error has no line.
type FileError struct {
	Filename string
	Line     int
	Err      *diag.Error
}

func (e *FileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Err.Message)
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Err.Message)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a successful load.
type Result struct {
	Lines       []string
	Translation *LineNumberTranslation
	Files       []*ScriptFile
}

// Loader reads a script and everything it includes into one flat line sequence.
type Loader struct {
	FS          fileutil.FileSystem
	Definitions map[string]int64
	// LegacyEncoding decodes files that are not valid UTF-8. Defaults to Windows-1252.
	LegacyEncoding encoding.Encoding
	Logger         *slog.Logger
}

// NewLoader creates a loader reading from fsys.
func NewLoader(fsys fileutil.FileSystem, definitions map[string]int64) *Loader {
	return &Loader{
		FS:          fsys,
		Definitions: definitions,
		Logger:      slog.Default(),
	}
}

type loadState struct {
	result       *Result
	preprocessor *preprocessor.Preprocessor
}

// Load reads the script at path and resolves all includes.
func (l *Loader) Load(path string) (*Result, error) {
	path = strings.ReplaceAll(path, "\\", "/")
	basePath, filename := splitPath(path)

	st := &loadState{
		result:       &Result{Translation: &LineNumberTranslation{}},
		preprocessor: preprocessor.NewPreprocessor(l.Definitions),
	}
	if err := l.loadFile(st, basePath, filename, 0); err != nil {
		return nil, err
	}

	l.logger().Debug("script loaded",
		"path", path,
		"files", len(st.result.Files),
		"lines", len(st.result.Lines))
	return st.result, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *Loader) loadFile(st *loadState, basePath, filename string, depth int) error {
	depth++
	if depth >= MaxIncludeDepth {
		return diag.New(diag.CodeRecursionLimit, 0,
			"Unusually high recursion depth in lemon script includes while loading script file '%s' at '%s' (possibly some kind of cycle in the includes)",
			filename, basePath)
	}

	out := st.result
	file := &ScriptFile{
		BasePath:  basePath,
		Filename:  filename,
		FirstLine: len(out.Lines) + 1,
	}

	data, err := l.FS.ReadFile(file.Path())
	if err != nil {
		l.logger().Debug("failed to read script file", "path", file.Path(), "error", err)
		return diag.New(diag.CodeFileNotFound, 0, "Failed to load script file '%s' at '%s'", filename, basePath)
	}
	file.Content, err = decodeContent(data, l.LegacyEncoding)
	if err != nil {
		return diag.New(diag.CodeFileNotFound, 0, "Failed to load script file '%s' at '%s': %v", filename, basePath, err)
	}
	file.Lines = splitLines(file.Content)
	out.Files = append(out.Files, file)

	l.logger().Debug("loading script file", "path", file.Path(), "depth", depth)
	out.Translation.Push(len(out.Lines)+1, file.Path(), 0)

	lines := append([]string(nil), file.Lines...)
	if err := st.preprocessor.ProcessLines(lines); err != nil {
		return fileError(file.Path(), err)
	}

	for index, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, includePrefix) {
			out.Lines = append(out.Lines, line)
			continue
		}

		includeDir, includeName := parseInclude(trimmed)
		if includeName == "" {
			return &FileError{
				Filename: file.Path(),
				Line:     index + 1,
				Err:      diag.New(diag.CodeFileNotFound, 0, "Missing file name after 'include'"),
			}
		}

		dir := basePath + includeDir
		if includeName == includeWildcard {
			names, err := l.FS.ListFiles(strings.TrimSuffix(dir, "/"), "*"+scriptExtension)
			if err != nil {
				return &FileError{
					Filename: file.Path(),
					Line:     index + 1,
					Err:      diag.New(diag.CodeFileNotFound, 0, "Failed to list script files at '%s'", dir),
				}
			}
			for _, name := range names {
				if err := l.loadFile(st, dir, name, depth); err != nil {
					return includeError(file.Path(), index+1, err)
				}
			}
		} else {
			if !strings.HasSuffix(strings.ToLower(includeName), scriptExtension) {
				includeName += scriptExtension
			}
			if err := l.loadFile(st, dir, includeName, depth); err != nil {
				return includeError(file.Path(), index+1, err)
			}
		}

		// back to this file, continuing after the include line
		out.Translation.Push(len(out.Lines)+1, file.Path(), index+1)
	}
	return nil
}

// parseInclude splits the target of an include line into directory (with trailing "/") and file name.
func parseInclude(line string) (string, string) {
	name := strings.TrimSpace(line[len(includePrefix):])
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, "\\", "/")
	return splitPath(name)
}

func splitPath(path string) (string, string) {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i+1], path[i+1:]
	}
	return "", path
}

// includeError attributes a failure without location to the include line that caused it.
func includeError(filename string, line int, err error) error {
	if de, ok := err.(*diag.Error); ok {
		return &FileError{Filename: filename, Line: line, Err: de}
	}
	return err
}

func fileError(filename string, err error) error {
	if de, ok := err.(*diag.Error); ok {
		return &FileError{Filename: filename, Line: de.Line, Err: de}
	}
	return fmt.Errorf("%s: %w", filename, err)
}
