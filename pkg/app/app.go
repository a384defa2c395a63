// Package app runs the lemonscript compiler for a project: it prepares the module
// with the engine bindings, compiles the main script and keeps recompiling it in
// watch mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/zurustar/lemonscript/pkg/bindings"
	"github.com/zurustar/lemonscript/pkg/compiler"
	"github.com/zurustar/lemonscript/pkg/config"
	"github.com/zurustar/lemonscript/pkg/opcode"
	"github.com/zurustar/lemonscript/pkg/program"
	"github.com/zurustar/lemonscript/pkg/watcher"
)

// ErrNoScript is returned when neither the project file nor the command line names a script.
var ErrNoScript = errors.New("no script file given")

// Application compiles the project described by a Config.
type Application struct {
	config   *config.Config
	log      *slog.Logger
	bindings *bindings.Manifest
}

// Result is the outcome of one build.
type Result struct {
	Module   *program.Module
	Files    []string
	Errors   []compiler.ErrorMessage
	Duration time.Duration
}

// OK reports whether the build succeeded.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// New creates an Application and reads the bindings manifest named by cfg.
func New(cfg *config.Config, log *slog.Logger) (*Application, error) {
	app := &Application{config: cfg, log: log}
	if cfg.Bindings != "" {
		m, err := bindings.LoadFile(cfg.Bindings)
		if err != nil {
			return nil, fmt.Errorf("failed to load bindings: %w", err)
		}
		app.bindings = m
		log.Debug("bindings loaded", "path", cfg.Bindings, "externals", len(m.Externals), "natives", len(m.Natives))
	}
	return app, nil
}

// Build compiles the main script into a new module. Compile errors are reported in
// the Result; the error return is for failures to set up the build.
func (app *Application) Build() (*Result, error) {
	if app.config.Script == "" {
		return nil, ErrNoScript
	}

	// 1. module with engine bindings
	module := program.NewModule(app.config.ModuleName())
	lookup := program.NewGlobalsLookup()
	if app.bindings != nil {
		if err := app.bindings.Apply(module, lookup); err != nil {
			return nil, fmt.Errorf("failed to apply bindings: %w", err)
		}
	}

	// 2. compile options
	opts, err := app.compileOptions()
	if err != nil {
		return nil, err
	}

	// 3. compile
	c := compiler.New(module, lookup, opts)
	start := time.Now()
	c.LoadScript(app.config.Script)
	result := &Result{
		Module:   module,
		Errors:   c.Errors(),
		Duration: time.Since(start),
	}
	for _, f := range c.ScriptFiles() {
		result.Files = append(result.Files, filepath.FromSlash(f.Path()))
	}

	if !result.OK() {
		return result, nil
	}
	app.log.Info("script compiled",
		"script", app.config.Script,
		"files", len(result.Files),
		"functions", len(module.ScriptFunctions()),
		"duration", result.Duration)
	for _, fn := range module.ScriptFunctions() {
		app.log.Debug("opcodes generated", "function", program.Signature(fn), "opcodes", formatOpCodesPreview(fn.Opcodes, 10))
	}
	return result, nil
}

func (app *Application) compileOptions() (compiler.CompileOptions, error) {
	addr, err := app.config.ExternalAddressType()
	if err != nil {
		return compiler.CompileOptions{}, err
	}
	enc, err := app.config.Encoding()
	if err != nil {
		return compiler.CompileOptions{}, err
	}
	return compiler.CompileOptions{
		OutputCombinedSource:    app.config.Compile.CombinedSource,
		OutputTranslatedSource:  app.config.Compile.TranslatedSource,
		ExternalAddressType:     addr,
		PreprocessorDefinitions: app.config.Compile.Definitions,
		LegacyEncoding:          enc,
		Logger:                  app.log,
	}, nil
}

// Watch builds the script, then rebuilds it whenever one of the files it was compiled
// from changes, until ctx is done. report receives every Result.
func (app *Application) Watch(ctx context.Context, report func(*Result)) error {
	result, err := app.Build()
	if err != nil {
		return err
	}
	report(result)

	rebuild := make(chan struct{}, 1)
	w, err := watcher.New(app.config.Watch.Debounce, app.config.Watch.Exclude, app.log, func(paths []string) {
		app.log.Info("script files changed, rebuilding", "files", paths)
		select {
		case rebuild <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	files := app.watchList(result, nil)
	if err := w.Watch(files); err != nil {
		return fmt.Errorf("failed to watch script files: %w", err)
	}
	app.log.Info("watching script files", "files", len(files))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rebuild:
			result, err := app.Build()
			if err != nil {
				return err
			}
			report(result)
			files = app.watchList(result, files)
			if err := w.Watch(files); err != nil {
				return fmt.Errorf("failed to watch script files: %w", err)
			}
		}
	}
}

// watchList returns the files to observe after a build. A build that failed while
// loading read no files, so the previous list stays in effect.
func (app *Application) watchList(result *Result, previous []string) []string {
	if len(result.Files) > 0 {
		return result.Files
	}
	if len(previous) > 0 {
		return previous
	}
	return []string{app.config.Script}
}

// formatOpCodesPreview renders the first maxCount opcodes for debug logging.
func formatOpCodesPreview(opcodes []opcode.OpCode, maxCount int) string {
	if len(opcodes) == 0 {
		return "[]"
	}

	count := min(len(opcodes), maxCount)
	parts := make([]string, count)
	for i := range count {
		parts[i] = opcodes[i].String()
	}

	result := strings.Join(parts, ", ")
	if len(opcodes) > maxCount {
		result += fmt.Sprintf(", ... (%d more)", len(opcodes)-maxCount)
	}
	return "[" + result + "]"
}
