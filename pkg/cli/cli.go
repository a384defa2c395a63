// Package cli implements the lemonc command line.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zurustar/lemonscript/pkg/app"
	"github.com/zurustar/lemonscript/pkg/config"
	"github.com/zurustar/lemonscript/pkg/logger"
)

// ErrCompileFailed is returned by commands whose script did not compile. The
// diagnostics have been printed already.
var ErrCompileFailed = errors.New("compilation failed")

// options holds the flags shared by the commands.
type options struct {
	configPath string
	logLevel   string
	noColor    bool

	combined    string
	translated  string
	address     string
	encoding    string
	definitions []string
}

// NewRootCommand creates the lemonc command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "lemonc",
		Short: "lemonc - lemonscript compiler",
		Long: `lemonc compiles lemonscript (.lemon) files into the functions, globals,
defines and string literals of a script module.

Settings are read from lemon.toml in the current directory if present. The
environment variable LEMON_LOG_LEVEL and command line flags override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultFile, "project file")
	root.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output (also NO_COLOR=1)")

	root.AddCommand(newBuildCommand(opts))
	root.AddCommand(newDumpCommand(opts))
	root.AddCommand(newWatchCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs lemonc with the process arguments.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil && !errors.Is(err, ErrCompileFailed) {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

func addCompileFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.StringVar(&opts.combined, "combined", "", "write the flattened source to this file")
	f.StringVar(&opts.translated, "translate", "", "write the script as C++ to this file")
	f.StringVar(&opts.address, "address", "", "type of call and jump targets: u32 or u64")
	f.StringVar(&opts.encoding, "encoding", "", "encoding of script files that are not UTF-8")
	f.StringArrayVarP(&opts.definitions, "define", "D", nil, "preprocessor definition NAME[=VALUE]")
}

// setup resolves the configuration of a command and creates the application.
func setup(cmd *cobra.Command, opts *options, args []string) (*app.Application, error) {
	if opts.noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var cfg *config.Config
	var err error
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadOptional(opts.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(cfg, opts, args); err != nil {
		return nil, err
	}

	if err := logger.InitLoggerWithWriter(cmd.ErrOrStderr(), cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	application, err := app.New(cfg, logger.GetLogger())
	if err != nil {
		return nil, err
	}
	return application, nil
}

// applyFlags overrides the configuration with command line values.
func applyFlags(cfg *config.Config, opts *options, args []string) error {
	if len(args) > 0 {
		cfg.Script = args[0]
	}
	if opts.logLevel != "" {
		cfg.Log.Level = strings.ToLower(opts.logLevel)
	}
	if opts.combined != "" {
		cfg.Compile.CombinedSource = opts.combined
	}
	if opts.translated != "" {
		cfg.Compile.TranslatedSource = opts.translated
	}
	if opts.address != "" {
		cfg.Compile.ExternalAddress = opts.address
	}
	if opts.encoding != "" {
		cfg.Compile.LegacyEncoding = opts.encoding
	}
	if len(opts.definitions) > 0 {
		defs, err := parseDefinitions(opts.definitions)
		if err != nil {
			return err
		}
		if cfg.Compile.Definitions == nil {
			cfg.Compile.Definitions = make(map[string]int64)
		}
		for name, value := range defs {
			cfg.Compile.Definitions[name] = value
		}
	}
	return cfg.Validate()
}

// parseDefinitions parses NAME or NAME=VALUE. A bare name is defined as 1; values
// accept the prefixes of strconv.ParseInt base 0, like 0x10.
func parseDefinitions(defs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(defs))
	for _, d := range defs {
		name, value, hasValue := strings.Cut(d, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid definition %q: missing name", d)
		}
		if !hasValue {
			out[name] = 1
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(value), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid definition %q: value must be an integer", d)
		}
		out[name] = v
	}
	return out, nil
}
