package cli

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zurustar/lemonscript/pkg/app"
	"github.com/zurustar/lemonscript/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func newBuildCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [script]",
		Short: "Compile a script and report errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := setup(cmd, opts, args)
			if err != nil {
				return err
			}
			result, err := application.Build()
			if err != nil {
				return err
			}
			return report(cmd, result)
		},
	}
	addCompileFlags(cmd, opts)
	return cmd
}

func newDumpCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [script]",
		Short: "Compile a script and print the module as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := setup(cmd, opts, args)
			if err != nil {
				return err
			}
			result, err := application.Build()
			if err != nil {
				return err
			}
			if !result.OK() {
				printDiagnostics(cmd.ErrOrStderr(), result.Errors)
				return ErrCompileFailed
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(result.Module.Summary()); err != nil {
				return fmt.Errorf("failed to write module: %w", err)
			}
			return enc.Close()
		},
	}
	addCompileFlags(cmd, opts)
	return cmd
}

func newWatchCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [script]",
		Short: "Recompile a script whenever one of its files changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := setup(cmd, opts, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return application.Watch(ctx, func(result *app.Result) {
				// diagnostics are already printed, a failed build keeps watching
				if err := report(cmd, result); err != nil {
					logger.GetLogger().Debug("build failed, waiting for changes", "error", err)
				}
			})
		},
	}
	addCompileFlags(cmd, opts)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE:  runVersion,
	}
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "lemonc %s\n", version)
	fmt.Fprintf(out, "Commit: %s\n", commit)
	fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}

// report prints the outcome of a build.
func report(cmd *cobra.Command, result *app.Result) error {
	if !result.OK() {
		printDiagnostics(cmd.ErrOrStderr(), result.Errors)
		return ErrCompileFailed
	}
	printSummary(cmd.OutOrStdout(), result)
	return nil
}
