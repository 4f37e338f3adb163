package cliapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pyshape/internal/analyzer"
	"pyshape/internal/core/config"
	"pyshape/internal/core/errors"
	"pyshape/internal/core/ports"
	"pyshape/internal/generation"
	"pyshape/internal/shared/observability"
)

// Run executes the CLI and returns the process exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		if errors.IsCode(err, errors.CodeValidationError) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "pyshape",
		Short: "Describe the structure of Python classes",
		Long: `pyshape reads Python sources and reports, per class, its methods,
properties, fields and class variables as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default ./"+config.DefaultFile+" when present)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newDescribeCmd(opts),
		newListCmd(opts),
		newWatchCmd(opts),
		newPromptCmd(opts),
		newApplyCmd(opts),
		newVersionCmd(),
	)
	return root
}

func withRuntime(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())
	return fn(ctx, rt)
}

func applyInclusionFlag(cfg *config.Config, inclusion string) error {
	if inclusion == "" {
		return nil
	}
	mode := analyzer.InclusionMode(strings.ToLower(strings.TrimSpace(inclusion)))
	if !mode.Valid() {
		return errors.Newf(errors.CodeValidationError, "--inclusion must be %s or %s", analyzer.InclusionJoint, analyzer.InclusionEither)
	}
	cfg.Analyzer.Inclusion = string(mode)
	return nil
}

func newDescribeCmd(opts *globalOptions) *cobra.Command {
	var output, inclusion string
	cmd := &cobra.Command{
		Use:   "describe [class...]",
		Short: "Describe classes as JSON",
		Long: `Describe prints one descriptor per named class. Names are module
qualified (pkg.mod.Class) or a class name that is unique across the sources.
Without names the configured class list is used, and without that every class.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				if err := applyInclusionFlag(rt.cfg, inclusion); err != nil {
					return err
				}
				if output != "" {
					rt.cfg.Output.Path = output
				}
				if err := rt.scan(ctx); err != nil {
					return err
				}
				res, err := rt.app.Describe(ctx, ports.DescribeRequest{Classes: args, Write: rt.cfg.Output.Path != ""})
				if err != nil {
					return err
				}
				if !res.Written {
					fmt.Fprintln(cmd.OutOrStdout(), res.JSON)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the JSON document to this file instead of stdout")
	cmd.Flags().StringVar(&inclusion, "inclusion", "", "method inclusion rule: joint or either")
	return cmd
}

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the classes found in the sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				if err := rt.scan(ctx); err != nil {
					return err
				}
				rows, err := rt.app.ListClasses(ctx)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderClassList(rows))
				return nil
			})
		},
	}
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "watch [class...]",
		Short: "Rewrite the description whenever sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				if output != "" {
					rt.cfg.Output.Path = output
				}
				if rt.cfg.Output.Path == "" {
					return errors.New(errors.CodeValidationError, "watch needs an output path (--output or [output] path)")
				}
				if err := rt.scan(ctx); err != nil {
					return err
				}
				req := ports.DescribeRequest{Classes: args, Write: true}
				if _, err := rt.app.Describe(ctx, req); err != nil {
					return err
				}

				if addr := rt.cfg.Watch.MetricsAddress; addr != "" {
					srv := observability.NewServer(addr, func(context.Context) (map[string]any, error) {
						return map[string]any{"classes": len(rt.app.Registry().Names())}, nil
					})
					if err := srv.Start(ctx); err != nil {
						return err
					}
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer cancel()
						_ = srv.Stop(shutdownCtx)
					}()
				}

				if rt.configPath != "" {
					cw := config.NewWatcher(rt.configPath, func(cfg *config.Config) {
						if output != "" {
							cfg.Output.Path = output
						}
						rt.app.ApplyConfig(cfg)
					})
					if err := cw.Start(ctx); err != nil {
						return err
					}
					defer cw.Stop()
				}

				err := rt.app.StartWatcher(ctx, req, func(res ports.DescribeResult, err error) {
					if err != nil {
						rt.logger.Error("refresh failed", "error", err)
						return
					}
					rt.logger.Info("description refreshed", "classes", res.Classes, "path", res.Path)
				})
				if err != nil {
					return err
				}
				rt.logger.Info("watching sources", "roots", rt.cfg.SourceRoots, "output", rt.cfg.Output.Path)
				<-ctx.Done()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file rewritten on every change")
	return cmd
}

func newPromptCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "prompt <prompt.toml>",
		Short: "Render a generation prompt from a TOML prompt file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := generation.LoadPromptData(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				scanned := false
				describe := func(names []string) (string, error) {
					if !scanned {
						if err := rt.scan(ctx); err != nil {
							return "", err
						}
						scanned = true
					}
					res, err := rt.app.Describe(ctx, ports.DescribeRequest{Classes: names})
					if err != nil {
						return "", err
					}
					return res.JSON, nil
				}
				text, err := generation.RenderPrompt(data, describe)
				if err != nil {
					return err
				}
				if output == "" {
					fmt.Fprint(cmd.OutOrStdout(), text)
					return nil
				}
				return writeText(output, text)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the prompt to this file instead of stdout")
	return cmd
}

func newApplyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <result.json> <dir>",
		Short: "Write the files of a generation result into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(cmd.ErrOrStderr(), opts.verbose)
			res, err := generation.LoadResult(args[0])
			if err != nil {
				return err
			}
			written, err := generation.ApplyResult(res, args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderWritten(fmt.Sprintf("%d files written", len(written)), written))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pyshape v%s\n", versionString)
		},
	}
}
