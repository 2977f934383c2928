package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/familiar/internal/app"
	"github.com/specialistvlad/familiar/internal/config"
	"github.com/specialistvlad/familiar/internal/engine"
)

// Exit codes.
const (
	ExitUsage = 2
	ExitDrift = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type options struct {
	configPaths []string
	logFormat   string
	logLevel    string
	port        int
}

// Execute runs the command line in args, writing output to outW. Usage
// mistakes come back as *ExitError with ExitUsage; a drift failsafe as
// *ExitError with ExitDrift.
func Execute(ctx context.Context, outW io.Writer, args []string, loader config.Loader) error {
	root := NewRootCmd(outW, loader)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd builds the familiar command tree.
func NewRootCmd(outW io.Writer, loader config.Loader) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "familiar",
		Short: "Cycle-aligned batch scheduler for remote executors",
		Long: "familiar drives a fleet of remote executors in timed batches: every pass it\n" +
			"reads the inventory, classifies targets, funds orders from the free capacity\n" +
			"and dispatches them so their effects land in a fixed order.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.StringSliceVarP(&opts.configPaths, "config", "c", []string{"familiar.hcl"}, "Configuration file or directory of .hcl files. Repeatable.")
	flags.StringVar(&opts.logFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	runCmd := &cobra.Command{
		Use:   "run [CONFIG_PATH...]",
		Short: "Run the scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, outW, opts, args, loader)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := a.Run(ctx); err != nil {
				if errors.Is(err, engine.ErrDrift) {
					return &ExitError{Code: ExitDrift, Message: err.Error()}
				}
				return err
			}
			return nil
		},
	}
	runCmd.Flags().IntVar(&opts.port, "port", 0, "Port for /health, /status and /metrics; overrides server.port. 0 disables the server.")

	planCmd := &cobra.Command{
		Use:   "plan [CONFIG_PATH...]",
		Short: "Run a single pass without issuing anything and print the plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, outW, opts, args, loader)
			if err != nil {
				return err
			}
			_, err = a.Plan(cmd.Context())
			return err
		},
	}

	root.AddCommand(runCmd, planCmd)
	return root
}

// newApp validates the flags and builds the App. Positional arguments
// replace the --config paths.
func newApp(cmd *cobra.Command, outW io.Writer, opts *options, args []string, loader config.Loader) (*app.App, error) {
	paths := opts.configPaths
	if len(args) > 0 {
		paths = args
	}
	cfg := app.Config{
		ConfigPaths: paths,
		LogFormat:   strings.ToLower(opts.logFormat),
		LogLevel:    strings.ToLower(opts.logLevel),
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		port := opts.port
		cfg.Port = &port
	}

	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	a, err := app.NewApp(outW, appConfig, loader)
	if err != nil {
		return nil, fmt.Errorf("startup failed: %w", err)
	}
	return a, nil
}
