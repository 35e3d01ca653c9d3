package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/fabrica/internal/app"
	"github.com/vk/fabrica/internal/config"
	"github.com/vk/fabrica/internal/hcl"
)

// Exit codes returned through ExitError.
const (
	ExitFailure = 1
	ExitUsage   = 2
	ExitStrict  = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

// globalFlags are the persistent flags shared by every command. A flag only
// overrides the configuration file when it was set explicitly.
type globalFlags struct {
	loader     config.Loader
	configFile string
	core       string
	configs    string
	modules    string
	logLevel   string
	logFormat  string
	server     bool
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config-file", "", "Path to the host configuration file (HCL).")
	pf.StringVar(&f.core, "core", ".", "Base path of the built-in module.")
	pf.StringVar(&f.configs, "configs", "config", "Directory holding one <module>.hcl file per module.")
	pf.StringVar(&f.modules, "modules", "modules", "Directory scanned for module libraries.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.BoolVar(&f.server, "server", false, "Run as a server-only host: no client stage, no textures.")
}

// resolve loads the configuration file, if any, and applies the flags set on
// the command line on top of it.
func (f *globalFlags) resolve(ctx context.Context, cmd *cobra.Command) (*config.Model, error) {
	cfg, err := f.loader.Load(ctx, f.configFile)
	if err != nil {
		return nil, usageError(err)
	}

	flags := cmd.Flags()
	if flags.Changed("core") {
		cfg.Paths.Core = f.core
	}
	if flags.Changed("configs") {
		cfg.Paths.Config = f.configs
	}
	if flags.Changed("modules") {
		cfg.Paths.Modules = f.modules
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = strings.ToLower(f.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = strings.ToLower(f.logFormat)
	}
	if flags.Changed("server") {
		cfg.ServerOnly = f.server
	}

	if err := cfg.Validate(); err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// NewRootCmd creates the fabrica command tree. Output goes to outW; opts are
// passed to every App the commands build.
func NewRootCmd(outW io.Writer, opts ...app.Option) *cobra.Command {
	flags := &globalFlags{loader: hcl.NewLoader()}
	root := &cobra.Command{
		Use:   "fabrica",
		Short: "Fabrica module host",
		Long: `Fabrica discovers module libraries, loads them, and runs their
initialization stages against shared content and render registries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	flags.register(root)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.AddCommand(
		newRunCmd(flags, opts),
		newModulesCmd(flags, opts),
		newServeCmd(flags, opts),
	)
	return root
}

// Execute runs the command tree with args and maps every failure to an
// *ExitError.
func Execute(ctx context.Context, outW io.Writer, args []string, opts ...app.Option) error {
	root := NewRootCmd(outW, opts...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		return usageError(err)
	}
	return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
}

// startApp builds an App from the resolved configuration and starts it.
func startApp(cmd *cobra.Command, flags *globalFlags, opts []app.Option) (*app.App, *app.StartupReport, error) {
	ctx := cmd.Context()
	cfg, err := flags.resolve(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.NewApp(cmd.OutOrStdout(), cfg, opts...)
	if err != nil {
		return nil, nil, usageError(err)
	}
	report, err := a.Start(ctx)
	if err != nil {
		_ = a.Close()
		return nil, nil, fmt.Errorf("host startup failed: %w", err)
	}
	return a, report, nil
}
