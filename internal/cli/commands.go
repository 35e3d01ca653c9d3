package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vk/fabrica/internal/app"
)

func newRunCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load every module, run its stages, and pack the texture atlas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, report, err := startApp(cmd, flags, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			printReport(out, report)

			failures := len(report.LoadErrors) + len(report.HookFailures())
			if !a.Config().ServerOnly {
				tm, err := a.BuildTextures(cmd.Context())
				if err != nil {
					return err
				}
				atlas := tm.Atlas()
				fmt.Fprintf(out, "atlas: %d charts in %dx%dx%d (%d failed renderers)\n",
					len(tm.Charts()), atlas.Width(), atlas.Height(), atlas.Depth(), len(tm.Failures()))
				for _, f := range tm.Failures() {
					fmt.Fprintf(out, "  renderer failed: %v\n", f.Err)
				}
				failures += len(tm.Failures())
			}

			if strict && failures > 0 {
				return &ExitError{Code: ExitStrict, Message: fmt.Sprintf("%d module failure(s)", failures)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with a non-zero code if any module failed to load or initialize.")
	return cmd
}

func newModulesCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the loaded modules in load order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, report, err := startApp(cmd, flags, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, rec := range a.Host().Records() {
				source := rec.LibraryPath()
				if rec.Builtin() {
					source = "builtin"
				}
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", rec.Order(), rec.Name(), rec.Version(), source)
			}
			for _, le := range report.LoadErrors {
				fmt.Fprintf(out, "-\t%s\tfailed\t%v\n", le.Path, le.Err)
			}
			return nil
		},
	}
}

func newServeCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the host and expose its status over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, report, err := startApp(cmd, flags, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			printReport(cmd.OutOrStdout(), report)
			return a.Serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Address of the status server.")
	return cmd
}

func printReport(out io.Writer, report *app.StartupReport) {
	for _, le := range report.LoadErrors {
		fmt.Fprintf(out, "load failed: %v\n", le)
	}
	for _, s := range report.Stages {
		for _, res := range s.Failed() {
			fmt.Fprintf(out, "%s failed: %v\n", s.Stage, res.Err)
		}
	}
}
