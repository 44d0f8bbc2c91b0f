package main

import (
	"fmt"

	"fixforge-client/pkg/config"
	"fixforge-client/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time via -ldflags.
var version = "dev"

// app is what every subcommand shares once the root pre-run has loaded it.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	debug bool
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "fixforge",
		Short:         "Report bugs to fixforge from the terminal",
		Long:          "fixforge submits bug reports to the fixforge backend and points you at\nthe page with AI suggestions, related reports or known solutions.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.debug {
				cfg.LogLevel = "debug"
			}
			lg, err := logger.New(cfg.LogLevel, cfg.LogJSON)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			a.cfg = cfg
			a.log = lg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(newSubmitCmd(a))
	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newLanguagesCmd())
	root.AddCommand(newEventsCmd(a))
	return root
}
