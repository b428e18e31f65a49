// Command lexidx serves and inspects binary word ↔ id lexicons.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lexidx/cmd/lexidx/cli"
	"lexidx/internal/logging"
	"lexidx/internal/server"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	server.Version = version

	// Base handler passes everything; ComponentFilterHandler decides.
	// Rebuilt in PersistentPreRunE once --log-format is known.
	filter := logging.NewComponentFilterHandler(logging.NewHandler(os.Stderr, "text"), slog.LevelInfo)
	logger := slog.New(filter)

	rootCmd := &cobra.Command{
		Use:           "lexidx",
		Short:         "Binary lexicon service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			levelFlag, _ := cmd.Flags().GetString("log-level")
			formatFlag, _ := cmd.Flags().GetString("log-format")
			level, err := logging.ParseLevel(levelFlag)
			if err != nil {
				return err
			}
			filter = logging.NewComponentFilterHandler(logging.NewHandler(os.Stderr, formatFlag), level)
			logger = slog.New(filter)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("home", "", "home directory (default: platform config dir)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured lexicons over Connect RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			homeFlag, _ := cmd.Flags().GetString("home")
			configFlag, _ := cmd.Flags().GetString("config")
			addrFlag, _ := cmd.Flags().GetString("addr")
			discover, _ := cmd.Flags().GetStringArray("discover")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return run(ctx, logger, filter, serveOptions{
				home:     homeFlag,
				config:   configFlag,
				addr:     addrFlag,
				discover: discover,
				// Explicit --log-level beats the config file.
				levelFromFlag: cmd.Flags().Changed("log-level"),
			})
		},
	}

	serveCmd.Flags().String("config", "", "config file (default: <home>/config.json)")
	serveCmd.Flags().String("addr", "", "listen address (host:port), overrides the config file")
	serveCmd.Flags().StringArray("discover", nil, "glob of lexicon files to serve, repeatable (\"**\" supported)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	rootCmd.AddCommand(cli.NewFileCommands()...)
	rootCmd.AddCommand(cli.NewClientCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
