package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/botkit"
	"github.com/adamwoolhether/botkit/client"
	"github.com/adamwoolhether/botkit/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pingbot",
		Short:        "A chat bot answering !ping with pong.",
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd())

	return root
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and serve until interrupted.",
		Long: "`run --config bot.yaml` loads the bot configuration, reads the optional " +
			"env file, and keeps the gateway session alive until the process is " +
			"interrupted or the platform closes the session for good.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("parsing log level: %w", err)
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			f, err := config.Load(configPath, envFile)
			if err != nil {
				return err
			}

			p := newPinger(cmd.Context(), logger)
			c, err := botkit.New(f.AccountType(), func(b *client.Builder) {
				f.Apply(b)
				botkit.Logger(b, func() *slog.Logger { return logger })
				botkit.Add(b, p)
			})
			if err != nil {
				return fmt.Errorf("starting client: %w", err)
			}

			select {
			case <-c.Done():
			case <-cmd.Context().Done():
				c.Shutdown()
				<-c.Done()
			}
			p.wait()

			return c.Err()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bot.yaml", "path to the YAML configuration")
	cmd.Flags().StringVar(&envFile, "env", ".env", "optional env file, skipped when missing")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	return cmd
}
