package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"taskclaw/pkg/bot"
	"taskclaw/pkg/channel"
	"taskclaw/pkg/channel/telegram"
	"taskclaw/pkg/config"
	"taskclaw/pkg/logger"

	"github.com/spf13/cobra"
)

const telegramChannelName = "telegram"

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the channel bot",
	Long:  "Runs TaskClaw against the enabled chat channels with health and readiness endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.bot")

		adapters, err := enabledAdapters(cfg, log)
		if err != nil {
			log.Error("Bot configuration invalid", "error", err)
			return
		}

		pipe, err := buildPipeline(cfg, true, log)
		if err != nil {
			log.Error("Failed to build processing pipeline", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := bot.NewService(cfg, pipe.chain, pipe.creds, pipe.tasks, adapters, log)
		if err != nil {
			log.Error("Failed to initialize bot service", "error", err)
			return
		}

		log.Info("Bot started",
			"channels", enabledChannelNames(adapters),
			"parser_model", cfg.Parser.Model,
			"transcriber_model", cfg.Transcription.Primary.Model,
		)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Bot runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func enabledAdapters(cfg *config.Config, log *slog.Logger) ([]channel.Adapter, error) {
	adapters := make([]channel.Adapter, 0, 1)

	if cfg.Channels.Telegram.Enabled {
		adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, log)
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", telegramChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		return nil, errors.New("no channels are enabled")
	}

	return adapters, nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
