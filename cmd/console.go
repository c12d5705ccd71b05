/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskclaw/pkg/config"
	"taskclaw/pkg/logger"
	"taskclaw/pkg/ui/console"

	"github.com/spf13/cobra"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive task console",
	Long:  "Starts a terminal UI that runs typed text through the full pipeline, useful for trying prompts without a chat channel.",
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

		pipe, err := buildPipeline(cfg, false, appLogger)
		if err != nil {
			fmt.Printf("failed to build pipeline: %v\n", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		submit := func(ctx context.Context, text string) (string, error) {
			return runText(ctx, pipe, text)
		}

		info := console.RuntimeInfo{
			ParserModel:      cfg.Parser.Model,
			TranscriberModel: cfg.Transcription.Primary.Model,
			TaskAPI:          cfg.TaskAPI.BaseURL,
		}

		if err := console.Run(runCtx, submit, info); err != nil {
			fmt.Printf("console failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
