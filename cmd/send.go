/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskclaw/pkg/auth"
	"taskclaw/pkg/bot"
	"taskclaw/pkg/config"
	"taskclaw/pkg/logger"
	"taskclaw/pkg/message"
	"taskclaw/pkg/processor"

	"github.com/spf13/cobra"
)

const cliChannelName = "cli"

var sendText string

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [text]",
	Short: "Create one task from the command line",
	Long:  "Runs one piece of text through the full parse-and-create pipeline using the default credential and prints the reply.",
	Run: func(cmd *cobra.Command, args []string) {
		text := resolveText(args)
		if text == "" {
			fmt.Println("nothing to send: pass the task text as arguments or --text")
			return
		}

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

		ctx := context.Background()
		reply, err := runText(ctx, pipe, text)
		if err != nil {
			fmt.Printf("send failed: %v\n", err)
			return
		}

		fmt.Println(reply)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendText, "text", "t", "", "task text to send")
}

func resolveText(args []string) string {
	if value := strings.TrimSpace(sendText); value != "" {
		return value
	}

	return strings.TrimSpace(strings.Join(args, " "))
}

// runText pushes one line of text through the chain as a CLI-channel message.
func runText(ctx context.Context, pipe *pipeline, text string) (string, error) {
	credential, err := pipe.creds.Lookup(ctx, cliChannelName)
	if err != nil {
		if errors.Is(err, auth.ErrNoCredential) {
			return "", errors.New("no default credential configured (set TODOIST_API_TOKEN or auth.default_token)")
		}
		return "", err
	}

	inbound := message.New(cliChannelName, cliChannelName, cliChannelName, message.ClassifyText(text))
	inbound.Text = text

	outcome := pipe.chain.Process(ctx, inbound, processor.Context{
		Credential: credential.Token,
		Locale:     credential.Locale,
	})

	return bot.FormatOutcome(outcome), nil
}
