package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gemini-chat/internal/cli"
	"gemini-chat/internal/client"
	"gemini-chat/internal/config"
	"gemini-chat/internal/store"
)

var (
	endpoint string
	timeout  time.Duration
	stream   bool
	width    int
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Gemini through the chat proxy",
	Long: `Interactive terminal chat backed by the chat proxy.

Type a message to send it, or /help for the list of commands.
Conversations live in memory and are gone when the program exits.`,
	SilenceUsage: true,
	RunE:         runChat,
}

func init() {
	cfg := config.LoadClient()

	rootCmd.Flags().StringVar(&endpoint, "endpoint", cfg.Endpoint, "base URL of the chat proxy")
	rootCmd.Flags().DurationVar(&timeout, "timeout", cfg.Timeout, "maximum time to wait for a reply")
	rootCmd.Flags().BoolVar(&stream, "stream", false, "print replies as they are generated")
	rootCmd.Flags().IntVar(&width, "width", 80, "word wrap width for rendered replies")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log request failures to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()
	}

	out := cmd.OutOrStdout()

	var sender store.Sender
	if stream {
		sc, err := client.NewStreamClient(endpoint, timeout)
		if err != nil {
			return err
		}
		sc.OnChunk = func(chunk string) { fmt.Fprint(out, chunk) }
		sender = sc
	} else {
		sender = client.NewHTTPClient(endpoint, timeout)
	}

	chatStore := store.New(sender, store.WithTimeout(timeout), store.WithLogger(logger))

	term := cli.NewTerminal()
	defer term.Close()

	chat := cli.New(chatStore, term, out,
		cli.WithRenderer(cli.MarkdownRenderer(width)),
		cli.WithStreaming(stream),
	)
	return chat.Run(context.Background())
}
