package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ba-assistant-be/internal/bootstrap"
	"ba-assistant-be/internal/config"
	"ba-assistant-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ba-assistant",
	Short: "Interactive console for the BA assistant",
	Long: `ba-assistant runs the document synthesis engine in the terminal.
Describe a need and answer the follow-up questions until the document is
ready. Type /help for the console commands.`,
	SilenceUsage: true,
	RunE:         runConsoleCmd,
}

func init() {
	rootCmd.Flags().String("session", "", "session id to use (default: a new random id)")
	rootCmd.Flags().String("provider", "", "LLM provider override (ollama, gemini, groq, openrouter, mistral, huggingface)")
	rootCmd.Flags().String("docs-dir", "", "output directory override for generated documents")
	rootCmd.Flags().Bool("no-log", false, "disable the session log store")
}

func runConsoleCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		cfg.LLM.Provider = p
	}
	if dir, _ := cmd.Flags().GetString("docs-dir"); dir != "" {
		cfg.Render.OutputDir = dir
	}
	if off, _ := cmd.Flags().GetBool("no-log"); off {
		cfg.Database.LogStore = "none"
	}

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// file-only logging keeps the console readable
	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	engine, err := bootstrap.NewEngine(ctx, cfg, sysLogger, bootstrap.WithoutEvents())
	if err != nil {
		return err
	}
	defer engine.Close()

	if engine.Consumer != nil {
		if err := engine.Consumer.Consume(ctx); err != nil {
			return fmt.Errorf("start publish consumer: %w", err)
		}
	}

	repl := newConsole(engine.Assistant, engine.Library, cmd.InOrStdin(), cmd.OutOrStdout())
	return repl.Run(ctx, sessionID)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
