// Command personachat is a terminal persona-chat client backed by the
// Gemini API. Running it without arguments starts the interactive chat.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"personachat/cmd/personachat/chat"
	"personachat/internal/catalog"
	"personachat/internal/config"
	"personachat/internal/coordinator"
	"personachat/internal/gemini"
	"personachat/internal/persona"
	"personachat/internal/session"
	"personachat/internal/store"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "personachat",
	Short: "Chat with AI personas from your terminal",
	Long: `PersonaChat is a terminal client for streaming conversations with
character personas backed by the Gemini API.

Conversations are persisted locally and survive restarts; the remote
session context is rebuilt from the saved history. Run without arguments
to start the interactive chat.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = buildLogger(cmd.CalledAs() == "personachat" || cmd.CalledAs() == "")
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

var charactersCmd = &cobra.Command{
	Use:   "characters",
	Short: "List the character catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		characters, err := catalog.Load()
		if err != nil {
			return err
		}
		for _, c := range characters {
			fmt.Printf("%-8s %s (%s)\n", c.ID, c.Name, c.Role)
			fmt.Printf("         %s\n", c.Description)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [character-id]",
	Short: "Show archived turns for a character",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		archive, err := store.OpenTurnArchive(cfg.Store.ArchivePath, logger)
		if err != nil {
			return err
		}
		defer archive.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		turns, err := archive.Recent(args[0], limit)
		if err != nil {
			return err
		}
		if len(turns) == 0 {
			fmt.Println("no archived turns")
			return nil
		}
		for i := len(turns) - 1; i >= 0; i-- {
			t := turns[i]
			fmt.Printf("[%s] you: %s\n", t.CreatedAt.Format("2006-01-02 15:04"), t.UserText)
			marker := ""
			if t.Failed {
				marker = " (failed)"
			}
			fmt.Printf("%s%s: %s\n\n", t.CharacterID, marker, t.ModelText)
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear [character-id]",
	Short: "Clear a character's conversation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		historyStore := store.NewHistoryStore(cfg.Store.HistoryPath, logger)
		historyStore.Load()
		historyStore.Delete(args[0])
		fmt.Printf("cleared conversation for %s\n", args[0])
		return nil
	},
}

func runInteractive() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		return fmt.Errorf("no API key configured: set GEMINI_API_KEY or gemini.api_key in %s",
			filepath.Join(config.DataDir(), "config.yaml"))
	}

	characters, err := catalog.Load()
	if err != nil {
		return err
	}

	historyStore := store.NewHistoryStore(cfg.Store.HistoryPath, logger)
	sessions := historyStore.Load()
	history := make(map[string][]persona.Message, len(sessions))
	for id, sess := range sessions {
		history[id] = sess.Messages
	}

	client := gemini.NewClient(gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		BaseURL:         cfg.Gemini.BaseURL,
		Model:           cfg.Gemini.Model,
		Timeout:         cfg.GeminiTimeout(),
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
	}, logger)
	registry := session.NewRegistry(client)

	archive, err := store.OpenTurnArchive(cfg.Store.ArchivePath, logger)
	if err != nil {
		// The archive is auxiliary; run without it.
		logger.Warn("turn archive unavailable", zap.Error(err))
		archive = nil
	} else {
		defer archive.Close()
	}

	// The publish callback is the single mutation path: every snapshot the
	// coordinator emits replaces the stored log and repaints the UI. The
	// program pointer is assigned before Run and publishes only happen
	// after a user-initiated turn, so the closure never sees it nil in
	// practice; the guard covers early shutdown.
	var program *tea.Program
	publish := func(characterID string, messages []persona.Message) {
		historyStore.Replace(characterID, messages)
		if program != nil {
			program.Send(chat.MessagesMsg{CharacterID: characterID, Messages: messages})
		}
	}

	coord := coordinator.New(registry, publish, archive, logger)
	model := chat.New(characters, coord, registry, history, historyStore.Delete)
	program = chat.NewProgram(model)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat interface failed: %w", err)
	}
	return nil
}

// buildLogger constructs the zap logger. Interactive runs log to a file in
// the data directory so log lines cannot corrupt the TUI; subcommands log
// to stderr.
func buildLogger(interactive bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if interactive {
		if err := os.MkdirAll(config.DataDir(), 0755); err == nil {
			zcfg.OutputPaths = []string{filepath.Join(config.DataDir(), "personachat.log")}
			zcfg.ErrorOutputPaths = zcfg.OutputPaths
		}
	}
	return zcfg.Build()
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	historyCmd.Flags().Int("limit", 20, "number of turns to show")

	rootCmd.AddCommand(charactersCmd, historyCmd, clearCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
