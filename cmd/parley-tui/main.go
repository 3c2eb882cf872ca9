// ABOUTME: Terminal client for the parley messaging adapter
// ABOUTME: Provides readline-style input over the conversation feed with live streaming

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/parley/internal/adapter"
	"github.com/2389/parley/internal/config"
	"github.com/2389/parley/internal/feed"
	"github.com/2389/parley/internal/messaging"
	"github.com/2389/parley/internal/session"
	"github.com/2389/parley/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the parley config file.
// Priority: PARLEY_CONFIG env var > XDG_CONFIG_HOME/parley/parley.yaml > ~/.config/parley/parley.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PARLEY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "parley.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "parley", "parley.yaml")
}

func main() {
	configPath := flag.String("config", getConfigPath(), "Path to parley config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("parley-tui %s\n", version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	setupLogging(cfg.Logging)

	prefs, err := loadPreferences(prefsPath())
	if err != nil {
		return err
	}
	color.NoColor = color.NoColor || !prefs.Color

	prefStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer prefStore.Close()

	ids := session.NewIdentifierStore(prefStore, nil)
	fd := feed.New(nil)
	defer fd.Close()

	a := adapter.New(cfg, ids, fd)
	defer a.Close()

	fmt.Printf("parley-tui %s (as %s)\n", version, prefs.Sender)
	if err := a.CreateClient(ctx); err != nil {
		// The adapter stays usable in degraded no-op mode; say so and move on.
		color.Yellow("Messaging client unavailable: %v", err)
	} else if err := a.AttachLiveStream(ctx); err != nil {
		color.Yellow("Live updates unavailable: %v", err)
	}

	// Print entries as the feed grows. Snapshots arrive in publication
	// order; only the tail beyond what was already rendered is printed.
	go watchFeed(ctx, fd)

	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	return inputLoop(ctx, a, fd, prefs)
}

// setupLogging configures the default slog handler from config.
func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// watchFeed prints newly appended entries from feed snapshots.
func watchFeed(ctx context.Context, fd *feed.Feed) {
	snapshots, _ := fd.Subscribe(ctx)
	rendered := 0

	for snapshot := range snapshots {
		if len(snapshot) < rendered {
			// Feed was replaced or cleared; start over.
			rendered = 0
			continue
		}
		for _, entry := range snapshot[rendered:] {
			printEntry(entry)
		}
		rendered = len(snapshot)
	}
}

func inputLoop(ctx context.Context, a *adapter.Adapter, fd *feed.Feed, prefs Preferences) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if err := handleInput(ctx, a, fd, prefs, input); err != nil {
			color.Red("[error] %v", err)
		}
		fmt.Println()
	}
}

// handleInput dispatches one line of input to a command or a text send.
func handleInput(ctx context.Context, a *adapter.Adapter, fd *feed.Feed, prefs Preferences, input string) error {
	switch {
	case input == "/help":
		printHelp()
		return nil

	case input == "/history":
		if err := a.FetchAndUpdateConversation(ctx); err != nil {
			return err
		}
		printHistory(fd.Snapshot(), prefs.HistoryLimit)
		return nil

	case input == "/reset":
		if err := a.ResetConversation(ctx); err != nil {
			return err
		}
		fmt.Println("Started a new conversation")
		return nil

	case strings.HasPrefix(input, "/image "):
		return sendFile(ctx, a.SendImageMessage, strings.TrimSpace(strings.TrimPrefix(input, "/image")))

	case strings.HasPrefix(input, "/pdf "):
		return sendFile(ctx, a.SendPDFMessage, strings.TrimSpace(strings.TrimPrefix(input, "/pdf")))

	case strings.HasPrefix(input, "/choice "):
		choiceID := strings.TrimSpace(strings.TrimPrefix(input, "/choice"))
		if choiceID == "" {
			return fmt.Errorf("usage: /choice <id>")
		}
		return a.SendChoiceReply(ctx, choiceID)

	case strings.HasPrefix(input, "/"):
		return fmt.Errorf("unknown command %q (try /help)", strings.Fields(input)[0])

	default:
		return a.SendTextMessage(ctx, input)
	}
}

// sendFile reads a local file and forwards it through the given send call.
func sendFile(ctx context.Context, send func(context.Context, string, []byte) error, path string) error {
	if path == "" {
		return fmt.Errorf("missing file path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return send(ctx, path, data)
}

// printHelp displays available commands.
func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /history        Fetch and show the conversation history")
	fmt.Println("  /image <path>   Send an image attachment")
	fmt.Println("  /pdf <path>     Send a PDF attachment")
	fmt.Println("  /choice <id>    Reply to a choice prompt")
	fmt.Println("  /reset          Start a new conversation")
	fmt.Println("  /help           Show this help")
	fmt.Println("  /quit           Exit")
}

// printHistory renders the most recent entries from a feed snapshot.
func printHistory(entries []messaging.ConversationEntry, limit int) {
	if len(entries) == 0 {
		fmt.Println("No conversation history")
		return
	}

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	fmt.Printf("Conversation history (%d entries):\n", len(entries))
	fmt.Println(strings.Repeat("-", 60))
	for _, entry := range entries {
		printEntry(entry)
	}
	fmt.Println(strings.Repeat("-", 60))
}

// printEntry renders one conversation entry with role-based coloring.
func printEntry(entry messaging.ConversationEntry) {
	prefix := "  "
	switch entry.SenderRole {
	case "user":
		prefix = color.BlueString("→") + " "
	case "agent":
		prefix = color.GreenString("←") + " "
	}

	switch entry.Type {
	case messaging.EntryTypeMessage:
		fmt.Printf("%s%s\n", prefix, entry.Text)
	case messaging.EntryTypeChoice:
		fmt.Printf("%s%s %s\n", prefix, color.YellowString("[choice]"), entry.Text)
	case messaging.EntryTypeAttachment:
		fmt.Printf("%s%s %s\n", prefix, color.CyanString("[attachment]"), entry.Text)
	default:
		if entry.Text != "" {
			fmt.Printf("%s[%s] %s\n", prefix, entry.Type, entry.Text)
		}
	}
}
