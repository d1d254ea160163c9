package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-bookmaker/internal/client"
	"github.com/a3tai/pdf-bookmaker/internal/config"
	"github.com/a3tai/pdf-bookmaker/internal/logging"
	"github.com/a3tai/pdf-bookmaker/internal/tui"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func run(cfg *config.ClientConfig, logger *zap.Logger) error {
	ctx := context.Background()

	c, err := client.New(cfg.ServerURL, client.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := c.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	logger.Info("logged in", zap.String("server", cfg.ServerURL), zap.String("username", cfg.Username))

	p := tea.NewProgram(tui.New(ctx, c, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("form exited with error: %w", err)
	}
	return nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadClientFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFile(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("bookform stopped with error", zap.Error(err))
		_ = logger.Sync()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Book Form\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
