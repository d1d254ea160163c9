package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-bookmaker/internal/auth"
	"github.com/a3tai/pdf-bookmaker/internal/book"
	"github.com/a3tai/pdf-bookmaker/internal/config"
	"github.com/a3tai/pdf-bookmaker/internal/content"
	"github.com/a3tai/pdf-bookmaker/internal/library"
	"github.com/a3tai/pdf-bookmaker/internal/logging"
	"github.com/a3tai/pdf-bookmaker/internal/mcp"
	"github.com/a3tai/pdf-bookmaker/internal/store"
	"github.com/a3tai/pdf-bookmaker/internal/web"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 10 * time.Second

// newSource picks the chapter text source and wraps it in a cache. The
// returned func releases the cache connection.
func newSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (content.Source, func(), error) {
	var (
		src       content.Source
		namespace = "unavailable"
	)
	if cfg.GeminiAPIKey == "" {
		logger.Warn("no Gemini API key configured, chapters will carry an error message")
		src = content.Unavailable()
	} else {
		gemini, err := content.NewGeminiSource(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		src, namespace = gemini, gemini.Model()
	}

	if cfg.RedisAddr == "" {
		return content.NewCachedSource(src, content.NewMemoryCache(), cfg.CacheTTL, namespace, logger), func() {}, nil
	}

	cache, err := content.NewRedisCache(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	closeCache := func() {
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close redis cache", zap.Error(err))
		}
	}
	return content.NewCachedSource(src, cache, cfg.CacheTTL, namespace, logger), closeCache, nil
}

// runServerMode serves the web application until a signal arrives
func runServerMode(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("address", srv.Addr))
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	src, closeSource, err := newSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	lib, err := library.New(cfg.BooksDirectory, cfg.MaxFileSize, db, logger.Named("library"))
	if err != nil {
		return err
	}
	books := book.NewService(lib, src, db, cfg.Workers, logger.Named("book"))

	if cfg.IsStdioMode() {
		server, err := mcp.NewServer(cfg, books, lib, db, logger.Named("mcp"))
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		return server.Run(ctx)
	}

	app, err := web.New(db, auth.NewIssuer(cfg.JWTSecret), books, lib, logger.Named("web"))
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}
	return runServerMode(ctx, cfg, app.Handler(), logger)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsStdioMode())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("starting", zap.String("config", cfg.String()))

	if err := run(cfg, logger); err != nil {
		logger.Error("bookmaker stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF Bookmaker\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
