package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-bookmaker/internal/config"
	"github.com/a3tai/pdf-bookmaker/internal/content"
)

func capturePrintVersion(t *testing.T) string {
	t.Helper()
	originalStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	tests := []struct {
		name      string
		version   string
		buildTime string
		gitCommit string
	}{
		{"release build", "1.2.3", "2023-12-01_10:30:00", "abc123"},
		{"defaults", "dev", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, buildTime, gitCommit = tt.version, tt.buildTime, tt.gitCommit

			output := capturePrintVersion(t)
			for _, expected := range []string{
				"PDF Bookmaker",
				"Version: " + tt.version,
				"Build Time: " + tt.buildTime,
				"Git Commit: " + tt.gitCommit,
				"Built with:",
			} {
				if !strings.Contains(output, expected) {
					t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
				}
			}
		})
	}
}

func TestNewSourceWithoutKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GeminiAPIKey = ""
	cfg.RedisAddr = ""

	src, closeSource, err := newSource(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newSource() error = %v", err)
	}
	defer closeSource()

	if _, ok := src.(*content.CachedSource); !ok {
		t.Errorf("newSource() = %T, want *content.CachedSource", src)
	}

	text := content.Solution(context.Background(), src, "Go")
	if !strings.HasPrefix(text, "Error: ") {
		t.Errorf("chapter text without a key = %q, want an error message", text)
	}
}

func TestNewSourceBadRedis(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GeminiAPIKey = ""
	cfg.RedisAddr = "127.0.0.1:1"

	if _, _, err := newSource(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("newSource() with an unreachable redis should fail")
	}
}

func TestRunServerModeShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServerMode(ctx, cfg, http.NotFoundHandler(), zap.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServerMode() error = %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("runServerMode() did not return after cancel")
	}
}
