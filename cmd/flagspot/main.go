package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/flagspot/internal/camera"
	"github.com/jask/flagspot/internal/config"
	"github.com/jask/flagspot/internal/secrets"
	"github.com/jask/flagspot/internal/tui"
	"github.com/jask/flagspot/internal/vision"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logFile := setupLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// the key is required before any hardware is touched: failing here is
	// cheaper than failing after the user framed a shot
	apiKey := resolveAPIKey(cfg)
	if apiKey == "" {
		log.Fatalf("no API key: set %s, or store one with the in-app [k] screen", cfg.Vision.APIKeyEnv)
	}

	classifier, err := vision.NewGemini(ctx, apiKey, cfg.Vision.Model)
	if err != nil {
		log.Fatalf("vision client: %v", err)
	}

	cam, err := camera.NewFFmpeg(cfg.Camera.Device)
	if err != nil {
		log.Fatalf("camera: %v", err)
	}

	p := tea.NewProgram(tui.New(ctx, cfg, cam, classifier), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// setupLogging routes slog to a file; the terminal belongs to the TUI.
func setupLogging() *os.File {
	var w io.Writer = io.Discard
	var f *os.File
	if dir, err := os.UserCacheDir(); err == nil {
		dir = filepath.Join(dir, "flagspot")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			if f, err = os.OpenFile(filepath.Join(dir, "flagspot.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				w = f
			}
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, nil)))
	return f
}

func resolveAPIKey(cfg config.Config) string {
	env := strings.TrimSpace(cfg.Vision.APIKeyEnv)
	if env == "" {
		env = "GEMINI_API_KEY"
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	if k, err := secrets.FetchAPIKey(); err == nil {
		return k
	}
	return strings.TrimSpace(cfg.Vision.APIKey)
}
