package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vbonduro/nutritionist/internal/analysis"
	"github.com/vbonduro/nutritionist/internal/config"
	"github.com/vbonduro/nutritionist/internal/logging"
	"github.com/vbonduro/nutritionist/internal/vision"
	claudevision "github.com/vbonduro/nutritionist/internal/vision/claude"
	geminivision "github.com/vbonduro/nutritionist/internal/vision/gemini"
	ollamavision "github.com/vbonduro/nutritionist/internal/vision/ollama"
	openaivision "github.com/vbonduro/nutritionist/internal/vision/openai"
	"github.com/vbonduro/nutritionist/internal/web"
	"github.com/vbonduro/nutritionist/internal/web/templates"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	// Fail at startup rather than on the first submission.
	if err := cfg.Validate(); err != nil {
		return err
	}

	generator, err := newGenerator(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	pipeline := analysis.NewPipeline(generator, logger)
	server := web.NewServer(pipeline, templates.FS, logger)

	return server.ListenAndServe(cfg.ListenAddr)
}

func newGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (vision.Generator, error) {
	switch cfg.VisionBackend {
	case config.BackendClaude:
		logger.Info("using Claude vision backend", "model", cfg.Claude.Model)
		return claudevision.NewClaudeGenerator(cfg.Claude.APIKey, cfg.Claude.Model), nil
	case config.BackendOpenAI:
		logger.Info("using OpenAI vision backend", "model", cfg.OpenAI.Model, "base_url", cfg.OpenAI.BaseURL)
		return openaivision.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL), nil
	case config.BackendOllama:
		logger.Info("using Ollama vision backend", "model", cfg.Ollama.Model, "host", cfg.Ollama.Host)
		return ollamavision.NewOllamaGenerator(cfg.Ollama.Host, cfg.Ollama.Model), nil
	default:
		logger.Info("using Gemini vision backend", "model", cfg.Gemini.Model)
		return geminivision.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	}
}
