package bujo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/config"
	"github.com/marcus/bujo/internal/llm"
	"github.com/marcus/bujo/internal/transcribe"
	"github.com/marcus/bujo/internal/vision"
)

// NewFromConfig builds an App from cfg. Without an API key the model-backed
// services are skipped and the local analyzers answer every call.
func NewFromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var client llm.Client
	if cfg.GoogleAPIKey != "" {
		g, err := llm.NewGenAI(ctx, llm.Config{
			APIKey:         cfg.GoogleAPIKey,
			Model:          cfg.GeminiModel,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, err
		}
		client = g
		logger.Debug("gemini enabled", "model", g.Model())
	} else {
		logger.Warn("GOOGLE_API_KEY not set, using keyword analysis and simulated image emotions")
	}

	var docs []string
	if cfg.RAGDocuments != "" {
		d, err := analyzer.LoadDocuments(cfg.RAGDocuments)
		if err != nil {
			return nil, fmt.Errorf("load retrieval documents: %w", err)
		}
		docs = d
	}

	app := &App{
		Analyzer: analyzer.NewDefault(client, docs, logger),
		Vision:   vision.New(client, vision.WithLogger(logger)),
		Logger:   logger,
	}

	var speech transcribe.Chain
	if cfg.WhisperURL != "" {
		speech = append(speech, transcribe.NewRetry(transcribe.NewWhisperASR(cfg.WhisperURL), transcribe.WithLogger(logger)))
	}
	if client != nil {
		speech = append(speech, transcribe.NewGemini(client))
	}
	if len(speech) > 0 {
		app.Transcriber = speech
	} else {
		logger.Warn("no transcriber configured, voice entries are disabled")
	}
	return app, nil
}
