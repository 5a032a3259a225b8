package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mindmate/internal/config"
	"mindmate/internal/content"
	"mindmate/internal/llm"
	"mindmate/internal/logging"
	"mindmate/internal/storage"
)

// app holds what every front-end shares.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	kv      storage.KV
	content *content.Content
}

// newApp builds the logger, storage and static content. logOutput overrides
// cfg.LogOutput when not empty.
func newApp(cfg *config.Config, logOutput string) (*app, error) {
	if logOutput == "" {
		logOutput = cfg.LogOutput
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOutput)
	if err != nil {
		return nil, err
	}
	kv, err := storage.Open(cfg.StorageDriver, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	c := content.Default()
	if cfg.ContentPath != "" {
		loaded, err := content.Load(cfg.ContentPath)
		if err != nil {
			logger.Warn("content file unusable, using built-in content", zap.String("path", cfg.ContentPath), zap.Error(err))
		} else {
			c = loaded
		}
	}
	logger.Info("storage opened", zap.String("driver", cfg.StorageDriver), zap.String("path", cfg.StoragePath))
	return &app{cfg: cfg, logger: logger, kv: kv, content: c}, nil
}

func (a *app) newClient(ctx context.Context) (llm.Client, error) {
	client, err := llm.NewFactory(a.cfg).CreateClient(ctx, string(a.cfg.LLMProvider), "")
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	a.logger.Info("llm client ready", zap.String("provider", string(a.cfg.LLMProvider)))
	return client, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Error("close storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}
