package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mindmate/internal/auth"
	"mindmate/internal/config"
	"mindmate/internal/llm"
	"mindmate/internal/metrics"
	"mindmate/internal/pending"
	"mindmate/internal/prompt"
	"mindmate/internal/scheduler"
	"mindmate/internal/speech"
	"mindmate/internal/storage"
	"mindmate/internal/telegram"
)

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Serve MindMate as a Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.TelegramBotToken == "" {
				return errors.New("TELEGRAM_BOT_TOKEN is required for the bot")
			}

			a, err := newApp(cfg, "")
			if err != nil {
				return err
			}
			defer a.Close()
			logger := a.logger

			client, err := a.newClient(ctx)
			if err != nil {
				return err
			}

			allowRepo, err := auth.NewFileRepository(cfg.AllowlistFilePath)
			if err != nil {
				return fmt.Errorf("init allowlist: %w", err)
			}
			authSvc, err := auth.NewWithRepo(allowRepo, cfg.AllowedUsers,
				auth.WithOpenAccess(cfg.OpenAccess), auth.WithAdmin(cfg.AdminUserID))
			if err != nil {
				return fmt.Errorf("init auth: %w", err)
			}
			pendingRepo, err := auth.NewFileRepository(cfg.PendingFilePath)
			if err != nil {
				return fmt.Errorf("init pending repo: %w", err)
			}
			queue, err := pending.NewQueue(pendingRepo)
			if err != nil {
				return err
			}

			var rec storage.Recorder
			if cfg.LogFilePath != "" {
				fr, err := storage.NewFileRecorder(cfg.LogFilePath)
				if err != nil {
					logger.Warn("interaction log disabled", zap.Error(err))
				} else {
					rec = fr
				}
			}

			var recognizer speech.Recognizer
			if cfg.SpeechAvailable() {
				oc := llm.NewOpenAIConfig(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenRouterReferrer, cfg.OpenRouterTitle)
				recognizer = speech.NewWhisper(oc, cfg.TranscriptionModel, cfg.SpeechLanguage)
				logger.Info("voice messages enabled", zap.String("model", cfg.TranscriptionModel))
			}

			collector := metrics.NewCollector(metrics.Namespace)
			if cfg.MetricsAddr != "" {
				go func() {
					if err := collector.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
						logger.Error("metrics listener failed", zap.Error(err))
					}
				}()
			}

			bot, err := telegram.New(cfg.TelegramBotToken, telegram.Deps{
				Auth:         authSvc,
				Pending:      queue,
				LLM:          client,
				SystemPrompt: prompt.Load(cfg.SystemPromptPath, logger),
				KV:           a.kv,
				Recorder:     rec,
				Recognizer:   recognizer,
				Content:      a.content,
				Metrics:      collector,
				Logger:       logger,
				AdminUserID:  cfg.AdminUserID,
				ParseMode:    cfg.MessageParseMode,
			})
			if err != nil {
				return err
			}

			sched := scheduler.New(cfg.ReportCron, logger)
			sched.SetReportFunction(bot.SendDailyReport)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			bot.Start(ctx)
			logger.Info("bot stopped")
			return nil
		},
	}
}
