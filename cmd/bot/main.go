package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"med-analysis-bot/internal/analysis"
	"med-analysis-bot/internal/config"
	"med-analysis-bot/internal/extract"
	"med-analysis-bot/internal/llm"
	"med-analysis-bot/internal/scheduler"
	"med-analysis-bot/internal/storage"
	"med-analysis-bot/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	var llmClient llm.Client
	if cfg.HasLLMCredentials() {
		factory := &llm.Factory{
			OpenaiAPIKey:     cfg.OpenAIAPIKey,
			OpenaiBaseURL:    cfg.OpenAIBaseURL,
			OpenaiModel:      cfg.OpenAIModel,
			YandexOAuthToken: cfg.YandexOAuthToken,
			YandexFolderID:   cfg.YandexFolderID,
		}
		client, err := factory.CreateClient(string(cfg.LLMProvider))
		if err != nil {
			log.Fatalf("failed to create llm client: %v", err)
		}
		llmClient = client
	} else {
		log.Printf("⚠️ LLM credentials not found, analysis requests will be rejected")
	}

	errLog := storage.NewErrorLog(cfg.ErrorLogPath)
	recorder := storage.NewFileRecorder(cfg.UsersFilePath)
	extractor := extract.New(errLog)
	analyzer := analysis.New(llmClient, errLog)

	bot, err := telegram.New(
		cfg.TelegramBotToken,
		recorder,
		errLog,
		extractor,
		analyzer,
		recorder,
		cfg.MessageParseMode,
		cfg.AdminUserID,
	)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	if cfg.AdminUserID != 0 {
		sched := scheduler.New()
		sched.SetReportFunction(bot.SendUsageReport)
		if err := sched.Start(); err != nil {
			log.Printf("⚠️ failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	}

	bot.Start(context.Background())
}
