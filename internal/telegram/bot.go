package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"med-analysis-bot/internal/storage"
)

// extractor converts a downloaded file into plain text. ok is false when no
// text could be extracted.
type extractor interface {
	Extract(path, filename string) (text string, ok bool)
}

// analyzer produces the user-facing interpretation for extracted text.
type analyzer interface {
	Analyze(ctx context.Context, text string) string
}

// statsProvider feeds the daily usage report.
type statsProvider interface {
	Stats() (users int, requests int, err error)
}

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	token       string
	recorder    storage.Recorder
	errLog      *storage.ErrorLog
	extractor   extractor
	analyzer    analyzer
	stats       statsProvider
	parseMode   string
	adminUserID int64
	download    func(url string) ([]byte, error)
}

func New(
	botToken string,
	recorder storage.Recorder,
	errLog *storage.ErrorLog,
	ext extractor,
	an analyzer,
	stats statsProvider,
	parseMode string,
	adminUserID int64,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:         api,
		s:           botAPISender{api: api},
		token:       botToken,
		recorder:    recorder,
		errLog:      errLog,
		extractor:   ext,
		analyzer:    an,
		stats:       stats,
		parseMode:   parseMode,
		adminUserID: adminUserID,
		download:    downloadFile,
	}, nil
}

// Start runs the long-poll update loop. Each update is handled in its own
// goroutine; the only shared mutable state is the mutex-guarded recorder.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		go b.handleMessage(ctx, update.Message)
	}
}

// handleMessage is the boundary for one update: a panic anywhere below it
// is converted into a logged error and a fixed reply, never a dead process.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			userMsg := msgDocumentError
			if len(msg.Photo) > 0 {
				userMsg = msgPhotoError
			}
			b.reportError(msg.Chat.ID, "Panic while handling update", fmt.Errorf("%v", r), userMsg)
		}
	}()

	switch {
	case msg.IsCommand() && msg.Command() == "start":
		b.handleStart(msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	}
}

// SendUsageReport sends the recorder stats to the admin chat. No-op without
// an admin user id.
func (b *Bot) SendUsageReport(_ context.Context) error {
	if b.adminUserID == 0 || b.stats == nil {
		return nil
	}
	users, requests, err := b.stats.Stats()
	if err != nil {
		return fmt.Errorf("collect usage stats: %w", err)
	}
	b.sendMessage(b.adminUserID, fmt.Sprintf("📊 Статистика бота: %d пользователей, %d запросов всего.", users, requests))
	return nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseMode
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("⚠️ failed to send message: %v", err)
	}
}

// logInteraction appends the interaction record. Invoked at the top of every
// handler regardless of the eventual outcome; failures are logged, never
// shown to the user.
func (b *Bot) logInteraction(user *tgbotapi.User, fileType string) {
	if user == nil || b.recorder == nil {
		return
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if _, err := b.recorder.Record(user.ID, name, user.UserName, fileType); err != nil {
		log.Printf("⚠️ failed to record interaction for user %d: %v", user.ID, err)
	}
}

// reportError logs the failure to both the logger and the error file and
// answers the user with a fixed message.
func (b *Bot) reportError(chatID int64, context string, err error, userMsg string) {
	log.Printf("❌ %s: %v", context, err)
	if b.errLog != nil {
		if lerr := b.errLog.Append(context, err); lerr != nil {
			log.Printf("⚠️ failed to write error log: %v", lerr)
		}
	}
	b.sendMessage(chatID, userMsg)
}

func downloadFile(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return data, nil
}
