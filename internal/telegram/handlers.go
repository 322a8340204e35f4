package telegram

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeMessage = "Привет! 🏥\n\n" +
	"Этот бот умеет расшифровывать медицинские лабораторные анализы.\n" +
	"Я помогу вам понять, где и какие результаты отличаются от нормы, " +
	"с чем это может быть связано и на что обратить внимание.\n\n" +
	"Пожалуйста, загрузите документ с результатами анализов (поддерживаются форматы: " +
	"DOC, DOCX, XLS, PDF, JPEG). После загрузки я проанализирую данные и дам разъяснения.\n\n" +
	"This bot interprets medical lab results: upload a document or a photo to get started."

const (
	msgProcessingDocument = "Обрабатываю документ... Подождите немного."
	msgProcessingPhoto    = "Обрабатываю изображение... Подождите немного."
	msgNoText             = "Не удалось извлечь текст из документа. Попробуйте другой файл."
	msgDocumentError      = "Произошла ошибка при обработке документа. Попробуйте снова."
	msgPhotoError         = "Произошла ошибка при обработке изображения. Попробуйте снова."

	// OCR is not implemented; the model is only told that an image arrived.
	photoPlaceholderText = "Пользователь загрузил изображение медицинского документа с результатами анализов. " +
		"Пожалуйста, предоставьте интерпретацию этих результатов."
)

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.logInteraction(msg.From, "start_command")
	b.sendMessage(msg.Chat.ID, welcomeMessage)
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	ext := strings.ToLower(filepath.Ext(msg.Document.FileName))
	b.logInteraction(msg.From, ext)

	processing, perr := b.s.Send(tgbotapi.NewMessage(msg.Chat.ID, msgProcessingDocument))
	if perr == nil {
		defer b.deleteMessage(msg.Chat.ID, processing.MessageID)
	}

	data, err := b.fetchFile(msg.Document.FileID)
	if err != nil {
		b.reportError(msg.Chat.ID, fmt.Sprintf("Error processing document %s", msg.Document.FileName), err, msgDocumentError)
		return
	}

	err = withTempFile(data, ext, func(path string) error {
		text, ok := b.extractor.Extract(path, msg.Document.FileName)
		// An empty extraction (empty txt, docx without text, zero-page
		// pdf) is as useless to the model as a failed one.
		if !ok || text == "" {
			b.sendMessage(msg.Chat.ID, msgNoText)
			return nil
		}
		b.sendMessage(msg.Chat.ID, b.analyzer.Analyze(ctx, text))
		return nil
	})
	if err != nil {
		b.reportError(msg.Chat.ID, fmt.Sprintf("Error processing document %s", msg.Document.FileName), err, msgDocumentError)
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	b.logInteraction(msg.From, "image")

	processing, perr := b.s.Send(tgbotapi.NewMessage(msg.Chat.ID, msgProcessingPhoto))
	if perr == nil {
		defer b.deleteMessage(msg.Chat.ID, processing.MessageID)
	}

	// Last photo size is the highest resolution.
	photo := msg.Photo[len(msg.Photo)-1]
	data, err := b.fetchFile(photo.FileID)
	if err != nil {
		b.reportError(msg.Chat.ID, "Error processing photo", err, msgPhotoError)
		return
	}

	// The image bytes are saved but not read back: without OCR the analyzer
	// only gets the placeholder description.
	err = withTempFile(data, ".jpg", func(path string) error {
		b.sendMessage(msg.Chat.ID, b.analyzer.Analyze(ctx, photoPlaceholderText))
		return nil
	})
	if err != nil {
		b.reportError(msg.Chat.ID, "Error processing photo", err, msgPhotoError)
	}
}

func (b *Bot) fetchFile(fileID string) ([]byte, error) {
	file, err := b.s.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return b.download(file.Link(b.token))
}

// deleteMessage removes the transient processing message. The message may
// already be gone, so failures are tolerated silently.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	_, _ = b.s.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

// withTempFile writes data to a scoped temporary file, runs fn on it and
// removes the file on every exit path, including a panic inside fn.
func withTempFile(data []byte, suffix string, fn func(path string) error) error {
	f, err := os.CreateTemp("", "upload-*"+suffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if rerr := os.Remove(path); rerr != nil {
			log.Printf("⚠️ failed to remove temp file %s: %v", path, rerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return fn(path)
}
