package telegram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"med-analysis-bot/internal/storage"
)

type fakeSender struct {
	sent    []string
	deleted []int
	gotFile []string
	nextID  int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	mc := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, mc.Text)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
		f.deleted = append(f.deleted, d.MessageID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error) {
	f.gotFile = append(f.gotFile, cfg.FileID)
	return tgbotapi.File{FileID: cfg.FileID, FilePath: "documents/file.bin"}, nil
}

type fakeRecorder struct {
	userIDs   []int64
	fileTypes []string
}

func (f *fakeRecorder) Record(userID int64, name, username, fileType string) (storage.Interaction, error) {
	f.userIDs = append(f.userIDs, userID)
	f.fileTypes = append(f.fileTypes, fileType)
	return storage.Interaction{UserID: userID, First: true, Count: 1}, nil
}

type fakeExtractor struct {
	text  string
	ok    bool
	paths []string
}

func (f *fakeExtractor) Extract(path, filename string) (string, bool) {
	f.paths = append(f.paths, path)
	return f.text, f.ok
}

type fakeAnalyzer struct {
	reply string
	texts []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) string {
	f.texts = append(f.texts, text)
	return f.reply
}

type fakeStats struct{ users, requests int }

func (f fakeStats) Stats() (int, int, error) { return f.users, f.requests, nil }

func newTestBot(fs *fakeSender, rec *fakeRecorder, ext *fakeExtractor, an *fakeAnalyzer) *Bot {
	return &Bot{
		s:         fs,
		token:     "test-token",
		recorder:  rec,
		extractor: ext,
		analyzer:  an,
		parseMode: "Markdown",
		download:  func(url string) ([]byte, error) { return []byte("file-bytes"), nil },
	}
}

func documentMessage(filename string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 42, FirstName: "Ivan", LastName: "Petrov", UserName: "ivan"},
		Chat:     &tgbotapi.Chat{ID: 100},
		Document: &tgbotapi.Document{FileID: "doc-1", FileName: filename},
	}
}

func TestHandleStart_LogsAndWelcomes(t *testing.T) {
	fs := &fakeSender{}
	rec := &fakeRecorder{}
	b := newTestBot(fs, rec, nil, nil)

	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42, FirstName: "Ivan"},
		Chat: &tgbotapi.Chat{ID: 100},
	}
	b.handleStart(msg)

	if len(rec.fileTypes) != 1 || rec.fileTypes[0] != "start_command" {
		t.Fatalf("interaction not logged as start_command: %+v", rec.fileTypes)
	}
	if len(fs.sent) != 1 || !strings.Contains(fs.sent[0], "расшифровывать медицинские") {
		t.Fatalf("welcome not sent: %+v", fs.sent)
	}
}

func TestHandleDocument_Success(t *testing.T) {
	fs := &fakeSender{}
	rec := &fakeRecorder{}
	ext := &fakeExtractor{text: "Гемоглобин: 120", ok: true}
	an := &fakeAnalyzer{reply: "Всё в норме."}
	b := newTestBot(fs, rec, ext, an)

	b.handleDocument(context.Background(), documentMessage("res.PDF"))

	if len(rec.fileTypes) != 1 || rec.fileTypes[0] != ".pdf" {
		t.Fatalf("file extension not logged: %+v", rec.fileTypes)
	}
	if len(fs.sent) != 2 || fs.sent[0] != msgProcessingDocument || fs.sent[1] != "Всё в норме." {
		t.Fatalf("unexpected messages: %+v", fs.sent)
	}
	if len(fs.deleted) != 1 || fs.deleted[0] != 1 {
		t.Fatalf("processing message not deleted: %+v", fs.deleted)
	}
	if len(an.texts) != 1 || an.texts[0] != "Гемоглобин: 120" {
		t.Fatalf("analyzer got wrong text: %+v", an.texts)
	}

	// The temp file handed to the extractor is gone after handling.
	if len(ext.paths) != 1 {
		t.Fatalf("extractor not invoked: %+v", ext.paths)
	}
	if _, err := os.Stat(ext.paths[0]); !os.IsNotExist(err) {
		t.Fatalf("temp file %s not removed: %v", ext.paths[0], err)
	}
}

func TestHandleDocument_NoText(t *testing.T) {
	fs := &fakeSender{}
	ext := &fakeExtractor{ok: false}
	an := &fakeAnalyzer{reply: "never"}
	b := newTestBot(fs, &fakeRecorder{}, ext, an)

	b.handleDocument(context.Background(), documentMessage("res.exe"))

	if len(fs.sent) != 2 || fs.sent[1] != msgNoText {
		t.Fatalf("no-text reply missing: %+v", fs.sent)
	}
	if len(an.texts) != 0 {
		t.Fatalf("analyzer must not run without text: %+v", an.texts)
	}
	if len(fs.deleted) != 1 {
		t.Fatalf("processing message not deleted: %+v", fs.deleted)
	}
	if _, err := os.Stat(ext.paths[0]); !os.IsNotExist(err) {
		t.Fatalf("temp file not removed on extraction failure")
	}
}

func TestHandleDocument_EmptyExtraction(t *testing.T) {
	fs := &fakeSender{}
	ext := &fakeExtractor{text: "", ok: true}
	an := &fakeAnalyzer{reply: "never"}
	b := newTestBot(fs, &fakeRecorder{}, ext, an)

	b.handleDocument(context.Background(), documentMessage("empty.txt"))

	if len(fs.sent) != 2 || fs.sent[1] != msgNoText {
		t.Fatalf("empty extraction must get the no-text reply: %+v", fs.sent)
	}
	if len(an.texts) != 0 {
		t.Fatalf("analyzer must not run on empty text: %+v", an.texts)
	}
}

func TestHandleDocument_DownloadError(t *testing.T) {
	fs := &fakeSender{}
	errPath := filepath.Join(t.TempDir(), "log.txt")
	b := newTestBot(fs, &fakeRecorder{}, &fakeExtractor{}, &fakeAnalyzer{})
	b.errLog = storage.NewErrorLog(errPath)
	b.download = func(url string) ([]byte, error) { return nil, errors.New("network down") }

	b.handleDocument(context.Background(), documentMessage("res.pdf"))

	if len(fs.sent) != 2 || fs.sent[1] != msgDocumentError {
		t.Fatalf("generic error reply missing: %+v", fs.sent)
	}
	if len(fs.deleted) != 1 {
		t.Fatalf("processing message not deleted on error: %+v", fs.deleted)
	}

	data, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("error log not written: %v", err)
	}
	if !strings.Contains(string(data), "Error processing document res.pdf") {
		t.Fatalf("error log missing context: %q", string(data))
	}
}

func TestHandlePhoto_UsesPlaceholder(t *testing.T) {
	fs := &fakeSender{}
	rec := &fakeRecorder{}
	an := &fakeAnalyzer{reply: "Интерпретация."}
	b := newTestBot(fs, rec, nil, an)

	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42, FirstName: "Ivan"},
		Chat: &tgbotapi.Chat{ID: 100},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small"},
			{FileID: "large"},
		},
	}
	b.handlePhoto(context.Background(), msg)

	if len(rec.fileTypes) != 1 || rec.fileTypes[0] != "image" {
		t.Fatalf("photo interaction not logged as image: %+v", rec.fileTypes)
	}
	if len(fs.gotFile) != 1 || fs.gotFile[0] != "large" {
		t.Fatalf("largest photo size not fetched: %+v", fs.gotFile)
	}
	if len(an.texts) != 1 || an.texts[0] != photoPlaceholderText {
		t.Fatalf("analyzer must get the placeholder text: %+v", an.texts)
	}
	if len(fs.sent) != 2 || fs.sent[1] != "Интерпретация." {
		t.Fatalf("unexpected messages: %+v", fs.sent)
	}
	if len(fs.deleted) != 1 {
		t.Fatalf("processing message not deleted: %+v", fs.deleted)
	}
}

type panicExtractor struct{}

func (panicExtractor) Extract(path, filename string) (string, bool) {
	panic("parser bug")
}

func TestHandleMessage_RecoversFromPanic(t *testing.T) {
	fs := &fakeSender{}
	errPath := filepath.Join(t.TempDir(), "log.txt")
	b := newTestBot(fs, &fakeRecorder{}, nil, &fakeAnalyzer{})
	b.extractor = panicExtractor{}
	b.errLog = storage.NewErrorLog(errPath)

	b.handleMessage(context.Background(), documentMessage("res.pdf"))

	last := fs.sent[len(fs.sent)-1]
	if last != msgDocumentError {
		t.Fatalf("panic must surface as the fixed error reply: %+v", fs.sent)
	}

	data, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("error log not written: %v", err)
	}
	if !strings.Contains(string(data), "parser bug") {
		t.Fatalf("panic value not logged: %q", string(data))
	}
}

func TestSendUsageReport(t *testing.T) {
	fs := &fakeSender{}
	b := newTestBot(fs, &fakeRecorder{}, nil, nil)
	b.adminUserID = 999
	b.stats = fakeStats{users: 3, requests: 10}

	if err := b.SendUsageReport(context.Background()); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(fs.sent) != 1 || !strings.Contains(fs.sent[0], "3") || !strings.Contains(fs.sent[0], "10") {
		t.Fatalf("report message missing stats: %+v", fs.sent)
	}
}

func TestSendUsageReport_NoAdmin(t *testing.T) {
	fs := &fakeSender{}
	b := newTestBot(fs, &fakeRecorder{}, nil, nil)

	if err := b.SendUsageReport(context.Background()); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(fs.sent) != 0 {
		t.Fatalf("report must be a no-op without admin: %+v", fs.sent)
	}
}
