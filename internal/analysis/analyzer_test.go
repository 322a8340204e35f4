package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"med-analysis-bot/internal/llm"
	"med-analysis-bot/internal/storage"
)

type fakeLLM struct {
	resp  llm.Response
	err   error
	calls int
	msgs  []llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	f.calls++
	f.msgs = msgs
	return f.resp, f.err
}

func TestAnalyze_MissingCredentials(t *testing.T) {
	a := New(nil, nil)
	got := a.Analyze(context.Background(), "Гемоглобин: 120")
	if got != msgNoCredentials {
		t.Fatalf("want configuration-error message, got %q", got)
	}
}

func TestAnalyze_SendsSingleUserMessageWithText(t *testing.T) {
	f := &fakeLLM{resp: llm.Response{Content: "Всё в норме."}}
	a := New(f, nil)

	a.Analyze(context.Background(), "Гемоглобин: 120 г/л")

	if f.calls != 1 {
		t.Fatalf("want exactly 1 provider call, got %d", f.calls)
	}
	if len(f.msgs) != 1 || f.msgs[0].Role != "user" {
		t.Fatalf("want a single user-role message, got %+v", f.msgs)
	}
	prompt := f.msgs[0].Content
	if !strings.Contains(prompt, "Гемоглобин: 120 г/л") {
		t.Fatalf("extracted text missing from prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "Ты врач") || !strings.Contains(prompt, "самолечением") {
		t.Fatalf("prompt template incomplete: %q", prompt)
	}
}

func TestAnalyze_FormatsReply(t *testing.T) {
	f := &fakeLLM{resp: llm.Response{Content: "## Общий анализ крови\nВсё в норме."}}
	a := New(f, nil)

	got := a.Analyze(context.Background(), "данные")
	if !strings.HasPrefix(got, "🔬 **Общий анализ крови**") {
		t.Fatalf("reply not formatted: %q", got)
	}
}

func TestAnalyze_ProviderFailure(t *testing.T) {
	errPath := filepath.Join(t.TempDir(), "log.txt")
	f := &fakeLLM{err: errors.New("quota exceeded")}
	a := New(f, storage.NewErrorLog(errPath))

	got := a.Analyze(context.Background(), "данные")
	if got != msgProviderError {
		t.Fatalf("want retry-later message, got %q", got)
	}

	data, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("error log not written: %v", err)
	}
	if !strings.Contains(string(data), "quota exceeded") {
		t.Fatalf("provider error not logged: %q", string(data))
	}
}
