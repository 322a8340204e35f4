// Package analysis turns extracted document text into a formatted medical
// interpretation via a single LLM chat call.
package analysis

import (
	"context"
	"fmt"
	"log"

	"med-analysis-bot/internal/format"
	"med-analysis-bot/internal/llm"
	"med-analysis-bot/internal/storage"
)

const promptTemplate = "Ты врач, который должен изучить результаты анализов пользователя и сообщить ему " +
	"где и какие результаты отличаются от референсных, с чем это может быть связано " +
	"и на что обратить внимание. Если требуется дополнительное исследование, " +
	"то дать рекомендации к этим исследованиям. Вот данные анализов:\n\n%s\n\n" +
	"Но в конце обязательно добавь, что пользователь не должен заниматься самолечением, " +
	"рекомендации сформированы искусственным интеллектом и носят информационный, " +
	"а не рекомендательный характер, и ему следует консультироваться со специалистами."

const (
	msgNoCredentials = "Ошибка: Не установлены учетные данные для LLM-провайдера. " +
		"Пожалуйста, настройте переменные окружения провайдера."
	msgProviderError = "Произошла ошибка при обращении к сервису анализа. " +
		"Пожалуйста, попробуйте снова позже."
)

// Analyzer holds the LLM client for the configured provider. A nil client
// means credentials were absent at startup; every request then gets the
// configuration-error message and no network call is made.
type Analyzer struct {
	client llm.Client
	errLog *storage.ErrorLog
}

func New(client llm.Client, errLog *storage.ErrorLog) *Analyzer {
	return &Analyzer{client: client, errLog: errLog}
}

// Analyze always returns a user-facing string, never an error: provider
// failures are logged and collapsed into a fixed retry-later message.
func (a *Analyzer) Analyze(ctx context.Context, text string) string {
	if a.client == nil {
		return msgNoCredentials
	}

	prompt := fmt.Sprintf(promptTemplate, text)
	resp, err := a.client.Generate(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		log.Printf("❌ LLM call failed: %v", err)
		if a.errLog != nil {
			if lerr := a.errLog.Append("Error calling LLM provider", err); lerr != nil {
				log.Printf("⚠️ failed to write error log: %v", lerr)
			}
		}
		return msgProviderError
	}

	return format.Response(resp.Content)
}
