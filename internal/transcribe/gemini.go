package transcribe

import (
	"context"
	"fmt"
	"os"

	"github.com/marcus/bujo/internal/llm"
)

const transcriptionPrompt = `Transcribe this audio recording verbatim. Return only the spoken words
with no commentary, labels, or timestamps. If nothing intelligible is said, return an empty response.`

// Gemini transcribes audio by sending it inline to a multimodal model.
type Gemini struct {
	client llm.Client
}

// NewGemini creates a model-backed transcriber.
func NewGemini(client llm.Client) *Gemini {
	return &Gemini{client: client}
}

// Transcribe implements Transcriber.
func (g *Gemini) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	mime, err := MIMEType(audioPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	prompt := transcriptionPrompt
	if opts.Language != "" && opts.Language != "auto" {
		prompt += "\nThe speaker's language is " + opts.Language + "."
	}
	text, err := g.client.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Media:       []llm.Media{{MIMEType: mime, Data: data}},
		Temperature: llm.Float32(0),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini transcribe: %w", err)
	}
	return &Result{Text: text, Language: opts.Language, Source: "gemini"}, nil
}
