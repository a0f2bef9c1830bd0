package assistant

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey            string
	Model             string
	SystemInstruction string
}

// chatStreamer is the part of *genai.Chat used by geminiSession.
type chatStreamer interface {
	SendMessageStream(ctx context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Gemini opens chat sessions against the Gemini API.
type Gemini struct {
	client *genai.Client
	config GeminiConfig
}

// NewGemini creates the SDK client. It fails with ErrNotConfigured when no API key is set.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, config: cfg}, nil
}

// NewSession starts a chat with the configured model and system instruction.
func (g *Gemini) NewSession(ctx context.Context) (Session, error) {
	var cfg *genai.GenerateContentConfig
	if g.config.SystemInstruction != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(g.config.SystemInstruction, genai.RoleUser),
		}
	}
	chat, err := g.client.Chats.Create(ctx, g.config.Model, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return newGeminiSession(chat), nil
}

// geminiSession serializes turns: a genai.Chat appends to its history while a
// reply streams, so one turn must finish before the next is sent.
type geminiSession struct {
	chat chatStreamer
	turn chan struct{}
}

func newGeminiSession(chat chatStreamer) *geminiSession {
	return &geminiSession{chat: chat, turn: make(chan struct{}, 1)}
}

// Stream waits for any turn in flight on this session before sending
// userText. The wait ends early with a *StreamError if ctx is done.
func (s *geminiSession) Stream(ctx context.Context, userText string) iter.Seq2[string, error] {
	return Once(func(yield func(string, error) bool) {
		select {
		case s.turn <- struct{}{}:
		case <-ctx.Done():
			yield("", &StreamError{Err: ctx.Err()})
			return
		}
		defer func() { <-s.turn }()

		var received strings.Builder
		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: userText}) {
			if err != nil {
				yield("", &StreamError{Partial: received.String(), Err: err})
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			received.WriteString(text)
			if !yield(text, nil) {
				return
			}
		}
	})
}
