// Package command_processor turns a finished recording into a transcript and
// an assistant response. The recorder treats it as an opaque collaborator.
package command_processor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

type openaiImpl struct {
	client       *openai.Client
	whisperModel string
	chatModel    string
	maxTokens    int
	temperature  float32

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
	system  string
}

// OpenAIConfig configures the hosted backend.
type OpenAIConfig struct {
	APIKey       string
	WhisperModel string
	ChatModel    string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
}

// NewOpenAI builds a processor that transcribes with Whisper and answers with
// a chat model, keeping conversation history across commands.
func NewOpenAI(cfg *OpenAIConfig) (Interface, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if cfg.APIKey == "" {
		return nil, errors.New("missing parameter: cfg.APIKey")
	}

	if cfg.WhisperModel == "" {
		cfg.WhisperModel = openai.Whisper1
	}

	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}

	p := &openaiImpl{
		client:       openai.NewClient(cfg.APIKey),
		whisperModel: cfg.WhisperModel,
		chatModel:    cfg.ChatModel,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		system:       cfg.SystemPrompt,
	}

	p.resetHistory()

	return p, nil
}

func (p *openaiImpl) resetHistory() {
	p.history = []openai.ChatCompletionMessage{}

	if p.system != "" {
		p.history = append(p.history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.system,
		})
	}
}

// Process transcribes the recording, then asks the chat model for a response
// with the running conversation as context.
func (p *openaiImpl) Process(ctx context.Context, wavPath string) (*Result, error) {
	transcription, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.whisperModel,
		FilePath: wavPath,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	p.mu.Lock()
	p.history = append(p.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: transcription.Text,
	})
	messages := make([]openai.ChatCompletionMessage, len(p.history))
	copy(messages, p.history)
	p.mu.Unlock()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Messages:    messages,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	answer := resp.Choices[0].Message.Content

	p.mu.Lock()
	p.history = append(p.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: answer,
	})
	p.mu.Unlock()

	return &Result{
		Transcript: transcription.Text,
		Response:   answer,
		Usage: Usage{
			Model:            p.chatModel,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// ResetConversation drops the history, keeping only the system prompt.
func (p *openaiImpl) ResetConversation() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetHistory()
}
