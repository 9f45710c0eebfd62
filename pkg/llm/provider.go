package llm

import (
	"context"
)

// Message is a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // overrides the provider's default model
	JSON        bool   // ask the backend to constrain output to a JSON document
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithJSONOutput() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

// LLMProvider is the contract for any LLM backend
type LLMProvider interface {
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single user prompt
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
