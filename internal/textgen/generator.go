package textgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrNoValidText means every model failed or produced vetoed text.
	ErrNoValidText = errors.New("textgen: no valid text from any model")
	// ErrNoModels means the generator has no model configured.
	ErrNoModels = errors.New("textgen: no models configured")
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatCompleter is the part of the OpenAI client the generator uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// #region openai
// OpenAIGenerator asks each configured model in turn and returns the first
// answer that passes the validator.
type OpenAIGenerator struct {
	client    ChatCompleter
	models    []string
	validator *Validator
}

// NewOpenAIGenerator builds a generator on a real OpenAI-compatible endpoint.
// An empty baseURL uses the public API.
func NewOpenAIGenerator(apiKey, baseURL string, models []string, v *Validator) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIGeneratorWithClient(openai.NewClientWithConfig(cfg), models, v)
}

// NewOpenAIGeneratorWithClient builds a generator on any chat completer.
func NewOpenAIGeneratorWithClient(client ChatCompleter, models []string, v *Validator) *OpenAIGenerator {
	if v == nil {
		v = NewValidator(DefaultValidatorConfig())
	}
	return &OpenAIGenerator{client: client, models: models, validator: v}
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if len(g.models) == 0 {
		return "", ErrNoModels
	}
	for _, model := range g.models {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			log.Debug().Err(err).Str("model", model).Msg("completion failed")
			continue
		}
		if len(resp.Choices) == 0 {
			log.Debug().Str("model", model).Msg("completion returned no choices")
			continue
		}
		text, vetoes := g.validator.Accept(resp.Choices[0].Message.Content, 0)
		if len(vetoes) > 0 {
			log.Debug().Str("model", model).Str("veto", string(vetoes[0].Type)).Str("reason", vetoes[0].Reason).
				Msg("generated text rejected")
			continue
		}
		return text, nil
	}
	return "", ErrNoValidText
}

// #endregion openai
