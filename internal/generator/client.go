package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/config"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/models"
)

// LLMClient is the interface both generator implementations satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Synthesis is the model-authored part of a question, answer already normalized.
type Synthesis struct {
	Plot     string
	Question string
	Options  []string
	Answer   string
	Learning *models.LearningContent
}

// Generator turns a (title, type, difficulty) into a Synthesis via an LLMClient.
type Generator struct {
	llm   LLMClient
	model string
	log   *logger.Logger
}

func NewGenerator(cfg *config.Config, log *logger.Logger) *Generator {
	if cfg.MockGenerator {
		log.Info("generator using mock data")
		return New(NewMockClient(), "mock", log)
	}
	if cfg.GeneratorCommand != "" {
		if cmd, err := NewCommandClient(cfg.GeneratorCommand); err == nil {
			log.Info("generator using local command", "command", cmd.path)
			return New(cmd, "command", log)
		}
	}
	log.Info("generator using Anthropic API", "model", cfg.AnthropicModel)
	return New(NewAPIClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens, cfg.Temperature), cfg.AnthropicModel, log)
}

func New(llm LLMClient, model string, log *logger.Logger) *Generator {
	return &Generator{llm: llm, model: model, log: log}
}

// Synthesize asks the model for one question. Nothing is retried: a
// ConfigurationError, UpstreamError or GenerationFailed goes straight back.
func (g *Generator) Synthesize(ctx context.Context, title string, contentType models.ContentType, difficulty models.Difficulty) (*Synthesis, error) {
	resp, err := g.llm.Generate(ctx, BuildSystemPrompt(), BuildUserPrompt(title, contentType, difficulty))
	if err != nil {
		return nil, fmt.Errorf("generate question for %q: %w", title, err)
	}

	parsed, err := ParseSynthesis(resp.Content)
	if err != nil {
		g.log.Warn("unparsable model response", "model", g.model, "title", title, "content_type", contentType,
			"difficulty", difficulty, "error", err)
		return nil, fmt.Errorf("parse question for %q: %w", title, err)
	}

	answer, matched := MatchAnswer(parsed.Answer, parsed.Options)
	if !matched {
		g.log.Warn("answer did not match any option, falling back to first option", "model", g.model,
			"title", title, "content_type", contentType, "difficulty", difficulty, "raw_answer", parsed.Answer)
	}

	return &Synthesis{
		Plot:     parsed.Plot,
		Question: parsed.Question,
		Options:  parsed.Options,
		Answer:   answer,
		Learning: parsed.Learning,
	}, nil
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client      *anthropic.Client
	apiKey      string
	model       string
	maxTokens   int64
	temperature float64
}

func NewAPIClient(apiKey, model string, maxTokens int64, temperature float64) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &APIClient{
		client:      &client,
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if c.apiKey == "" {
		return nil, apperr.New(apperr.ErrConfiguration, "ANTHROPIC_API_KEY is not set")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: param.NewOpt(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &apperr.UpstreamError{Provider: "anthropic", StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("anthropic request: %w", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, apperr.New(apperr.ErrGenerationFailed, "no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{
		Content:      "```json\n" + mockJSON + "\n```",
		PromptTokens: 600,
		OutputTokens: 400,
	}, nil
}

const mockJSON = `{
  "plot": "[Mock] A short, spoiler-free summary of the work.",
  "question": "[Mock] Which theme sits at the heart of this work?",
  "options": ["Identity", "Revenge", "Space travel", "Time loops"],
  "answer": "A",
  "learning": {
    "didYouKnow": "[Mock] An interesting production fact.",
    "culturalContext": "[Mock] How the work landed with audiences of its time.",
    "creatorSpotlight": "[Mock] A note on the creator's wider body of work.",
    "awards": ["[Mock] A notable award"],
    "legacy": "[Mock] How the work is remembered today."
  }
}`
