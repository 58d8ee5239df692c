package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

const llmTimeout = 20 * time.Second

// LLMConfig configures the chat-completion client. BaseURL is optional and
// allows pointing at any OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type openaiRepo struct {
	client *openai.Client
	model  string
}

// NewLLMRepo creates the chat-completion repository. Returns nil when no API
// key is configured; callers treat a nil repo as "LLM unavailable".
func NewLLMRepo(cfg LLMConfig) repo.LLMRepo {
	if cfg.APIKey == "" {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openaiRepo{client: openai.NewClientWithConfig(clientCfg), model: model}
}

func (r *openaiRepo) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

const analyzeSystemPrompt = `Analyze the user message and respond with strict JSON only, no markdown fences:
{"sentiment": "positive"|"negative"|"neutral", "topics": ["..."], "is_question": true|false, "confidence": 0.0-1.0}`

func (r *openaiRepo) Analyze(ctx context.Context, content string) (*domain.ContentAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("analysis completion returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.Trim(strings.TrimPrefix(raw, "```"), "` \n")

	var parsed struct {
		Sentiment  string   `json:"sentiment"`
		Topics     []string `json:"topics"`
		IsQuestion bool     `json:"is_question"`
		Confidence float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	switch parsed.Sentiment {
	case "positive", "negative", "neutral":
	default:
		parsed.Sentiment = "neutral"
	}
	return &domain.ContentAnalysis{
		Sentiment:  parsed.Sentiment,
		Topics:     parsed.Topics,
		IsQuestion: parsed.IsQuestion,
		Confidence: parsed.Confidence,
	}, nil
}
