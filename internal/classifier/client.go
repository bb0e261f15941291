// Package classifier brokers AI-assisted classification of vocabulary
// terms: given a target-language word, it obtains the translation, type
// tags, context tags and an example sentence, then writes them back
// through the mutation engine under the do-not-clobber policy.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lberthe/dicolex/internal/apperr"
	"github.com/lberthe/dicolex/internal/models"
)

// Result is one classification answer for a term.
type Result struct {
	SourceWord string `json:"source_word"`
	Type       string `json:"type"`
	Context    string `json:"context"`
	Example    string `json:"example"`
}

// Client produces a classification for a single term. Implementations
// report rate limiting as apperr.ErrRateLimited and unusable answers as
// apperr.ErrMalformedResponse so the orchestrator can react per cause.
type Client interface {
	Classify(ctx context.Context, term string) (*Result, error)
}

// OpenAIConfig configures the OpenAI-backed classifier client.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string // optional, for OpenAI-compatible local backends
	Languages models.Languages
}

// OpenAI is the default Client implementation, backed by a chat
// completion against an OpenAI-compatible API.
type OpenAI struct {
	client *openai.Client
	model  string
	langs  models.Languages
	logger *slog.Logger
}

// NewOpenAI creates the client. The base URL override lets the same code
// talk to local OpenAI-compatible servers.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
		logger.Warn("classifier: model not configured, using default", slog.String("model", model))
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		langs:  cfg.Languages,
		logger: logger,
	}, nil
}

const systemPrompt = `You are a %s language tutor maintaining a learner's dictionary.
For the given %s word, answer with a single JSON object and nothing else:
{"source_word": "<%s translation, lowercase>",
 "type": "<grammatical type as hierarchical hashtags, e.g. #nom/commun or #verbe/irrégulier/3/re>",
 "context": "<one usage-domain hashtag, e.g. #daily or #school>",
 "example": "<one short example sentence in %s>"}`

// Classify asks the model for the term's classification.
func (o *OpenAI) Classify(ctx context.Context, term string) (*Result, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPrompt,
					o.langs.Target, o.langs.Target, o.langs.Source, o.langs.Target),
			},
			{Role: openai.ChatMessageRoleUser, Content: term},
		},
		Temperature: 0.2,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return nil, fmt.Errorf("classifier: %s: %w", term, apperr.ErrRateLimited)
		}
		return nil, fmt.Errorf("classifier: %s: %w", term, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier: %s: empty response: %w", term, apperr.ErrMalformedResponse)
	}

	result, err := decodeResult(resp.Choices[0].Message.Content)
	if err != nil {
		o.logger.Warn("classifier: unusable model answer",
			slog.String("term", term), slog.String("error", err.Error()))
		return nil, fmt.Errorf("classifier: %s: %w", term, err)
	}
	return result, nil
}

// decodeResult extracts the JSON object from a model answer that may be
// wrapped in prose or code fences: everything between the first '{' and
// the last '}' is taken as the payload.
func decodeResult(content string) (*Result, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, apperr.ErrMalformedResponse
	}
	payload := content[start : end+1]
	if !json.Valid([]byte(payload)) {
		return nil, apperr.ErrMalformedResponse
	}
	var r Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, apperr.ErrMalformedResponse
	}
	if r.SourceWord == "" && r.Type == "" && r.Context == "" && r.Example == "" {
		return nil, apperr.ErrMalformedResponse
	}
	return &r, nil
}
