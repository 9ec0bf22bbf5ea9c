// Package ai wraps the text-processing collaborator. Every call is bounded by
// a configured timeout and a failure is never fatal: moderation and transform
// callers degrade to pass-through, suggestion and matching fall back to local
// deterministic results.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/personachat/backend/internal/persona"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 15 * time.Second

	relationshipBoss   = "boss"
	relationshipSenior = "senior"
)

// Config describes the collaborator connection.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client talks to the chat-completions collaborator.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient constructs the collaborator client. A missing API key is allowed;
// calls will fail and degrade like any other collaborator outage.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("ai: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64, maxTokens int64) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("ai: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GuardVerdict is the moderation contract: whether the text reads as
// aggressive and, if so, a calmer replacement in the caller's persona.
type GuardVerdict struct {
	IsAggressive    bool
	AggressionType  string
	AggressionScore float64
	SuggestedText   string
	Warning         string
}

type guardWire struct {
	IsAggressive    bool    `json:"isAggressive"`
	AggressionType  string  `json:"aggressionType"`
	AggressionScore float64 `json:"aggressionScore"`
	Suggestion      string  `json:"suggestion"`
}

// GuardEmotion asks the collaborator whether the text is aggressive. Callers
// must treat any returned error the same as a "not aggressive" verdict.
func (c *Client) GuardEmotion(ctx context.Context, text, personaLabel string) (GuardVerdict, error) {
	if strings.TrimSpace(text) == "" {
		return GuardVerdict{}, nil
	}
	applied := personaLabel
	if applied == "" {
		applied = persona.CasualPolite
	}

	system := "You analyze the emotional register of chat messages and detect aggressive or sarcastic phrasing."
	user := fmt.Sprintf(
		"Analyze the following message and respond with JSON only.\n\n"+
			"Tone setting: %s\n%s\n\n"+
			"{\n"+
			"  \"isAggressive\": true/false,\n"+
			"  \"aggressionType\": \"sarcasm|passive_aggressive|direct_attack|dismissive\",\n"+
			"  \"aggressionScore\": 0.0-1.0,\n"+
			"  \"suggestion\": \"a calmer phrasing that follows the tone guide above\"\n"+
			"}\n\n"+
			"The suggestion must follow the tone guide exactly.\n\n"+
			"Message: %s",
		applied, persona.Guide(applied), text,
	)

	raw, err := c.complete(ctx, system, user, 0.5, 300)
	if err != nil {
		return GuardVerdict{}, err
	}

	var wire guardWire
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &wire); err != nil {
		return GuardVerdict{}, fmt.Errorf("ai: undecodable guard verdict: %w", err)
	}

	verdict := GuardVerdict{
		IsAggressive:    wire.IsAggressive,
		AggressionType:  wire.AggressionType,
		AggressionScore: wire.AggressionScore,
		SuggestedText:   wire.Suggestion,
	}
	if verdict.IsAggressive {
		verdict.Warning = "How about saying this a little more gently?"
	}
	return verdict, nil
}

// TransformResult is the style-transform contract output.
type TransformResult struct {
	OriginalText     string
	TransformedText  string
	AppliedPersona   string
	FormalityScore   float64
	ShouldSuggest    bool
	SuggestionReason string
}

// TransformText rewrites the text to match the formality score and persona.
// Empty input is returned unchanged; callers must treat any returned error as
// "output equals input".
func (c *Client) TransformText(ctx context.Context, text string, formality float64, relationship, personaLabel string) (TransformResult, error) {
	applied := personaLabel
	if applied == "" {
		applied = persona.FromScore(formality)
	}
	result := TransformResult{
		OriginalText:    text,
		TransformedText: text,
		AppliedPersona:  applied,
		FormalityScore:  formality,
	}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	system := "You rewrite text to match a requested register of formality and relationship."
	user := fmt.Sprintf(
		"Rewrite the following text in the '%s' register.\n\n"+
			"Tone guide:\n%s\n\n"+
			"Rules:\n"+
			"- Keep the meaning of the original text\n"+
			"- Change only tone and style\n"+
			"- Output the rewritten text only, without commentary\n\n"+
			"Original text:\n%s",
		applied, persona.Guide(applied), text,
	)

	transformed, err := c.complete(ctx, system, user, 0.7, 500)
	if err != nil {
		return result, err
	}
	result.TransformedText = strings.TrimSpace(transformed)
	if result.TransformedText == "" {
		result.TransformedText = text
	}

	result.ShouldSuggest = result.TransformedText != text &&
		(formality >= 60 || relationship == relationshipBoss || relationship == relationshipSenior)
	if result.ShouldSuggest {
		result.SuggestionReason = suggestionReason(relationship, formality)
	}
	return result, nil
}

func suggestionReason(relationship string, formality float64) string {
	switch {
	case relationship == relationshipBoss:
		return "A more formal phrasing suits a conversation with your boss."
	case relationship == relationshipSenior:
		return "A respectful phrasing works better with a senior."
	case formality >= 80:
		return "A more courteous phrasing is appropriate in a work setting."
	default:
		return "Try a phrasing that fits the situation."
	}
}

// extractJSONObject trims everything around the outermost JSON object, which
// tolerates collaborators that wrap their JSON in code fences or prose.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

// extractJSONArray is the array counterpart of extractJSONObject.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
