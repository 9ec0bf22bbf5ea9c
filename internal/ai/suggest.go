package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/personachat/backend/internal/persona"
	"go.uber.org/zap"
)

const historyWindow = 20

// HistoryMessage is one line of conversation context for suggestions.
type HistoryMessage struct {
	Mine    bool
	Content string
}

// SuggestInput carries the message and context to react to.
type SuggestInput struct {
	Message      string
	Relationship string
	Formality    *float64
	Persona      string
	History      []HistoryMessage
}

// SuggestedReply is a persona-matched reply candidate.
type SuggestedReply struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// QuickReply is a short tap-to-send reply.
type QuickReply struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

// ReactionSuggestion is the suggestion contract output.
type ReactionSuggestion struct {
	Emotion      string
	EmotionScore float64
	Emojis       []string
	Replies      []SuggestedReply
	QuickReplies []QuickReply
}

type suggestionWire struct {
	Emotion         string           `json:"emotion"`
	EmotionScore    float64          `json:"emotionScore"`
	SuggestedEmojis []string         `json:"suggestedEmojis"`
	SuggestedTexts  []SuggestedReply `json:"suggestedTexts"`
	QuickResponses  []QuickReply     `json:"quickResponses"`
}

var defaultEmojis = []string{"👍", "❤️", "😊", "🙌", "✅"}

func neutralSuggestion() ReactionSuggestion {
	return ReactionSuggestion{
		Emotion:      "neutral",
		EmotionScore: 0.5,
		Emojis:       append([]string(nil), defaultEmojis...),
		Replies:      []SuggestedReply{},
		QuickReplies: []QuickReply{},
	}
}

// SuggestReactions proposes emojis and persona-matched replies for a received
// message. Collaborator failure degrades to a neutral suggestion, never an
// error.
func (c *Client) SuggestReactions(ctx context.Context, input SuggestInput) ReactionSuggestion {
	if strings.TrimSpace(input.Message) == "" {
		suggestion := neutralSuggestion()
		suggestion.Emojis = []string{"👍", "❤️", "😊"}
		return suggestion
	}

	formality := persona.DefaultScore
	if input.Formality != nil {
		formality = *input.Formality
	}
	applied := input.Persona
	if applied == "" {
		applied = persona.FromScore(formality)
	}

	suggestion, err := c.suggestViaCollaborator(ctx, input, applied)
	if err != nil {
		c.logger.Warn("reaction suggestion collaborator unavailable", zap.Error(err))
		return neutralSuggestion()
	}
	return suggestion
}

func (c *Client) suggestViaCollaborator(ctx context.Context, input SuggestInput, applied string) (ReactionSuggestion, error) {
	var history strings.Builder
	if len(input.History) > 0 {
		history.WriteString("Conversation context (most recent first):\n")
		for i, msg := range input.History {
			if i >= historyWindow {
				history.WriteString("... (older messages omitted)\n")
				break
			}
			label := "them"
			if msg.Mine {
				label = "me"
			}
			fmt.Fprintf(&history, "%s: %s\n", label, msg.Content)
		}
		history.WriteString("\n")
	}

	system := "You analyze the emotion of chat messages and recommend reactions that fit the conversation."
	user := fmt.Sprintf(
		"Analyze the following message and respond with JSON only.\n\n"+
			"%s"+
			"Tone setting: %s\n%s\n\n"+
			"{\n"+
			"  \"emotion\": \"happy|sad|angry|surprised|excited|worried|neutral\",\n"+
			"  \"emotionScore\": 0.0-1.0,\n"+
			"  \"suggestedEmojis\": [\"😊\", \"❤️\", ...] (5 entries),\n"+
			"  \"suggestedTexts\": [{\"text\": \"a reply in the tone above\", \"type\": \"comfort|empathy|question|support\"}, ...] (2-3 entries),\n"+
			"  \"quickResponses\": [{\"text\": \"a short reply in the tone above\", \"icon\": \"😊\"}, ...] (2-3 entries)\n"+
			"}\n\n"+
			"Replies must follow the tone guide exactly and fit the conversation context.\n\n"+
			"Current message: %s",
		history.String(), applied, persona.Guide(applied), input.Message,
	)

	raw, err := c.complete(ctx, system, user, 0.7, 500)
	if err != nil {
		return ReactionSuggestion{}, err
	}

	var wire suggestionWire
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &wire); err != nil {
		return ReactionSuggestion{}, fmt.Errorf("ai: undecodable reaction suggestion: %w", err)
	}

	suggestion := ReactionSuggestion{
		Emotion:      wire.Emotion,
		EmotionScore: wire.EmotionScore,
		Emojis:       wire.SuggestedEmojis,
		Replies:      wire.SuggestedTexts,
		QuickReplies: wire.QuickResponses,
	}
	if suggestion.Emotion == "" {
		suggestion.Emotion = "neutral"
	}
	if len(suggestion.Emojis) == 0 {
		suggestion.Emojis = append([]string(nil), defaultEmojis...)
	}
	if suggestion.Replies == nil {
		suggestion.Replies = []SuggestedReply{}
	}
	if suggestion.QuickReplies == nil {
		suggestion.QuickReplies = []QuickReply{}
	}
	return suggestion, nil
}
