package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/personachat/backend/internal/ai"
	"go.uber.org/zap"
)

type guardRequestPayload struct {
	Text    string `json:"text"`
	Persona string `json:"persona"`
}

type guardResponsePayload struct {
	IsAggressive    bool    `json:"isAggressive"`
	AggressionType  string  `json:"aggressionType"`
	AggressionScore float64 `json:"aggressionScore"`
	SuggestedText   string  `json:"suggestedText"`
	Warning         string  `json:"warning"`
}

// handleGuard screens a draft message. Collaborator failure degrades to a
// pass-through verdict rather than an error, mirroring the send pipeline.
func (h *httpHandler) handleGuard(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}
	var request guardRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	verdict, err := h.ai.GuardEmotion(c.Request.Context(), request.Text, request.Persona)
	if err != nil {
		h.logger.Warn("guard endpoint degraded to pass-through", zap.Error(err))
		verdict = ai.GuardVerdict{}
	}
	c.JSON(http.StatusOK, guardResponsePayload{
		IsAggressive:    verdict.IsAggressive,
		AggressionType:  verdict.AggressionType,
		AggressionScore: verdict.AggressionScore,
		SuggestedText:   verdict.SuggestedText,
		Warning:         verdict.Warning,
	})
}

type transformRequestPayload struct {
	Text         string  `json:"text"`
	Formality    float64 `json:"formality"`
	Relationship string  `json:"relationship"`
	Persona      string  `json:"persona"`
}

type transformResponsePayload struct {
	OriginalText     string  `json:"originalText"`
	TransformedText  string  `json:"transformedText"`
	AppliedPersona   string  `json:"appliedPersona"`
	FormalityScore   float64 `json:"formalityScore"`
	ShouldSuggest    bool    `json:"shouldSuggest"`
	SuggestionReason string  `json:"suggestionReason"`
}

func (h *httpHandler) handleTransform(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}
	var request transformRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	result, err := h.ai.TransformText(c.Request.Context(), request.Text, request.Formality, request.Relationship, request.Persona)
	if err != nil {
		h.logger.Warn("transform endpoint degraded to pass-through", zap.Error(err))
		result = ai.TransformResult{
			OriginalText:    request.Text,
			TransformedText: request.Text,
			AppliedPersona:  request.Persona,
			FormalityScore:  request.Formality,
		}
	}
	c.JSON(http.StatusOK, transformResponsePayload{
		OriginalText:     result.OriginalText,
		TransformedText:  result.TransformedText,
		AppliedPersona:   result.AppliedPersona,
		FormalityScore:   result.FormalityScore,
		ShouldSuggest:    result.ShouldSuggest,
		SuggestionReason: result.SuggestionReason,
	})
}

type suggestHistoryPayload struct {
	Mine    bool   `json:"mine"`
	Content string `json:"content"`
}

type suggestRequestPayload struct {
	Message      string                  `json:"message"`
	Relationship string                  `json:"relationship"`
	Formality    *float64                `json:"formality"`
	Persona      string                  `json:"persona"`
	History      []suggestHistoryPayload `json:"history"`
}

type suggestResponsePayload struct {
	Emotion      string              `json:"emotion"`
	EmotionScore float64             `json:"emotionScore"`
	Emojis       []string            `json:"suggestedEmojis"`
	Replies      []ai.SuggestedReply `json:"suggestedTexts"`
	QuickReplies []ai.QuickReply     `json:"quickResponses"`
}

func (h *httpHandler) handleSuggestReactions(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}
	var request suggestRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	history := make([]ai.HistoryMessage, 0, len(request.History))
	for _, entry := range request.History {
		history = append(history, ai.HistoryMessage{Mine: entry.Mine, Content: entry.Content})
	}
	suggestion := h.ai.SuggestReactions(c.Request.Context(), ai.SuggestInput{
		Message:      request.Message,
		Relationship: request.Relationship,
		Formality:    request.Formality,
		Persona:      request.Persona,
		History:      history,
	})
	c.JSON(http.StatusOK, suggestResponsePayload{
		Emotion:      suggestion.Emotion,
		EmotionScore: suggestion.EmotionScore,
		Emojis:       suggestion.Emojis,
		Replies:      suggestion.Replies,
		QuickReplies: suggestion.QuickReplies,
	})
}
