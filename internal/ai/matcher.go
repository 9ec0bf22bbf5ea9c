package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RoomSummary is the room-side input of the matching contract.
type RoomSummary struct {
	ID           int64
	Name         string
	Formality    string
	Relationship string
}

// RoomMatch ranks how well a room fits a profile's persona.
type RoomMatch struct {
	RoomID   int64  `json:"chatRoomId"`
	RoomName string `json:"chatRoomName"`
	Score    int    `json:"matchScore"`
	Reason   string `json:"matchReason"`
}

type matchWire struct {
	ChatRoomID  int64  `json:"chatRoomId"`
	MatchScore  int    `json:"matchScore"`
	MatchReason string `json:"matchReason"`
}

// MatchRooms ranks the rooms against the profile persona. Whenever the
// collaborator errors or returns unparseable output, the deterministic local
// scorer takes over, so this never fails.
func (c *Client) MatchRooms(ctx context.Context, profileName, personaLabel string, rooms []RoomSummary) []RoomMatch {
	if len(rooms) == 0 {
		return nil
	}

	matches, err := c.matchViaCollaborator(ctx, profileName, personaLabel, rooms)
	if err != nil {
		c.logger.Warn("room matching collaborator unavailable, using fallback scorer", zap.Error(err))
		matches = FallbackMatches(personaLabel, rooms)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func (c *Client) matchViaCollaborator(ctx context.Context, profileName, personaLabel string, rooms []RoomSummary) ([]RoomMatch, error) {
	var roomInfo strings.Builder
	names := make(map[int64]string, len(rooms))
	for _, room := range rooms {
		names[room.ID] = room.Name
		formality := room.Formality
		if formality == "" {
			formality = "unset"
		}
		relationship := room.Relationship
		if relationship == "" {
			relationship = "unset"
		}
		fmt.Fprintf(&roomInfo, "- ID: %d, name: %s, formality: %s, relationship: %s\n",
			room.ID, room.Name, formality, relationship)
	}

	appliedPersona := personaLabel
	if appliedPersona == "" {
		appliedPersona = "unset"
	}

	system := "You evaluate how well chat rooms match a user profile and its persona."
	user := fmt.Sprintf(
		"Rank the following chat rooms for this profile and respond with a JSON array only.\n\n"+
			"Profile: %s (persona: %s)\n\n"+
			"Rooms:\n%s\n"+
			"JSON format:\n"+
			"[\n"+
			"  {\"chatRoomId\": 1, \"matchScore\": 85, \"matchReason\": \"why it fits\"},\n"+
			"  ...\n"+
			"]\n\n"+
			"matchScore is 0-100 and measures how well the room's formality and relationship fit the persona.",
		profileName, appliedPersona, roomInfo.String(),
	)

	raw, err := c.complete(ctx, system, user, 0.5, 700)
	if err != nil {
		return nil, err
	}

	var wire []matchWire
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &wire); err != nil {
		return nil, fmt.Errorf("ai: undecodable match ranking: %w", err)
	}

	matches := make([]RoomMatch, 0, len(wire))
	for _, entry := range wire {
		name, known := names[entry.ChatRoomID]
		if !known {
			continue
		}
		reason := entry.MatchReason
		if reason == "" {
			reason = "Fits the profile"
		}
		matches = append(matches, RoomMatch{
			RoomID:   entry.ChatRoomID,
			RoomName: name,
			Score:    entry.MatchScore,
			Reason:   reason,
		})
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("ai: match ranking contained no known rooms")
	}
	return matches, nil
}

// FallbackMatches is the deterministic local scorer: base 50, +30 when the
// persona and room formality lean the same way, +20 for superior-type
// relationships with a formal-leaning persona, capped at 100.
func FallbackMatches(personaLabel string, rooms []RoomSummary) []RoomMatch {
	matches := make([]RoomMatch, 0, len(rooms))
	for _, room := range rooms {
		score := 50
		if personaLabel != "" && room.Formality != "" {
			formalPair := strings.Contains(personaLabel, "formal") && strings.Contains(room.Formality, "formal")
			casualPair := strings.Contains(personaLabel, "casual") && strings.Contains(room.Formality, "casual")
			if formalPair || casualPair {
				score += 30
			}
		}
		if room.Relationship == relationshipBoss || room.Relationship == relationshipSenior {
			if strings.Contains(personaLabel, "formal") {
				score += 20
			}
		}
		if score > 100 {
			score = 100
		}
		matches = append(matches, RoomMatch{
			RoomID:   room.ID,
			RoomName: room.Name,
			Score:    score,
			Reason:   fallbackReason(personaLabel, room),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func fallbackReason(personaLabel string, room RoomSummary) string {
	switch room.Relationship {
	case relationshipBoss:
		return "Work profile, conversation with your boss"
	case relationshipSenior:
		return "Formal register, conversation with a senior"
	case "colleague":
		return "Conversation with a colleague"
	}
	if strings.Contains(personaLabel, "formal") {
		return "Suited to a formal profile"
	}
	return "Matches the profile's leanings"
}
