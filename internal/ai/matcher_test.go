package ai

import "testing"

func TestFallbackMatchesScoring(t *testing.T) {
	rooms := []RoomSummary{
		{ID: 1, Name: "Team standup", Formality: "formal", Relationship: "boss"},
		{ID: 2, Name: "Lunch crew", Formality: "casual", Relationship: "friend"},
		{ID: 3, Name: "Project sync", Formality: "informal", Relationship: "colleague"},
	}

	matches := FallbackMatches("very-formal", rooms)
	if len(matches) != 3 {
		t.Fatalf("expected a match per room, got %d", len(matches))
	}

	byRoom := make(map[int64]RoomMatch, len(matches))
	for _, match := range matches {
		byRoom[match.RoomID] = match
	}

	// formal persona + formal room + boss relationship: 50 + 30 + 20 = 100.
	if byRoom[1].Score != 100 {
		t.Fatalf("expected formal/boss room to score 100, got %d", byRoom[1].Score)
	}
	// formal persona + casual room: base only.
	if byRoom[2].Score != 50 {
		t.Fatalf("expected casual room to score 50, got %d", byRoom[2].Score)
	}
	// informal room: no formality pair, colleague relationship: base only.
	if byRoom[3].Score != 50 {
		t.Fatalf("expected informal room to score 50, got %d", byRoom[3].Score)
	}

	// Sorted descending by score.
	if matches[0].RoomID != 1 {
		t.Fatalf("expected the best match first, got room %d", matches[0].RoomID)
	}
}

func TestFallbackMatchesCasualPair(t *testing.T) {
	rooms := []RoomSummary{{ID: 7, Name: "Gaming", Formality: "casual", Relationship: "friend"}}
	matches := FallbackMatches("casual-polite", rooms)
	if matches[0].Score != 80 {
		t.Fatalf("expected casual pair to score 80, got %d", matches[0].Score)
	}
}

func TestFallbackMatchesCapsAtHundred(t *testing.T) {
	rooms := []RoomSummary{{ID: 9, Name: "Board room", Formality: "formal", Relationship: "senior"}}
	matches := FallbackMatches("formal", rooms)
	if matches[0].Score != 100 {
		t.Fatalf("expected capped score of 100, got %d", matches[0].Score)
	}
}

func TestFallbackMatchesUnknownPersona(t *testing.T) {
	rooms := []RoomSummary{{ID: 4, Name: "Random", Formality: "formal", Relationship: "boss"}}
	matches := FallbackMatches("", rooms)
	if matches[0].Score != 50 {
		t.Fatalf("expected base score without a persona, got %d", matches[0].Score)
	}
}
