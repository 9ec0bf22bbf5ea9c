package persona

import "testing"

func TestScoreTable(t *testing.T) {
	cases := []struct {
		label string
		score float64
		known bool
	}{
		{VeryFormal, 90, true},
		{Formal, 70, true},
		{CasualPolite, 50, true},
		{Casual, 30, true},
		{VeryCasual, 10, true},
		{"", 50, true},
		{"xyz", 50, false},
	}
	for _, tc := range cases {
		score, known := Score(tc.label)
		if score != tc.score || known != tc.known {
			t.Fatalf("Score(%q) = %v, %v; expected %v, %v", tc.label, score, known, tc.score, tc.known)
		}
	}
}

func TestFromScoreBuckets(t *testing.T) {
	cases := []struct {
		score float64
		label string
	}{
		{95, VeryFormal},
		{80, VeryFormal},
		{60, Formal},
		{40, CasualPolite},
		{20, Casual},
		{5, VeryCasual},
	}
	for _, tc := range cases {
		if got := FromScore(tc.score); got != tc.label {
			t.Fatalf("FromScore(%v) = %q, expected %q", tc.score, got, tc.label)
		}
	}
}

func TestRoomLabelBuckets(t *testing.T) {
	cases := []struct {
		score float64
		label string
	}{
		{85, RoomFormal},
		{80, RoomFormal},
		{55, RoomInformal},
		{50, RoomInformal},
		{20, RoomCasual},
	}
	for _, tc := range cases {
		if got := RoomLabel(tc.score); got != tc.label {
			t.Fatalf("RoomLabel(%v) = %q, expected %q", tc.score, got, tc.label)
		}
	}
}

func TestRoomLabelScoreRoundTrip(t *testing.T) {
	cases := []struct {
		label string
		score float64
	}{
		{RoomFormal, 70},
		{RoomInformal, 50},
		{RoomCasual, 30},
		{"unset", 50},
	}
	for _, tc := range cases {
		if got := RoomLabelScore(tc.label); got != tc.score {
			t.Fatalf("RoomLabelScore(%q) = %v, expected %v", tc.label, got, tc.score)
		}
	}
}

func TestGuideIsStable(t *testing.T) {
	for _, label := range []string{VeryFormal, Formal, CasualPolite, Casual, VeryCasual, "unknown"} {
		first := Guide(label)
		if first == "" {
			t.Fatalf("expected non-empty guide for %q", label)
		}
		if second := Guide(label); second != first {
			t.Fatalf("guide for %q not deterministic", label)
		}
	}
}
