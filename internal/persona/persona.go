// Package persona maps persona labels to formality scores and tone guides.
// Every function here is a pure lookup over fixed tables; callers decide how
// to log unknown labels.
package persona

// Persona labels accepted by the mapper.
const (
	VeryFormal   = "very-formal"
	Formal       = "formal"
	CasualPolite = "casual-polite"
	Casual       = "casual"
	VeryCasual   = "very-casual"
)

// Room-level formality labels persisted on a chat room.
const (
	RoomFormal   = "formal"
	RoomInformal = "informal"
	RoomCasual   = "casual"
)

// DefaultScore is the formality applied when no persona is known.
const DefaultScore = 50.0

var scores = map[string]float64{
	VeryFormal:   90,
	Formal:       70,
	CasualPolite: 50,
	Casual:       30,
	VeryCasual:   10,
}

// Score converts a persona label to a formality score in [0,100]. The second
// return value reports whether the label was recognized; unknown or empty
// labels map to DefaultScore.
func Score(label string) (float64, bool) {
	if label == "" {
		return DefaultScore, true
	}
	if score, ok := scores[label]; ok {
		return score, true
	}
	return DefaultScore, false
}

// FromScore picks the persona label that best matches a formality score.
func FromScore(score float64) string {
	switch {
	case score >= 80:
		return VeryFormal
	case score >= 60:
		return Formal
	case score >= 40:
		return CasualPolite
	case score >= 20:
		return Casual
	default:
		return VeryCasual
	}
}

// RoomLabel converts a numeric formality request value to the label persisted
// on a chat room.
func RoomLabel(score float64) string {
	switch {
	case score >= 80:
		return RoomFormal
	case score >= 50:
		return RoomInformal
	default:
		return RoomCasual
	}
}

// RoomLabelScore converts a persisted room formality label back to a numeric
// score. Unknown labels map to DefaultScore.
func RoomLabelScore(label string) float64 {
	switch label {
	case RoomFormal:
		return 70
	case RoomInformal:
		return 50
	case RoomCasual:
		return 30
	default:
		return DefaultScore
	}
}

var guides = map[string]string{
	VeryFormal: "- Use highly deferential, honorific phrasing\n" +
		"- The register used toward executives, clients and seniors\n" +
		"- Humble and courteous expressions throughout",
	Formal: "- Use polite, businesslike phrasing\n" +
		"- The register of official meetings and work messages\n" +
		"- Courteous but direct expressions",
	CasualPolite: "- Use friendly but respectful phrasing\n" +
		"- The relaxed politeness used with colleagues and acquaintances\n" +
		"- Soft, approachable expressions",
	Casual: "- Use plain, informal phrasing\n" +
		"- The register of everyday chats between friends\n" +
		"- Natural, familiar expressions",
	VeryCasual: "- Use very loose, familiar phrasing with slang and abbreviations\n" +
		"- The register of close friends\n" +
		"- Short clipped replies and emoticon-like fragments are fine",
}

// Guide returns the fixed tone guide steering the text collaborator for a
// persona label. Unknown labels get a neutral guide.
func Guide(label string) string {
	if guide, ok := guides[label]; ok {
		return guide
	}
	return "- Use a tone appropriate to the situation"
}
