package companion

import "strings"

// visualIntent is the fixed vocabulary that routes a submission to image
// generation. Matching is case-insensitive and decided per call.
var visualIntent = []string{
	"generate",
	"image",
	"picture",
	"photo",
	"show me",
	"look like",
	"visual",
}

// SelectMode decides how a single utterance is serviced.
func SelectMode(utterance string) Mode {
	lc := strings.ToLower(utterance)
	for _, marker := range visualIntent {
		if strings.Contains(lc, marker) {
			return ModeImage
		}
	}
	return ModeText
}

// BuildPayload converts the stored transcript into the outbound request.
// The endpoint requires the first entry to carry the user role, so a
// leading companion turn (the synthetic greeting) is dropped by position
// and speaker. All request modes go through this one builder.
func BuildPayload(turns []Turn) []PayloadTurn {
	payload := make([]PayloadTurn, 0, len(turns))
	for i, t := range turns {
		if i == 0 && t.Speaker == SpeakerCompanion {
			continue
		}
		payload = append(payload, PayloadTurn{Role: t.Speaker, Text: t.Text})
	}
	return payload
}
