package companion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectMode(t *testing.T) {
	cases := []struct {
		utterance string
		want      Mode
	}{
		{"show me the venue", ModeImage},
		{"SHOW ME the venue", ModeImage},
		{"Generate a picture of the chapel", ModeImage},
		{"what does the estate look like?", ModeImage},
		{"a visual of the terrace", ModeImage},
		{"what's the dress code", ModeText},
		{"when do shuttles run", ModeText},
		{"", ModeText},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SelectMode(tc.utterance), "utterance %q", tc.utterance)
	}
}

func TestSelectModeIgnoresHistory(t *testing.T) {
	// Mode is a per-call decision, not sticky.
	assert.Equal(t, ModeImage, SelectMode("show me the menu"))
	assert.Equal(t, ModeText, SelectMode("and what time is brunch"))
	assert.Equal(t, ModeImage, SelectMode("another photo please"))
}

func TestBuildPayloadFiltersLeadingGreeting(t *testing.T) {
	turns := []Turn{
		{Speaker: SpeakerCompanion, Text: "greeting"},
		{Speaker: SpeakerUser, Text: "hello"},
		{Speaker: SpeakerCompanion, Text: "hi there"},
		{Speaker: SpeakerUser, Text: "what's the schedule"},
	}

	payload := BuildPayload(turns)
	require.Len(t, payload, 3)
	assert.Equal(t, SpeakerUser, payload[0].Role)
	assert.Equal(t, "hello", payload[0].Text)
	assert.Equal(t, SpeakerCompanion, payload[1].Role)
	assert.Equal(t, SpeakerUser, payload[2].Role)
}

func TestBuildPayloadKeepsLeadingUserTurn(t *testing.T) {
	turns := []Turn{
		{Speaker: SpeakerUser, Text: "hello"},
	}
	payload := BuildPayload(turns)
	require.Len(t, payload, 1)
	assert.Equal(t, SpeakerUser, payload[0].Role)
}

func TestBuildPayloadOnlyDropsByPosition(t *testing.T) {
	// A companion turn later in the transcript is never filtered.
	turns := []Turn{
		{Speaker: SpeakerUser, Text: "hello"},
		{Speaker: SpeakerCompanion, Text: "hi"},
	}
	payload := BuildPayload(turns)
	require.Len(t, payload, 2)
}

func TestBuildPayloadGreetingOnly(t *testing.T) {
	turns := []Turn{{Speaker: SpeakerCompanion, Text: "greeting"}}
	assert.Empty(t, BuildPayload(turns))
}
