package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/farmandfork/evelyn/companion"
)

func TestToContentsMapsRoles(t *testing.T) {
	contents := toContents([]companion.PayloadTurn{
		{Role: companion.SpeakerUser, Text: "hello"},
		{Role: companion.SpeakerCompanion, Text: "hi"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
}

func TestExtractCitations(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				GroundingMetadata: &genai.GroundingMetadata{
					GroundingChunks: []*genai.GroundingChunk{
						{Web: &genai.GroundingChunkWeb{URI: "https://a.example", Title: "A"}},
						{Web: nil},
						{Web: &genai.GroundingChunkWeb{URI: "https://b.example"}},
					},
				},
			},
		},
	}

	cites := extractCitations(resp)
	require.Len(t, cites, 2)
	assert.Equal(t, "https://a.example", cites[0].URI)
	assert.Equal(t, "A", cites[0].Title)
	assert.Empty(t, cites[1].Title)
}

func TestMissingCredentialFailsBeforeDialing(t *testing.T) {
	c := New(Config{}, func() string { return "" })

	_, err := c.GenerateReply(context.Background(), nil, "persona")
	require.ErrorIs(t, err, ErrNoCredential)
	assert.Equal(t, companion.ErrorCredential, companion.ClassifyError(err))

	_, err = c.GenerateImage(context.Background(), nil, "16:9")
	require.ErrorIs(t, err, ErrNoCredential)
}
