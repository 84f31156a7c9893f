// Package gemini adapts the hosted generative-language API to the
// companion.Endpoint contract.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/farmandfork/evelyn/companion"
)

// Default model routing. Text replies carry search grounding; the image
// model returns inline image data alongside caption text.
const (
	DefaultTextModel  = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-2.5-flash-image"
	DefaultLiveModel  = "gemini-live-2.5-flash-preview"
	DefaultVoice      = "Zephyr"
)

// ErrNoCredential is raised locally before any network call when no API
// key is configured. Its text carries the vendor's own marker so the
// session classifies it as a credential error.
var ErrNoCredential = errors.New("API_KEY_INVALID: no API key configured")

// Config for the adapter.
type Config struct {
	TextModel  string
	ImageModel string
	LiveModel  string
	Voice      string
}

func (c *Config) applyDefaults() {
	if c.TextModel == "" {
		c.TextModel = DefaultTextModel
	}
	if c.ImageModel == "" {
		c.ImageModel = DefaultImageModel
	}
	if c.LiveModel == "" {
		c.LiveModel = DefaultLiveModel
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
}

// Client implements companion.Endpoint. The credential is resolved per
// request so an out-of-band reselection takes effect on the next call
// without rebuilding the session.
type Client struct {
	cfg        Config
	credential func() string
}

// New builds an adapter. credential returns the current API key and is
// consulted on every request.
func New(cfg Config, credential func() string) *Client {
	cfg.applyDefaults()
	return &Client{cfg: cfg, credential: credential}
}

func (c *Client) connect(ctx context.Context) (*genai.Client, error) {
	key := c.credential()
	if key == "" {
		return nil, ErrNoCredential
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

func toContents(turns []companion.PayloadTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var role genai.Role = genai.RoleUser
		if t.Role == companion.SpeakerCompanion {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return contents
}

// GenerateReply performs a text-mode round trip with search grounding.
func (c *Client) GenerateReply(ctx context.Context, turns []companion.PayloadTurn, systemInstruction string) (*companion.Reply, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateContent(ctx, c.cfg.TextModel, toContents(turns), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	return normalizeReply(resp), nil
}

// StreamReply streams the same request, delivering partial text through
// onDelta and the assembled reply at stream end.
func (c *Client) StreamReply(ctx context.Context, turns []companion.PayloadTurn, systemInstruction string, onDelta func(text string)) (*companion.Reply, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	reply := &companion.Reply{}
	for resp, err := range client.Models.GenerateContentStream(ctx, c.cfg.TextModel, toContents(turns), config) {
		if err != nil {
			return nil, fmt.Errorf("stream content: %w", err)
		}
		if text := resp.Text(); text != "" {
			reply.Text += text
			onDelta(text)
		}
		reply.Citations = append(reply.Citations, extractCitations(resp)...)
	}
	return reply, nil
}

// GenerateImage performs an image-mode round trip. Grounding is omitted;
// the fixed aspect ratio is requested from the image model.
func (c *Client) GenerateImage(ctx context.Context, turns []companion.PayloadTurn, aspectRatio string) (*companion.Image, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateContent(ctx, c.cfg.ImageModel, toContents(turns), &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: aspectRatio},
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	img := &companion.Image{}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(img.Data) == 0 {
				img.Data = part.InlineData.Data
				img.MIMEType = part.InlineData.MIMEType
			}
			if part.Text != "" && img.Caption == "" {
				img.Caption = part.Text
			}
		}
		break
	}
	if len(img.Data) == 0 {
		slog.Warn("Image response carried no inline data", "model", c.cfg.ImageModel)
	}
	return img, nil
}

func normalizeReply(resp *genai.GenerateContentResponse) *companion.Reply {
	return &companion.Reply{
		Text:      resp.Text(),
		Citations: extractCitations(resp),
	}
}

func extractCitations(resp *genai.GenerateContentResponse) []companion.Citation {
	var cites []companion.Citation
	for _, cand := range resp.Candidates {
		if cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			cites = append(cites, companion.Citation{
				URI:   chunk.Web.URI,
				Title: chunk.Web.Title,
			})
		}
	}
	return cites
}
