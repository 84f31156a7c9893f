package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"github.com/farmandfork/evelyn/companion"
)

// OpenVoiceChannel dials the live API with an audio-only response modality
// and pumps server messages into the supplied callbacks from a dedicated
// receive goroutine.
func (c *Client) OpenVoiceChannel(ctx context.Context, cfg companion.VoiceConfig, cb companion.VoiceCallbacks) (companion.VoiceChannel, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	voice := cfg.Voice
	if voice == "" {
		voice = c.cfg.Voice
	}

	session, err := client.Live.Connect(ctx, c.cfg.LiveModel, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction:  genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser),
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect live session: %w", err)
	}

	ch := &liveChannel{
		session:         session,
		inputSampleRate: cfg.InputSampleRate,
	}
	go ch.receive(cb)
	return ch, nil
}

type liveChannel struct {
	session         *genai.Session
	inputSampleRate int

	mu     sync.Mutex
	closed bool
}

// Send pushes one microphone frame upstream. Frames are fire and forget;
// a prior frame in flight never blocks the next one beyond the socket
// write itself.
func (ch *liveChannel) Send(frame []byte) error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return fmt.Errorf("live channel closed")
	}
	ch.mu.Unlock()

	return ch.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     frame,
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", ch.inputSampleRate),
		},
	})
}

func (ch *liveChannel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	ch.closed = true
	ch.mu.Unlock()
	return ch.session.Close()
}

func (ch *liveChannel) isClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

func (ch *liveChannel) receive(cb companion.VoiceCallbacks) {
	// The server reports readiness with a setup-complete message before
	// any audio flows.
	for {
		msg, err := ch.session.Receive()
		if err != nil {
			if ch.isClosed() {
				if cb.OnClose != nil {
					cb.OnClose()
				}
				return
			}
			slog.Error("Live session receive failed", "error", err)
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return
		}

		if msg.SetupComplete != nil && cb.OnOpen != nil {
			cb.OnOpen()
			continue
		}

		content := msg.ServerContent
		if content == nil {
			continue
		}
		if content.Interrupted && cb.OnInterrupt != nil {
			cb.OnInterrupt()
		}
		if content.ModelTurn != nil && cb.OnAudioFrame != nil {
			for _, part := range content.ModelTurn.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					cb.OnAudioFrame(part.InlineData.Data)
				}
			}
		}
	}
}
