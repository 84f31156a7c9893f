package companion

import "context"

// Reply is a normalized text-mode response from the inference endpoint.
type Reply struct {
	Text      string
	Citations []Citation
}

// Image is a normalized image-mode response.
type Image struct {
	Data     []byte
	MIMEType string
	Caption  string
}

// VoiceConfig shapes a live duplex audio channel.
type VoiceConfig struct {
	SystemInstruction string
	Voice             string
	InputSampleRate   int
	OutputSampleRate  int
}

// VoiceCallbacks are invoked by the endpoint adapter as the live channel
// progresses. All callbacks may fire from the adapter's receive goroutine.
type VoiceCallbacks struct {
	OnOpen       func()
	OnAudioFrame func(pcm []byte)
	OnInterrupt  func()
	OnClose      func()
	OnError      func(err error)
}

// VoiceChannel is an open duplex audio channel. Send pushes one encoded
// input frame; it must not block on playback of prior frames.
type VoiceChannel interface {
	Send(frame []byte) error
	Close() error
}

// Endpoint is the inference service the session manager talks to. The
// transcript passed in has already had the display-only greeting filtered
// out, so its first entry carries the user role.
type Endpoint interface {
	GenerateReply(ctx context.Context, turns []PayloadTurn, systemInstruction string) (*Reply, error)
	GenerateImage(ctx context.Context, turns []PayloadTurn, aspectRatio string) (*Image, error)
	OpenVoiceChannel(ctx context.Context, cfg VoiceConfig, cb VoiceCallbacks) (VoiceChannel, error)
}

// StreamingEndpoint is an optional extension: adapters that can stream a
// text reply deliver partial text through onDelta. Partial text is never
// committed to the transcript; the session only appends the final Reply.
type StreamingEndpoint interface {
	StreamReply(ctx context.Context, turns []PayloadTurn, systemInstruction string, onDelta func(text string)) (*Reply, error)
}
