package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/farmandfork/evelyn/audio"
	"github.com/farmandfork/evelyn/companion"
)

// State of a voice connection.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrAlreadyOpen is returned when Open is called on a connection that is
// not closed.
var ErrAlreadyOpen = errors.New("voice connection already open")

// ErrConnectAborted is returned by Open when Close lands while the dial
// is still in flight.
var ErrConnectAborted = errors.New("voice connection closed while connecting")

// Source produces encoded microphone frames. Start must not block; frames
// arrive on the hardware callback.
type Source interface {
	Start(onFrame func(pcm []byte)) error
	Stop() error
}

// SegmentWriter archives a finished stretch of synthesized speech.
type SegmentWriter interface {
	Archive(sessionID string, pcm []byte, ts time.Time)
}

// Config assembles a voice connection.
type Config struct {
	Endpoint          companion.Endpoint
	SystemInstruction string
	Voice             string
	SessionID         string

	Source Source
	Sink   Sink
	Clock  Clock

	// RequestReselection fires on channel errors, which are most commonly
	// authorization failures.
	RequestReselection func()

	// Recorder, when set, receives each finished speech segment.
	Recorder SegmentWriter
}

// Connection is a bidirectional audio session with the inference endpoint:
// microphone frames stream up, synthesized speech streams down into a
// gapless playback queue. It owns the microphone and playback resources
// for its open lifetime and releases them on Close.
type Connection struct {
	cfg       Config
	scheduler *Scheduler

	mu           sync.Mutex
	state        State
	channel      companion.VoiceChannel
	segment      []byte
	segmentStart time.Time
}

func NewConnection(cfg Config) *Connection {
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = companion.DefaultVoicePersona
	}
	return &Connection{
		cfg:       cfg,
		scheduler: NewScheduler(cfg.Clock, cfg.Sink, audio.OutputSampleRate),
	}
}

// State returns the connection state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open acquires the microphone and dials the duplex channel. Input frames
// start streaming once the channel reports open.
func (c *Connection) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.state = StateConnecting
	c.mu.Unlock()

	slog.Debug("Opening voice channel", "sessionID", c.cfg.SessionID)

	channel, err := c.cfg.Endpoint.OpenVoiceChannel(ctx, companion.VoiceConfig{
		SystemInstruction: c.cfg.SystemInstruction,
		Voice:             c.cfg.Voice,
		InputSampleRate:   audio.InputSampleRate,
		OutputSampleRate:  audio.OutputSampleRate,
	}, companion.VoiceCallbacks{
		OnOpen:       c.handleOpen,
		OnAudioFrame: c.handleFrame,
		OnInterrupt:  c.handleInterrupt,
		OnClose:      c.handleRemoteClose,
		OnError:      c.handleError,
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		if c.cfg.RequestReselection != nil {
			c.cfg.RequestReselection()
		}
		return fmt.Errorf("failed to open voice channel: %w", err)
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Closed while dialing.
		c.mu.Unlock()
		channel.Close()
		return ErrConnectAborted
	}
	c.channel = channel
	c.mu.Unlock()
	return nil
}

func (c *Connection) handleOpen() {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateOpen
	channel := c.channel
	c.mu.Unlock()

	slog.Info("Voice channel open", "sessionID", c.cfg.SessionID)

	if err := c.cfg.Source.Start(func(pcm []byte) {
		if c.State() != StateOpen {
			return
		}
		if err := channel.Send(pcm); err != nil {
			slog.Error("Failed to send audio frame", "error", err, "sessionID", c.cfg.SessionID)
		}
	}); err != nil {
		c.handleError(fmt.Errorf("failed to start microphone: %w", err))
	}
}

func (c *Connection) handleFrame(pcm []byte) {
	if err := c.scheduler.Enqueue(pcm); err != nil {
		slog.Error("Failed to schedule playback", "error", err, "sessionID", c.cfg.SessionID)
		return
	}
	c.mu.Lock()
	if len(c.segment) == 0 {
		c.segmentStart = time.Now()
	}
	c.segment = append(c.segment, pcm...)
	c.mu.Unlock()
}

// handleInterrupt models barge-in: the user spoke over playback, so queued
// audio is discarded immediately.
func (c *Connection) handleInterrupt() {
	slog.Debug("Playback interrupted by user speech", "sessionID", c.cfg.SessionID)
	c.scheduler.Flush()
	c.archiveSegment()
}

func (c *Connection) handleRemoteClose() {
	slog.Debug("Voice channel closed by server", "sessionID", c.cfg.SessionID)
	c.teardown(false)
}

func (c *Connection) handleError(err error) {
	slog.Error("Voice channel error", "error", err, "sessionID", c.cfg.SessionID)
	c.teardown(false)
	if c.cfg.RequestReselection != nil {
		c.cfg.RequestReselection()
	}
}

// Close tears the channel down and releases the microphone and playback
// resources.
func (c *Connection) Close() error {
	return c.teardown(true)
}

func (c *Connection) teardown(closeChannel bool) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	wasOpen := c.state == StateOpen
	c.state = StateClosed
	channel := c.channel
	c.channel = nil
	c.mu.Unlock()

	var err error
	if wasOpen {
		if stopErr := c.cfg.Source.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop microphone: %w", stopErr)
		}
	}
	c.scheduler.Flush()
	c.archiveSegment()
	if closeChannel && channel != nil {
		if closeErr := channel.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close voice channel: %w", closeErr)
		}
	}

	slog.Debug("Voice connection closed", "sessionID", c.cfg.SessionID)
	return err
}

func (c *Connection) archiveSegment() {
	c.mu.Lock()
	segment := c.segment
	start := c.segmentStart
	c.segment = nil
	c.mu.Unlock()

	if len(segment) == 0 || c.cfg.Recorder == nil {
		return
	}
	c.cfg.Recorder.Archive(c.cfg.SessionID, segment, start)
}
