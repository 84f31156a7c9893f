package companion

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Config assembles a session.
type Config struct {
	// Endpoint services all requests. Required.
	Endpoint Endpoint

	// RequestReselection is invoked (fire and forget) when a credential
	// error is classified. Optional.
	RequestReselection func()

	// Persona is the system instruction for text-mode requests. Defaults
	// to DefaultPersona.
	Persona string

	// Greeting, when non-empty, seeds the transcript with a display-only
	// companion turn that is never sent to the endpoint.
	Greeting string

	// AspectRatio for generated imagery. Defaults to DefaultAspectRatio.
	AspectRatio string
}

// Session owns one companion conversation: the transcript, the in-flight
// flag, and the recovery policy for endpoint failures. The transcript is
// held only in memory and is discarded on Close.
type Session struct {
	id          uuid.UUID
	endpoint    Endpoint
	reselect    func()
	persona     string
	aspectRatio string

	mu          sync.Mutex
	turns       []Turn
	pending     bool
	mode        Mode
	closed      bool
	subscribers map[int]chan []Turn
	nextSubID   int
}

// NewSession creates a session. The greeting, if configured, is the first
// transcript turn.
func NewSession(cfg Config) *Session {
	if cfg.Persona == "" {
		cfg.Persona = DefaultPersona
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = DefaultAspectRatio
	}
	s := &Session{
		id:          uuid.New(),
		endpoint:    cfg.Endpoint,
		reselect:    cfg.RequestReselection,
		persona:     cfg.Persona,
		aspectRatio: cfg.AspectRatio,
		mode:        ModeText,
		subscribers: make(map[int]chan []Turn),
	}
	if cfg.Greeting != "" {
		s.turns = append(s.turns, Turn{Speaker: SpeakerCompanion, Text: cfg.Greeting})
	}
	return s
}

// ID returns the session's identity.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Pending reports whether a submission is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Mode returns the mode chosen for the most recent submission.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// MarkLive records whether a live voice connection currently services the
// session, so mode accessors reflect hands-free use between submissions.
func (s *Session) MarkLive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.mode = ModeLive
	} else if s.mode == ModeLive {
		s.mode = ModeText
	}
}

// Transcript returns a snapshot copy for rendering. Callers never see
// partial streaming text; only committed turns appear.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Subscribe registers for a transcript snapshot after every committed
// change. Slow subscribers miss intermediate snapshots rather than block
// the session. The returned cancel func releases the subscription.
func (s *Session) Subscribe() (<-chan []Turn, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan []Turn, 8)
	s.subscribers[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

func (s *Session) notifyLocked() {
	snapshot := s.snapshotLocked()
	for id, ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			slog.Debug("Dropping transcript update for slow subscriber",
				"sessionID", s.id,
				"subscriber", id)
		}
	}
}

// Submit services one user utterance: appends the user turn, dispatches the
// request in the selected mode, and commits exactly one companion turn
// whatever happens. Returns ErrBusy without touching the transcript if a
// prior submission is still in flight.
func (s *Session) Submit(ctx context.Context, utterance string) error {
	mode, payload, err := s.begin(utterance)
	if err != nil {
		return err
	}
	s.resolve(ctx, mode, payload)
	return nil
}

// SubmitAsync validates the utterance and appends the user turn
// synchronously, then resolves the endpoint round trip in the background.
// The committed companion turn is observable via Transcript or Subscribe.
func (s *Session) SubmitAsync(utterance string) error {
	mode, payload, err := s.begin(utterance)
	if err != nil {
		return err
	}
	go s.resolve(context.Background(), mode, payload)
	return nil
}

// begin performs the synchronous half of a submission: validation, the
// busy guard, the optimistic user turn, and payload construction.
func (s *Session) begin(utterance string) (Mode, []PayloadTurn, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return ModeText, nil, ErrEmptyUtterance
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ModeText, nil, ErrSessionClosed
	}
	if s.pending {
		s.mu.Unlock()
		slog.Debug("Ignoring submission while request in flight", "sessionID", s.id)
		return ModeText, nil, ErrBusy
	}
	mode := SelectMode(utterance)
	s.pending = true
	s.mode = mode
	s.turns = append(s.turns, Turn{Speaker: SpeakerUser, Text: utterance})
	payload := BuildPayload(s.turns)
	s.notifyLocked()
	s.mu.Unlock()

	slog.Debug("Submitting utterance",
		"sessionID", s.id,
		"mode", mode,
		"payloadTurns", len(payload))
	return mode, payload, nil
}

func (s *Session) resolve(ctx context.Context, mode Mode, payload []PayloadTurn) {
	s.commit(s.dispatch(ctx, mode, payload))
}

// dispatch performs the endpoint round trip and normalizes the outcome
// into the single companion turn that will be committed.
func (s *Session) dispatch(ctx context.Context, mode Mode, payload []PayloadTurn) Turn {
	switch mode {
	case ModeImage:
		img, err := s.endpoint.GenerateImage(ctx, payload, s.aspectRatio)
		if err != nil {
			return s.failureTurn(err)
		}
		turn := Turn{Speaker: SpeakerCompanion, Text: fallbackImageText}
		if img != nil {
			if img.Caption != "" {
				turn.Text = img.Caption
			}
			turn.Image = img.Data
			turn.ImageMIME = img.MIMEType
		}
		return turn

	default:
		reply, err := s.generateReply(ctx, payload)
		if err != nil {
			return s.failureTurn(err)
		}
		turn := Turn{Speaker: SpeakerCompanion, Text: fallbackReplyText}
		if reply != nil {
			if reply.Text != "" {
				turn.Text = reply.Text
			}
			turn.Citations = dedupeCitations(reply.Citations)
		}
		return turn
	}
}

// generateReply prefers the streaming path when the adapter offers one.
// Partial text stays in a local buffer until the stream ends.
func (s *Session) generateReply(ctx context.Context, payload []PayloadTurn) (*Reply, error) {
	if streamer, ok := s.endpoint.(StreamingEndpoint); ok {
		var buffered string
		reply, err := streamer.StreamReply(ctx, payload, s.persona, func(text string) {
			buffered += text
		})
		if err != nil {
			return nil, err
		}
		if reply != nil && reply.Text == "" && buffered != "" {
			reply.Text = buffered
		}
		return reply, nil
	}
	return s.endpoint.GenerateReply(ctx, payload, s.persona)
}

func (s *Session) failureTurn(err error) Turn {
	kind := ClassifyError(err)
	slog.Error("Endpoint request failed",
		"sessionID", s.id,
		"kind", kind,
		"error", err)
	if kind == ErrorCredential {
		if s.reselect != nil {
			s.reselect()
		}
		return Turn{Speaker: SpeakerCompanion, Text: credentialTrouble}
	}
	return Turn{Speaker: SpeakerCompanion, Text: technicalHiccup}
}

// commit appends the companion turn and clears pending. If the session was
// closed while the request was in flight the result is discarded, but the
// pending flag is still cleared.
func (s *Session) commit(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	if s.closed {
		slog.Debug("Discarding result for closed session", "sessionID", s.id)
		return
	}
	s.turns = append(s.turns, turn)
	s.notifyLocked()
}

// Close discards the transcript and releases subscribers. Any in-flight
// submission resolves without mutating the transcript.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.turns = nil
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	slog.Debug("Session closed", "sessionID", s.id)
}

func dedupeCitations(in []Citation) []Citation {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]Citation, 0, len(in))
	for _, c := range in {
		if c.URI == "" || seen[c.URI] {
			continue
		}
		seen[c.URI] = true
		if c.Title == "" {
			c.Title = c.URI
		}
		out = append(out, c)
	}
	return out
}
