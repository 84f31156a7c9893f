// Package server exposes companion sessions to the presentation layer over
// HTTP and websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/farmandfork/evelyn/companion"
)

// Config for the HTTP surface.
type Config struct {
	// HTTPAddr to listen on.
	HTTPAddr string

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string

	// NewSession builds a fresh companion session per create request.
	NewSession func() *companion.Session
}

// Server owns the session registry and the HTTP/websocket handlers.
type Server struct {
	config   Config
	sessions *SessionList
	server   *http.Server
	upgrader websocket.Upgrader
}

func New(cfg Config) *Server {
	s := &Server{
		config:   cfg,
		sessions: NewSessionList(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // TODO: restrict to the app origin once it is fixed
			},
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/sessions", s.handleCreateSession).Methods("POST")
	router.HandleFunc("/api/sessions", s.handleListSessions).Methods("GET")
	router.HandleFunc("/api/sessions/{sessionID}", s.handleGetSession).Methods("GET")
	router.HandleFunc("/api/sessions/{sessionID}", s.handleDeleteSession).Methods("DELETE")
	router.HandleFunc("/api/sessions/{sessionID}/messages", s.handleSubmit).Methods("POST")
	router.HandleFunc("/api/sessions/{sessionID}/transcript", s.handleTranscript).Methods("GET")
	router.HandleFunc("/ws/{sessionID}", s.handleWebSocket)

	s.server = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	return s
}

// Start serves until ctx is done, then shuts down gracefully and closes
// every remaining session (transcripts are discarded, never persisted).
func (s *Server) Start(ctx context.Context) error {
	go func() {
		var err error
		if s.config.CertFile != "" && s.config.KeyFile != "" {
			err = s.server.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	slog.Info("Companion API listening", "addr", s.config.HTTPAddr)

	<-ctx.Done()
	s.sessions.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type sessionStatus struct {
	ID      string         `json:"id"`
	Pending bool           `json:"pending"`
	Mode    companion.Mode `json:"mode"`
	Turns   int            `json:"turns"`
}

func statusOf(sess *companion.Session) sessionStatus {
	return sessionStatus{
		ID:      sess.ID().String(),
		Pending: sess.Pending(),
		Mode:    sess.Mode(),
		Turns:   len(sess.Transcript()),
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.config.NewSession()
	s.sessions.Add(sess)
	slog.Info("Session created", "sessionID", sess.ID())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(statusOf(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	all := s.sessions.All()
	statuses := make([]sessionStatus, 0, len(all))
	for _, sess := range all {
		statuses = append(statuses, statusOf(sess))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*companion.Session, bool) {
	id, err := uuid.Parse(mux.Vars(r)["sessionID"])
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return nil, false
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusOf(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["sessionID"])
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}
	sess, ok := s.sessions.Remove(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	sess.Close()
	slog.Info("Session destroyed", "sessionID", id)
	w.WriteHeader(http.StatusNoContent)
}

type submitRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The endpoint round trip runs in the background; clients observe the
	// companion turn via the transcript endpoint or the websocket push.
	err := sess.SubmitAsync(req.Text)
	switch {
	case errors.Is(err, companion.ErrEmptyUtterance):
		http.Error(w, "Message text is empty", http.StatusBadRequest)
		return
	case errors.Is(err, companion.ErrBusy):
		http.Error(w, "A request is already in flight", http.StatusConflict)
		return
	case errors.Is(err, companion.ErrSessionClosed):
		http.Error(w, "Session is closed", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(statusOf(sess))
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sess.Transcript()); err != nil {
		slog.Error("Failed to encode transcript",
			"error", err,
			"sessionID", sess.ID())
	}
}
