package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/internal/service/engine"
	"github.com/sandevgo/govorun/pkg/log"
)

// Server exposes the pull-style dialogue API: a client pushes phrases
// and polls for queued replies.
type Server struct {
	srv      *http.Server
	sessions *dialog.Registry
	engine   *engine.Engine
}

func NewServer(cfg *config.HTTPConfig, sessions *dialog.Registry, eng *engine.Engine) *Server {
	s := &Server{
		sessions: sessions,
		engine:   eng,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /start_conversation", s.handleStartConversation)
	mux.HandleFunc("GET /push_phrase", s.handlePushPhrase)
	mux.HandleFunc("GET /pop_phrase", s.handlePopPhrase)

	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.srv.Addr).Msg("starting http api")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userParam(r)
	session := s.sessions.Get(user)

	// An explicit opening phrase overrides the greeting scenario.
	if phrase := r.URL.Query().Get("phrase"); phrase != "" {
		session.Lock()
		session.History.AddBot(phrase, "")
		session.Unlock()
		writeJSON(w, map[string]any{"processed": true})
		return
	}

	if _, err := s.engine.StartGreetingScenario(ctx, session); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("interlocutor", user).Msg("greeting failed")
		writeJSON(w, map[string]any{"processed": false})
		return
	}
	writeJSON(w, map[string]any{"processed": true})
}

func (s *Server) handlePushPhrase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userParam(r)

	phrase := r.URL.Query().Get("phrase")
	if phrase == "" {
		http.Error(w, "missing phrase", http.StatusBadRequest)
		return
	}

	session := s.sessions.Get(user)
	session.Lock()
	session.History.AddHuman(phrase)
	session.Unlock()

	if _, err := s.engine.ProcessHumanMessage(ctx, session); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("interlocutor", user).Msg("turn failed")
		writeJSON(w, map[string]any{"processed": false})
		return
	}
	writeJSON(w, map[string]any{"processed": true})
}

func (s *Server) handlePopPhrase(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	session := s.sessions.Get(user)

	session.Lock()
	reply := session.History.PopReply()
	session.Unlock()

	writeJSON(w, map[string]any{"reply": reply})
}

func userParam(r *http.Request) string {
	if user := r.URL.Query().Get("user"); user != "" {
		return user
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
