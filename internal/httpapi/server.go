package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Vijaykv5/Intereractive-GD/internal/config"
	"github.com/Vijaykv5/Intereractive-GD/internal/discussion"
	"github.com/Vijaykv5/Intereractive-GD/internal/observability"
	"github.com/Vijaykv5/Intereractive-GD/internal/policy"
	"github.com/Vijaykv5/Intereractive-GD/internal/protocol"
	"github.com/Vijaykv5/Intereractive-GD/internal/session"
	"github.com/Vijaykv5/Intereractive-GD/internal/topics"
	"github.com/Vijaykv5/Intereractive-GD/internal/transcripts"
)

type Orchestrator interface {
	RunSession(ctx context.Context, s *session.Session, capture discussion.CapturePort, player discussion.Player, inbound <-chan any, outbound chan<- any)
}

type Server struct {
	cfg           config.Config
	sessions      *session.Manager
	orchestrator  Orchestrator
	speechStore   transcripts.Store
	speechLogMode string
	metrics       *observability.Metrics
	upgrader      websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, orchestrator Orchestrator, speechStore transcripts.Store, speechLogMode string, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:           cfg,
		sessions:      sessions,
		orchestrator:  orchestrator,
		speechStore:   speechStore,
		speechLogMode: speechLogMode,
		metrics:       metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same origin
				// unless explicitly opened up; another site must not be able to
				// drive the user's mic session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/discussion/session", s.handleCreateSession)
	r.Post("/v1/discussion/session/{id}/end", s.handleEndSession)
	r.Get("/v1/discussion/session/ws", s.handleSessionWS)
	r.Get("/v1/discussion/topics", s.handleListTopics)

	r.Post("/api/user/speech", s.handleLogSpeech)
	r.Get("/api/user/speech", s.handleRecentSpeech)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"speech_log_mode": s.speechLogMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"speech_log_mode": s.speechLogMode,
	})
}

func (s *Server) handleListTopics(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"topics": topics.Catalogue})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
	if strings.TrimSpace(req.Topic) == "" {
		req.Topic = topics.Random()
	}

	sess := s.sessions.Create(req.UserID, req.Topic)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:        sess.ID,
		UserID:           sess.UserID,
		Topic:            sess.Topic,
		Status:           sess.Status,
		StartedAt:        sess.StartedAt,
		LastActivityAt:   sess.LastActivityAt,
		GracePeriodMS:    s.cfg.GracePeriod.Milliseconds(),
		InterTurnPauseMS: s.cfg.InterTurnPause.Milliseconds(),
		InactivityTTLMS:  s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if s.orchestrator == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "orchestrator not configured")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 256)
	outbound := make(chan any, 256)
	capture := discussion.NewWSCapturePort(sessionID, outbound)
	player := discussion.NewWSPlayer(sessionID, outbound)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		s.orchestrator.RunSession(ctx, sess, capture, player, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
				// Keep websocket writes single-threaded; drop if the outbound
				// queue is saturated.
				s.metrics.WSMessages.WithLabelValues("outbound", "dropped").Inc()
			}
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		switch m := parsed.(type) {
		case protocol.CaptureEvent:
			capture.Deliver(m)
		case protocol.PlaybackEvent:
			player.Deliver(m)
		default:
			select {
			case <-ctx.Done():
				break readLoop
			case inbound <- parsed:
			}
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

type speechLogRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Topic     string `json:"topic"`
	ModelUsed string `json:"model_used"`
}

func (s *Server) handleLogSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechLogRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	redacted, changed := policy.RedactPII(req.Text)
	rec := transcripts.Record{
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Role:        "user",
		Text:        redacted,
		Topic:       req.Topic,
		ModelUsed:   req.ModelUsed,
		PIIRedacted: changed,
	}
	if err := s.speechStore.LogSpeech(r.Context(), rec); err != nil {
		respondError(w, http.StatusBadGateway, "speech_log_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"status": "logged", "pii_redacted": changed})
}

func (s *Server) handleRecentSpeech(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "query parameter user_id is required")
		return
	}

	records, err := s.speechStore.Recent(r.Context(), userID, 20)
	if err != nil {
		if errors.Is(err, transcripts.ErrUnsupported) {
			respondError(w, http.StatusNotImplemented, "unsupported", "configured speech log store cannot be read back")
			return
		}
		respondError(w, http.StatusBadGateway, "speech_log_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": records})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientControl:
		return m.Type, true
	case protocol.CaptureEvent:
		return m.Type, true
	case protocol.PlaybackEvent:
		return m.Type, true
	case protocol.DiscussionState:
		return m.Type, true
	case protocol.CaptureCommand:
		return m.Type, true
	case protocol.AgentUtterance:
		return m.Type, true
	case protocol.PlayAudio:
		return m.Type, true
	case protocol.SpeakText:
		return m.Type, true
	case protocol.PlaybackCancel:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
