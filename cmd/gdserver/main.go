package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Vijaykv5/Intereractive-GD/internal/agents"
	"github.com/Vijaykv5/Intereractive-GD/internal/config"
	"github.com/Vijaykv5/Intereractive-GD/internal/discussion"
	"github.com/Vijaykv5/Intereractive-GD/internal/httpapi"
	"github.com/Vijaykv5/Intereractive-GD/internal/observability"
	"github.com/Vijaykv5/Intereractive-GD/internal/policy"
	"github.com/Vijaykv5/Intereractive-GD/internal/session"
	"github.com/Vijaykv5/Intereractive-GD/internal/transcripts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	speechStore, speechLogMode, err := transcripts.Open(ctx,
		strings.ToLower(strings.TrimSpace(cfg.SpeechLogMode)),
		cfg.DatabaseURL,
		cfg.SpeechLogURL,
	)
	if err != nil {
		log.Fatalf("speech log init failed: %v", err)
	}
	defer speechStore.Close()
	log.Printf("speech log: %s", speechLogMode)

	agentClient := agents.NewClient(cfg.AgentBaseURL, cfg.AgentRequestTimeout)
	log.Printf("agent backend: %s", cfg.AgentBaseURL)

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	orchestrator := discussion.NewOrchestrator(
		discussion.Config{
			GracePeriod:    cfg.GracePeriod,
			InterTurnPause: cfg.InterTurnPause,
			HistoryLimit:   cfg.HistoryLimit,
		},
		sessions,
		agentClient,
		speechAdapter{store: speechStore},
		metrics,
	)

	api := httpapi.New(cfg, sessions, orchestrator, speechStore, speechLogMode, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

// speechAdapter narrows the transcripts store to what the session loop
// needs, applying the same redaction as the HTTP endpoint.
type speechAdapter struct {
	store transcripts.Store
}

func (a speechAdapter) LogSpeech(ctx context.Context, rec discussion.SpeechRecord) error {
	redacted, changed := policy.RedactPII(rec.Text)
	return a.store.LogSpeech(ctx, transcripts.Record{
		UserID:      rec.UserID,
		Role:        string(rec.Role),
		Text:        redacted,
		Topic:       rec.Topic,
		ModelUsed:   rec.ModelUsed,
		PIIRedacted: changed,
	})
}
