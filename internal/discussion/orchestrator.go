package discussion

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Vijaykv5/Intereractive-GD/internal/observability"
	"github.com/Vijaykv5/Intereractive-GD/internal/protocol"
	"github.com/Vijaykv5/Intereractive-GD/internal/reliability"
	"github.com/Vijaykv5/Intereractive-GD/internal/session"
)

// State is the turn-taking phase of one discussion session.
type State string

const (
	// StateDormant: session exists, discussion not started.
	StateDormant State = "dormant"
	// StateAwaitingGrace: opening turn requested, grace window running.
	StateAwaitingGrace State = "awaiting_grace"
	// StateAISpeaking: an agent reply is queued or playing.
	StateAISpeaking State = "ai_speaking"
	// StateListening: the human holds the floor, capture is live.
	StateListening State = "listening"
	// StateProcessingHuman: a human utterance is with agent one.
	StateProcessingHuman State = "processing_human"
	// StateAwaitingNextTurn: between agent turns, pause timer may run.
	StateAwaitingNextTurn State = "awaiting_next_turn"
	// StateError: a backend failure blocks progress until dismissed.
	StateError State = "error"
)

const outboundSendTimeout = 600 * time.Millisecond

// Config carries the turn-taking knobs.
type Config struct {
	GracePeriod    time.Duration
	InterTurnPause time.Duration
	HistoryLimit   int
}

// Orchestrator runs the turn-taking state machine for discussion sessions.
// Each session gets its own loop goroutine via RunSession; the orchestrator
// itself only holds shared collaborators.
type Orchestrator struct {
	cfg      Config
	sessions *session.Manager
	agents   AgentClient
	speech   SpeechLogger
	metrics  *observability.Metrics
}

func NewOrchestrator(cfg Config, sessions *session.Manager, agents AgentClient, speech SpeechLogger, metrics *observability.Metrics) *Orchestrator {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 10 * time.Second
	}
	if cfg.InterTurnPause <= 0 {
		cfg.InterTurnPause = 3 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	return &Orchestrator{
		cfg:      cfg,
		sessions: sessions,
		agents:   agents,
		speech:   speech,
		metrics:  metrics,
	}
}

type timerKind int

const (
	graceTimerKind timerKind = iota
	pauseTimerKind
)

type timerFired struct {
	kind timerKind
	gen  uint64
}

type agentResult struct {
	gen     uint64
	agent   session.AgentID
	reply   TurnReply
	clip    Clip
	err     error
	started time.Time
}

type pendingReply struct {
	turnID    string
	agent     session.AgentID
	text      string
	modelUsed string
}

type loop struct {
	o        *Orchestrator
	ctx      context.Context
	sess     *session.Session
	capture  CapturePort
	player   Player
	inbound  <-chan any
	outbound chan<- any
	internal chan any

	state        State
	gen          uint64
	currentAgent session.AgentID
	handRaised   bool
	grantAllowed bool
	pauseElapsed bool
	history      *History

	graceTimer *TimerHandle
	pauseTimer *TimerHandle

	pending         *pendingReply
	audioStarted    bool
	requestInFlight bool
	selfStop        bool
}

// RunSession drives one discussion until ctx is cancelled or the inbound
// channel closes. It is the single writer of all turn-taking state: capture,
// playback, timers and agent results are serialized through its select loop,
// so no locks are needed.
func (o *Orchestrator) RunSession(ctx context.Context, sess *session.Session, capture CapturePort, player Player, inbound <-chan any, outbound chan<- any) {
	l := &loop{
		o:            o,
		ctx:          ctx,
		sess:         sess,
		capture:      capture,
		player:       player,
		inbound:      inbound,
		outbound:     outbound,
		internal:     make(chan any, 16),
		state:        StateDormant,
		currentAgent: session.AgentOne,
		history:      NewHistory(o.cfg.HistoryLimit),
	}
	l.run()
}

func (l *loop) run() {
	defer l.teardown()

	captureEvents := l.capture.Events()
	playbackEvents := l.player.Events()

	l.emitState()
	for {
		select {
		case <-l.ctx.Done():
			return
		case msg, ok := <-l.inbound:
			if !ok {
				return
			}
			l.handleClient(msg)
		case ev, ok := <-captureEvents:
			if !ok {
				captureEvents = nil
				continue
			}
			l.handleCapture(ev)
		case ev, ok := <-playbackEvents:
			if !ok {
				playbackEvents = nil
				continue
			}
			l.handlePlayback(ev)
		case ev := <-l.internal:
			switch ev := ev.(type) {
			case timerFired:
				l.handleTimer(ev)
			case agentResult:
				l.handleAgentResult(ev)
			}
		}
	}
}

func (l *loop) teardown() {
	l.gen++
	l.graceTimer.Cancel()
	l.pauseTimer.Cancel()
	l.selfStop = true
	l.capture.Stop()
	l.player.Cancel()
}

// --- client controls ---

func (l *loop) handleClient(msg any) {
	ctl, ok := msg.(protocol.ClientControl)
	if !ok {
		log.Printf("session %s: dropping unexpected inbound %T", l.sess.ID, msg)
		return
	}
	l.touch()

	switch ctl.Action {
	case protocol.ActionStartDiscussion:
		l.startDiscussion()
	case protocol.ActionRaiseHand:
		l.raiseHand()
	case protocol.ActionLowerHand:
		l.lowerHand()
	case protocol.ActionDismissError:
		l.dismissError()
	}
}

func (l *loop) startDiscussion() {
	if l.state != StateDormant {
		l.systemEvent("already_started", "discussion already in progress")
		return
	}
	l.o.metrics.SessionEvents.WithLabelValues("discussion_started").Inc()

	l.state = StateAwaitingGrace
	l.grantAllowed = false
	l.graceTimer = l.schedule(graceTimerKind, l.o.cfg.GracePeriod)

	l.launchTurn(session.AgentOne, TurnRequest{
		Text:           "Let's begin the discussion about " + l.sess.Topic,
		Topic:          l.sess.Topic,
		InitialMessage: true,
	})
	l.emitState()
}

func (l *loop) raiseHand() {
	if l.handRaised {
		return
	}
	if !l.canRaiseHand() {
		l.systemEvent("hand_raise_unavailable", "cannot take the turn right now")
		return
	}
	l.o.metrics.TurnEvents.WithLabelValues("hand_raise").Inc()

	// Invalidate any scheduled continuation and any reply we were playing.
	l.gen++
	l.pauseTimer.Cancel()
	l.pauseTimer = nil
	l.pauseElapsed = false

	if l.state == StateAISpeaking {
		l.player.Cancel()
	}
	// The interrupted reply never reaches the history.
	l.pending = nil
	l.audioStarted = false

	l.handRaised = true
	if err := l.o.sessions.Interrupt(l.sess.ID); err != nil {
		log.Printf("session %s: interrupt count update failed: %v", l.sess.ID, err)
	}
	l.notifyHandRaiseBestEffort()

	l.capture.Start()
	l.state = StateListening
	l.emitState()
}

func (l *loop) canRaiseHand() bool {
	switch l.state {
	case StateAISpeaking:
		// Not before the client confirms audible playback.
		return l.audioStarted
	case StateAwaitingNextTurn:
		return !l.requestInFlight
	case StateError:
		return true
	default:
		return false
	}
}

func (l *loop) lowerHand() {
	if l.state != StateListening {
		return
	}
	l.handRaised = false
	l.selfStop = true
	l.capture.Stop()
	l.state = StateAwaitingNextTurn
	l.armPause()
	l.emitState()
}

func (l *loop) dismissError() {
	if l.state != StateError {
		return
	}
	l.state = StateAwaitingNextTurn
	l.armPause()
	l.emitState()
}

// --- capture ---

func (l *loop) handleCapture(ev CaptureEvent) {
	switch ev.Type {
	case CaptureStarted, CaptureInterim:
		// The client renders its own interim transcript.
	case CaptureFinal:
		l.handleFinalTranscript(ev.Text)
	case CaptureStopped:
		if l.selfStop {
			l.selfStop = false
			return
		}
		if l.state == StateListening {
			// Recognizer gave up on its own; yield the floor back.
			l.handRaised = false
			l.state = StateAwaitingNextTurn
			l.armPause()
			l.emitState()
		}
	case CaptureError:
		if l.selfStop {
			// Abort noise from our own Stop call.
			return
		}
		if l.state == StateListening {
			l.handRaised = false
			l.sendCritical(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: l.sess.ID,
				Code:      nonEmpty(ev.Code, "capture_error"),
				Source:    "capture",
				Retryable: true,
				Detail:    ev.Detail,
			})
			l.state = StateAwaitingNextTurn
			l.armPause()
			l.emitState()
		}
	case CaptureUnavailable:
		l.enterError(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: l.sess.ID,
			Code:      "capture_unavailable",
			Source:    "capture",
			Retryable: false,
			Detail:    "speech capture is not available on this client",
		})
	}
}

func (l *loop) handleFinalTranscript(text string) {
	if l.state != StateListening || text == "" {
		return
	}
	l.touch()
	l.o.metrics.TurnEvents.WithLabelValues("human_turn").Inc()

	l.handRaised = false
	l.selfStop = true
	l.capture.Stop()

	l.history.Append(RoleHuman, text)
	l.logSpeechBestEffort(RoleHuman, text, "")

	// Human input always goes to agent one; agent two only hears about the
	// interruption itself.
	l.state = StateProcessingHuman
	l.launchTurn(session.AgentOne, TurnRequest{
		Text:        text,
		Topic:       l.sess.Topic,
		UserMessage: true,
		Context:     l.history.Snapshot(),
	})
	l.emitState()
}

// --- playback ---

func (l *loop) handlePlayback(ev PlaybackEvent) {
	if l.pending == nil || ev.TurnID != l.pending.turnID {
		return
	}
	switch ev.Type {
	case PlaybackStarted:
		if l.state == StateAISpeaking {
			l.audioStarted = true
			l.emitState()
		}
	case PlaybackEnded:
		if l.state != StateAISpeaking {
			return
		}
		l.history.Append(roleFor(l.pending.agent), l.pending.text)
		l.pending = nil
		l.audioStarted = false
		l.o.metrics.TurnEvents.WithLabelValues("agent_turn_done").Inc()

		l.state = StateAwaitingNextTurn
		l.armPause()
		l.emitState()
	case PlaybackInterrupted:
		// Confirmation of our own Cancel; the reply was already dropped.
	}
}

func roleFor(agent session.AgentID) Role {
	if agent == session.AgentTwo {
		return RoleAgentTwo
	}
	return RoleAgentOne
}

// --- timers ---

func (l *loop) schedule(kind timerKind, d time.Duration) *TimerHandle {
	gen := l.gen
	return Schedule(d, func() {
		select {
		case l.internal <- timerFired{kind: kind, gen: gen}:
		case <-l.ctx.Done():
		}
	})
}

func (l *loop) armPause() {
	l.pauseTimer.Cancel()
	l.pauseElapsed = false
	l.pauseTimer = l.schedule(pauseTimerKind, l.o.cfg.InterTurnPause)
}

func (l *loop) handleTimer(ev timerFired) {
	switch ev.kind {
	case graceTimerKind:
		if l.grantAllowed {
			return
		}
		l.grantAllowed = true
		l.emitState()
		// A pause that elapsed before the grace window was deferred to us.
		if l.state == StateAwaitingNextTurn && l.pauseElapsed && !l.handRaised && !l.requestInFlight {
			l.startContinuationTurn()
		}
	case pauseTimerKind:
		if ev.gen != l.gen {
			return
		}
		if l.state != StateAwaitingNextTurn || l.handRaised || l.requestInFlight {
			return
		}
		if !l.grantAllowed {
			l.pauseElapsed = true
			return
		}
		l.startContinuationTurn()
	}
}

func (l *loop) startContinuationTurn() {
	l.pauseElapsed = false
	l.currentAgent = l.currentAgent.Other()
	l.o.metrics.TurnEvents.WithLabelValues("continuation").Inc()

	l.launchTurn(l.currentAgent, TurnRequest{
		Text:         "Please continue the discussion about " + l.sess.Topic,
		Topic:        l.sess.Topic,
		FromAgentOne: l.currentAgent == session.AgentTwo,
		Context:      l.history.Snapshot(),
	})
	l.emitState()
}

// --- agent turns ---

// launchTurn asks an agent for its reply off the loop goroutine. The result
// is tagged with the generation current at launch; a hand raise in the
// meantime bumps the generation and the reply is discarded on arrival.
func (l *loop) launchTurn(agent session.AgentID, req TurnRequest) {
	l.gen++
	gen := l.gen
	l.currentAgent = agent
	l.requestInFlight = true
	started := time.Now()

	go func() {
		res := agentResult{gen: gen, agent: agent, started: started}
		res.reply, res.err = l.o.agents.SendTurn(l.ctx, agent, req)
		if res.err == nil {
			res.clip = l.synthesize(agent, res.reply.Text)
		}
		select {
		case l.internal <- res:
		case <-l.ctx.Done():
		}
	}()
}

// synthesize fetches remote audio for the reply, falling back to client-side
// synthesis when the call fails. Synthesis failures never block the turn.
func (l *loop) synthesize(agent session.AgentID, text string) Clip {
	turnID := uuid.NewString()
	format, audio, err := l.o.agents.Synthesize(l.ctx, agent, text)
	if err != nil {
		log.Printf("session %s: synthesis failed for %s, using local fallback: %v", l.sess.ID, agent, err)
		l.o.metrics.AgentErrors.WithLabelValues(string(agent), "synthesis").Inc()
		return Clip{TurnID: turnID, Text: text, LocalSynthesis: true}
	}
	return Clip{TurnID: turnID, Format: format, Audio: audio, Text: text}
}

func (l *loop) handleAgentResult(res agentResult) {
	if res.gen != l.gen {
		l.o.metrics.TurnEvents.WithLabelValues("stale_reply_discarded").Inc()
		return
	}
	l.requestInFlight = false

	if res.err != nil {
		l.failTurn(res.agent, res.err)
		return
	}
	l.o.metrics.ObserveAgentTurnLatency(time.Since(res.started))

	l.pending = &pendingReply{
		turnID:    res.clip.TurnID,
		agent:     res.agent,
		text:      res.reply.Text,
		modelUsed: res.reply.ModelUsed,
	}
	l.audioStarted = false
	l.state = StateAISpeaking
	l.logSpeechBestEffort(roleFor(res.agent), res.reply.Text, res.reply.ModelUsed)

	l.sendCritical(protocol.AgentUtterance{
		Type:      protocol.TypeAgentUtterance,
		SessionID: l.sess.ID,
		TurnID:    res.clip.TurnID,
		Agent:     string(res.agent),
		Text:      res.reply.Text,
		ModelUsed: res.reply.ModelUsed,
	})
	l.player.Play(res.clip)
	l.emitState()
}

func (l *loop) failTurn(agent session.AgentID, err error) {
	ev := protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: l.sess.ID,
		Code:      "agent_backend",
		Source:    string(agent),
		Retryable: true,
		Detail:    err.Error(),
	}
	var be *BackendError
	if errors.As(err, &be) {
		ev.Retryable = reliability.IsRetryableHTTPStatus(be.Status)
	}
	l.o.metrics.AgentErrors.WithLabelValues(string(agent), ev.Code).Inc()
	l.enterError(ev)
}

func (l *loop) enterError(ev protocol.ErrorEvent) {
	// A reply still in flight must not pull the session back out of Error.
	l.gen++
	l.requestInFlight = false
	// The floor is forfeited: a raised hand must not outlive the turn it
	// interrupted, or the pause timer would refuse to fire after dismissal.
	if l.state == StateListening {
		l.selfStop = true
		l.capture.Stop()
	}
	l.handRaised = false
	l.pauseTimer.Cancel()
	l.pauseTimer = nil
	l.pauseElapsed = false
	l.pending = nil
	l.audioStarted = false
	l.state = StateError
	l.sendCritical(ev)
	l.emitState()
}

// --- side effects ---

func (l *loop) notifyHandRaiseBestEffort() {
	topic := l.sess.Topic
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var err error
		for attempt := 0; attempt < 3; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(reliability.ExponentialBackoff(attempt, 500*time.Millisecond, 5*time.Second)):
				case <-ctx.Done():
					return
				}
			}
			if err = l.o.agents.NotifyHandRaise(ctx, topic); err == nil {
				return
			}
		}
		log.Printf("session %s: hand raise notification failed: %v", l.sess.ID, err)
	}()
}

func (l *loop) logSpeechBestEffort(role Role, text, modelUsed string) {
	rec := SpeechRecord{
		UserID:    l.sess.UserID,
		Role:      role,
		Text:      text,
		Topic:     l.sess.Topic,
		ModelUsed: modelUsed,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.o.speech.LogSpeech(ctx, rec); err != nil {
			log.Printf("session %s: speech log write failed: %v", l.sess.ID, err)
		}
	}()
}

func (l *loop) touch() {
	if err := l.o.sessions.Touch(l.sess.ID); err != nil {
		log.Printf("session %s: touch failed: %v", l.sess.ID, err)
	}
}

// --- outbound ---

// sendCritical blocks briefly for messages the client must not miss.
func (l *loop) sendCritical(msg any) {
	t := time.NewTimer(outboundSendTimeout)
	defer t.Stop()
	select {
	case l.outbound <- msg:
	case <-t.C:
		log.Printf("session %s: outbound send timed out, dropping %T", l.sess.ID, msg)
	case <-l.ctx.Done():
	}
}

// sendBestEffort drops immediately when the writer is backed up; used for
// state updates where a newer one follows soon.
func (l *loop) sendBestEffort(msg any) {
	select {
	case l.outbound <- msg:
	default:
		l.o.metrics.WSMessages.WithLabelValues("outbound", "dropped").Inc()
	}
}

func (l *loop) systemEvent(code, detail string) {
	l.sendBestEffort(protocol.SystemEvent{
		Type:      protocol.TypeSystemEvent,
		SessionID: l.sess.ID,
		Code:      code,
		Detail:    detail,
	})
}

func (l *loop) emitState() {
	if err := l.o.sessions.UpdateTurnState(l.sess.ID, l.currentAgent, l.handRaised, l.grantAllowed); err != nil {
		log.Printf("session %s: turn state mirror failed: %v", l.sess.ID, err)
	}
	l.sendBestEffort(protocol.DiscussionState{
		Type:              protocol.TypeDiscussionState,
		SessionID:         l.sess.ID,
		State:             string(l.state),
		Agent:             string(l.currentAgent),
		GrantStartAllowed: l.grantAllowed,
		HandRaiseEnabled:  !l.handRaised && l.canRaiseHand(),
	})
}

func nonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
