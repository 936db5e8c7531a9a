package discussion

import (
	"encoding/base64"
	"log"
	"sync"
	"time"

	"github.com/Vijaykv5/Intereractive-GD/internal/protocol"
)

const portEventBuffer = 32

// WSCapturePort drives the browser speech recognizer over the websocket.
// Start and Stop emit capture commands on the outbound channel; the
// websocket reader feeds recognizer events back in through Deliver.
type WSCapturePort struct {
	sessionID string
	outbound  chan<- any
	events    chan CaptureEvent

	mu      sync.Mutex
	running bool
}

func NewWSCapturePort(sessionID string, outbound chan<- any) *WSCapturePort {
	return &WSCapturePort{
		sessionID: sessionID,
		outbound:  outbound,
		events:    make(chan CaptureEvent, portEventBuffer),
	}
}

func (c *WSCapturePort) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()
	c.command("start")
}

func (c *WSCapturePort) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()
	c.command("stop")
}

func (c *WSCapturePort) Events() <-chan CaptureEvent { return c.events }

func (c *WSCapturePort) command(cmd string) {
	sendOut(c.outbound, c.sessionID, protocol.CaptureCommand{
		Type:      protocol.TypeCaptureCommand,
		SessionID: c.sessionID,
		Command:   cmd,
	})
}

// Deliver routes a recognizer event from the websocket reader into the
// session loop. Unknown kinds are dropped.
func (c *WSCapturePort) Deliver(msg protocol.CaptureEvent) {
	ev := CaptureEvent{Text: msg.Text, Code: msg.Code, Detail: msg.Detail}
	switch msg.Kind {
	case protocol.CaptureStarted:
		ev.Type = CaptureStarted
	case protocol.CaptureInterim:
		ev.Type = CaptureInterim
	case protocol.CaptureFinal:
		ev.Type = CaptureFinal
	case protocol.CaptureError:
		ev.Type = CaptureError
	case protocol.CaptureStopped:
		ev.Type = CaptureStopped
	case protocol.CaptureUnavailable:
		ev.Type = CaptureUnavailable
	default:
		return
	}

	c.mu.Lock()
	switch ev.Type {
	case CaptureStarted:
		c.running = true
	case CaptureStopped, CaptureError, CaptureUnavailable:
		c.running = false
	}
	c.mu.Unlock()

	select {
	case c.events <- ev:
	default:
		log.Printf("session %s: capture event buffer full, dropping %s", c.sessionID, ev.Type)
	}
}

// WSPlayer voices agent replies through the browser audio element. Play
// emits play_audio (or speak_text for local synthesis fallback); playback
// progress comes back through Deliver.
type WSPlayer struct {
	sessionID string
	outbound  chan<- any
	events    chan PlaybackEvent

	mu          sync.Mutex
	currentTurn string
}

func NewWSPlayer(sessionID string, outbound chan<- any) *WSPlayer {
	return &WSPlayer{
		sessionID: sessionID,
		outbound:  outbound,
		events:    make(chan PlaybackEvent, portEventBuffer),
	}
}

func (p *WSPlayer) Play(clip Clip) {
	p.mu.Lock()
	p.currentTurn = clip.TurnID
	p.mu.Unlock()

	if clip.LocalSynthesis {
		sendOut(p.outbound, p.sessionID, protocol.SpeakText{
			Type:      protocol.TypeSpeakText,
			SessionID: p.sessionID,
			TurnID:    clip.TurnID,
			Text:      clip.Text,
		})
		return
	}
	sendOut(p.outbound, p.sessionID, protocol.PlayAudio{
		Type:        protocol.TypePlayAudio,
		SessionID:   p.sessionID,
		TurnID:      clip.TurnID,
		Format:      clip.Format,
		AudioBase64: base64.StdEncoding.EncodeToString(clip.Audio),
	})
}

func (p *WSPlayer) Cancel() {
	p.mu.Lock()
	turnID := p.currentTurn
	p.currentTurn = ""
	p.mu.Unlock()
	if turnID == "" {
		return
	}
	sendOut(p.outbound, p.sessionID, protocol.PlaybackCancel{
		Type:      protocol.TypePlaybackCancel,
		SessionID: p.sessionID,
		TurnID:    turnID,
	})
}

func (p *WSPlayer) Events() <-chan PlaybackEvent { return p.events }

// Deliver routes an audio element event from the websocket reader into the
// session loop.
func (p *WSPlayer) Deliver(msg protocol.PlaybackEvent) {
	ev := PlaybackEvent{TurnID: msg.TurnID}
	switch msg.Kind {
	case protocol.PlaybackStarted:
		ev.Type = PlaybackStarted
	case protocol.PlaybackEnded:
		ev.Type = PlaybackEnded
	case protocol.PlaybackInterrupted:
		ev.Type = PlaybackInterrupted
	default:
		return
	}

	if ev.Type != PlaybackStarted {
		p.mu.Lock()
		if p.currentTurn == msg.TurnID {
			p.currentTurn = ""
		}
		p.mu.Unlock()
	}

	select {
	case p.events <- ev:
	default:
		log.Printf("session %s: playback event buffer full, dropping %s", p.sessionID, ev.Type)
	}
}

func sendOut(outbound chan<- any, sessionID string, msg any) {
	t := time.NewTimer(outboundSendTimeout)
	defer t.Stop()
	select {
	case outbound <- msg:
	case <-t.C:
		log.Printf("session %s: outbound send timed out, dropping %T", sessionID, msg)
	}
}
