// Package session composes one connection and one conversation into a
// mounted chat session.
//
// All reducer mutations happen on a single consumer goroutine fed by an
// ordered operation queue. Inbound frames and user actions are funneled
// through the same queue, so events are processed strictly one at a time in
// arrival order and no locking is needed around the reducer itself.
package session

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hubenschmidt/langgraph-react/internal/config"
	"github.com/hubenschmidt/langgraph-react/internal/conversation"
	"github.com/hubenschmidt/langgraph-react/internal/logging"
	"github.com/hubenschmidt/langgraph-react/internal/monitoring"
	"github.com/hubenschmidt/langgraph-react/internal/protocol"
	"github.com/hubenschmidt/langgraph-react/internal/shared/id"
	"github.com/hubenschmidt/langgraph-react/internal/ws"
)

const opQueueSize = 64

// Session owns one conversation, one connection, and one session identifier.
// The identifier is generated at construction and stable for the session's
// lifetime; a new Session is a logically new conversation on the remote side.
type Session struct {
	id      id.SessionID
	cfg     config.ChatConfig
	log     *logging.Logger
	metrics *monitoring.Metrics

	conv *conversation.Conversation

	connMu sync.RWMutex
	conn   *ws.Conn

	ops  chan func()
	done chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	mu        sync.RWMutex
	connected bool
	snapshot  []conversation.Message
	subs      map[int]chan []conversation.Message
	nextSub   int
}

// New creates an unstarted session with a fresh identifier and the seed
// welcome message.
func New(cfg config.ChatConfig, log *logging.Logger, reg prometheus.Registerer) *Session {
	s := &Session{
		id:      id.NewSessionID(),
		cfg:     cfg,
		log:     log,
		metrics: monitoring.NewMetrics(reg),
		conv:    conversation.New(cfg.Welcome),
		ops:     make(chan func(), opQueueSize),
		done:    make(chan struct{}),
		subs:    make(map[int]chan []conversation.Message),
	}
	s.snapshot = s.conv.Messages()
	s.metrics.Messages.Set(float64(s.conv.Len()))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() id.SessionID {
	return s.id
}

// Start dials the endpoint and begins processing. The consumer loop starts
// before the dial so frames arriving immediately after the init handshake
// are not lost. Dial failure leaves the session usable but disconnected.
func (s *Session) Start(ctx context.Context) error {
	var err error
	s.startOnce.Do(func() {
		go s.loop()

		var conn *ws.Conn
		conn, err = ws.Dial(ctx, s.cfg.Endpoint, s.id, s.handleFrame, s.handleStatus, s.log)
		if err != nil {
			s.log.Warn("session connect failed", zap.String("session", s.id.String()), zap.Error(err))
			return
		}
		s.connMu.Lock()
		s.conn = conn
		s.connMu.Unlock()
	})
	return err
}

func (s *Session) transport() *ws.Conn {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn
}

// Stop tears the session down: frame delivery is detached synchronously and
// the transport is released on every exit path. An in-flight streaming
// bubble is left in its last-known state.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if conn := s.transport(); conn != nil {
			conn.Close()
		}
		close(s.done)

		s.mu.Lock()
		for key, ch := range s.subs {
			close(ch)
			delete(s.subs, key)
		}
		s.mu.Unlock()
	})
}

// Send submits user text. Rejected silently when the text is empty or the
// connection is not open; otherwise the user message is appended and the
// frame transmitted. Returns whether the submit was accepted.
func (s *Session) Send(text string) bool {
	if !s.Connected() {
		return false
	}

	conn := s.transport()
	if conn == nil {
		return false
	}

	accepted := false
	s.run(func() {
		if !s.conv.Submit(text) {
			return
		}
		accepted = true
		conn.Send(text)
		s.metrics.SendsTotal.Inc()
		s.publish()
	})
	return accepted
}

// Reset reinitializes the list to the single seed message. The connection
// and session identity are untouched.
func (s *Session) Reset() {
	s.run(func() {
		s.conv.Reset()
		s.metrics.ResetsTotal.Inc()
		s.publish()
	})
}

// Connected reports whether the connection is currently open. This is the
// entire failure surface exposed to the presentation layer.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Snapshot returns the current message list, oldest first. The returned
// slice is a point-in-time copy and must not be mutated. Valid after Stop,
// reflecting the list's last-known state.
func (s *Session) Snapshot() []conversation.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Subscribe registers an observer of message-list snapshots. Each change
// delivers a fresh copy; a slow consumer loses intermediate snapshots, never
// the latest ordering. Cancel with the returned unsubscribe function.
func (s *Session) Subscribe() (<-chan []conversation.Message, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.nextSub
	s.nextSub++
	ch := make(chan []conversation.Message, 16)
	s.subs[key] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[key]; ok {
			close(sub)
			delete(s.subs, key)
		}
	}
}

// loop is the single consumer: every reducer mutation happens here.
func (s *Session) loop() {
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.ops:
			select {
			case <-s.done:
				return
			default:
			}
			fn()
		}
	}
}

// post enqueues an operation, dropping it if the session is stopped.
func (s *Session) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	case s.ops <- fn:
		return true
	}
}

// run enqueues an operation and waits for it to execute. Callers never run
// on the loop goroutine, so this cannot deadlock.
func (s *Session) run(fn func()) {
	executed := make(chan struct{})
	if !s.post(func() {
		defer close(executed)
		fn()
	}) {
		return
	}
	select {
	case <-executed:
	case <-s.done:
	}
}

// handleFrame runs on the read pump: it only enqueues, preserving transport
// arrival order while keeping the pump unblocked.
func (s *Session) handleFrame(raw []byte) {
	s.post(func() {
		ev, ok := protocol.Decode(raw)
		if !ok {
			s.metrics.FramesDropped.Inc()
			return
		}
		s.countFrame(ev)
		s.conv.Apply(ev)
		s.publish()
	})
}

func (s *Session) handleStatus(status ws.Status) {
	open := status == ws.Open

	s.mu.Lock()
	s.connected = open
	s.mu.Unlock()

	if open {
		s.metrics.ConnectionUp.Set(1)
	} else {
		s.metrics.ConnectionUp.Set(0)
	}
	s.log.Debug("connection status", zap.String("session", s.id.String()), zap.Stringer("status", status))
}

func (s *Session) countFrame(ev protocol.Event) {
	switch ev.(type) {
	case protocol.Fragment:
		s.metrics.FramesTotal.WithLabelValues(monitoring.KindFragment).Inc()
	case protocol.Completion:
		s.metrics.FramesTotal.WithLabelValues(monitoring.KindCompletion).Inc()
	case protocol.Signal:
		s.metrics.FramesTotal.WithLabelValues(monitoring.KindSignal).Inc()
	case protocol.PlainText:
		s.metrics.FramesTotal.WithLabelValues(monitoring.KindPlainText).Inc()
	}
}

// publish caches the current snapshot and fans it out to subscribers. Runs
// on the loop goroutine.
func (s *Session) publish() {
	s.metrics.Messages.Set(float64(s.conv.Len()))
	snapshot := s.conv.Messages()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot

	select {
	case <-s.done:
		// Stop already closed the subscriber channels.
		return
	default:
	}
	for _, ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
			// Drop for slow consumers; the next publish supersedes this one.
		}
	}
}
