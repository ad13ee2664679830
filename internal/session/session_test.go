package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/langgraph-react/internal/config"
	"github.com/hubenschmidt/langgraph-react/internal/conversation"
	"github.com/hubenschmidt/langgraph-react/internal/logging"
)

const welcome = "Welcome! Ask me anything."

var upgrader = websocket.Upgrader{}

// newAgentServer fakes the remote agent: it consumes the init frame, then
// answers every user message frame with the scripted frames.
func newAgentServer(t *testing.T, script []string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]any
			if err := sonic.Unmarshal(data, &frame); err != nil {
				continue
			}
			if _, isInit := frame["init"]; isInit {
				continue
			}
			for _, payload := range script {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newSession(t *testing.T, endpoint string) *Session {
	t.Helper()
	sess := New(config.ChatConfig{Endpoint: endpoint, Welcome: welcome}, logging.NewNop(), prometheus.NewRegistry())
	t.Cleanup(sess.Stop)
	return sess
}

func waitForMessages(t *testing.T, sess *Session, n int) []conversation.Message {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(sess.Snapshot()) >= n
	}, 2*time.Second, 10*time.Millisecond)
	return sess.Snapshot()
}

func TestSessionSeedsWelcome(t *testing.T) {
	sess := newSession(t, "ws://127.0.0.1:1/ws")

	msgs := sess.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.Message{Author: conversation.Bot, Text: welcome}, msgs[0])
	assert.False(t, sess.Connected())
}

func TestStreamedReplyRoundTrip(t *testing.T) {
	endpoint := newAgentServer(t, []string{
		`{"on_chat_model_stream": "Hi"}`,
		`{"on_chat_model_stream": " there"}`,
		`{"on_chat_model_end": true}`,
	})
	sess := newSession(t, endpoint)
	require.NoError(t, sess.Start(context.Background()))

	require.Eventually(t, sess.Connected, 2*time.Second, 10*time.Millisecond)
	require.True(t, sess.Send("hello"))

	// Seed, user message, assembled reply.
	waitForMessages(t, sess, 3)
	require.Eventually(t, func() bool {
		snapshot := sess.Snapshot()
		last := snapshot[len(snapshot)-1]
		return !last.Streaming && last.Text == "Hi there"
	}, 2*time.Second, 10*time.Millisecond)

	msgs := sess.Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, conversation.Message{Author: conversation.User, Text: "hello"}, msgs[1])
	assert.Equal(t, conversation.Message{Author: conversation.Bot, Text: "Hi there"}, msgs[2])
}

func TestSignalRenderedOutOfBand(t *testing.T) {
	endpoint := newAgentServer(t, []string{
		`{"custom_event": {"x": 1}}`,
	})
	sess := newSession(t, endpoint)
	require.NoError(t, sess.Start(context.Background()))

	require.Eventually(t, sess.Connected, 2*time.Second, 10*time.Millisecond)
	require.True(t, sess.Send("trigger"))

	msgs := waitForMessages(t, sess, 3)
	assert.Equal(t, conversation.Message{Author: conversation.Bot, Text: `🔔 custom_event: {"x":1}`}, msgs[2])
}

func TestPlainTextFallback(t *testing.T) {
	endpoint := newAgentServer(t, []string{
		`not json at all`,
	})
	sess := newSession(t, endpoint)
	require.NoError(t, sess.Start(context.Background()))

	require.Eventually(t, sess.Connected, 2*time.Second, 10*time.Millisecond)
	require.True(t, sess.Send("trigger"))

	msgs := waitForMessages(t, sess, 3)
	assert.Equal(t, conversation.Message{Author: conversation.Bot, Text: "not json at all"}, msgs[2])
}

func TestSendWhileDisconnectedIsRejected(t *testing.T) {
	// Scenario: send while the connection never opened. No frame goes out
	// and no message is appended.
	sess := newSession(t, "ws://127.0.0.1:1/ws")
	err := sess.Start(context.Background())
	require.Error(t, err)

	assert.False(t, sess.Send("hello"))
	assert.Len(t, sess.Snapshot(), 1)
}

func TestSendEmptyTextIsRejected(t *testing.T) {
	endpoint := newAgentServer(t, nil)
	sess := newSession(t, endpoint)
	require.NoError(t, sess.Start(context.Background()))
	require.Eventually(t, sess.Connected, 2*time.Second, 10*time.Millisecond)

	assert.False(t, sess.Send("   "))
	assert.Len(t, sess.Snapshot(), 1)
}

func TestResetMidStreamRestoresSeed(t *testing.T) {
	// The server opens a bubble and never completes it; reset discards it.
	endpoint := newAgentServer(t, []string{
		`{"on_chat_model_stream": "partial answer"}`,
	})
	sess := newSession(t, endpoint)
	require.NoError(t, sess.Start(context.Background()))

	require.Eventually(t, sess.Connected, 2*time.Second, 10*time.Millisecond)
	require.True(t, sess.Send("hello"))
	waitForMessages(t, sess, 3)

	sess.Reset()

	require.Eventually(t, func() bool {
		return len(sess.Snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	msgs := sess.Snapshot()
	assert.Equal(t, conversation.Message{Author: conversation.Bot, Text: welcome}, msgs[0])
	// The session identity and connection survive a reset.
	assert.True(t, sess.Connected())
}

func TestSubscribeObservesChanges(t *testing.T) {
	endpoint := newAgentServer(t, []string{
		`{"on_chat_model_stream": "Hi"}`,
		`{"on_chat_model_end": true}`,
	})
	sess := newSession(t, endpoint)
	require.NoError(t, sess.Start(context.Background()))
	require.Eventually(t, sess.Connected, 2*time.Second, 10*time.Millisecond)

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	require.True(t, sess.Send("hello"))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot := <-updates:
			last := snapshot[len(snapshot)-1]
			if !last.Streaming && last.Text == "Hi" {
				return
			}
		case <-deadline:
			t.Fatal("never observed the completed reply")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	sess := newSession(t, "ws://127.0.0.1:1/ws")

	updates, unsubscribe := sess.Subscribe()
	unsubscribe()
	unsubscribe() // idempotent

	_, open := <-updates
	assert.False(t, open)
}

func TestStopIsIdempotentAndFreezesList(t *testing.T) {
	endpoint := newAgentServer(t, []string{
		`{"on_chat_model_stream": "partial"}`,
	})
	sess := newSession(t, endpoint)
	require.NoError(t, sess.Start(context.Background()))

	require.Eventually(t, sess.Connected, 2*time.Second, 10*time.Millisecond)
	require.True(t, sess.Send("hello"))
	waitForMessages(t, sess, 3)

	sess.Stop()
	sess.Stop()

	// The in-flight bubble is left in its last-known state.
	msgs := sess.Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, "partial", msgs[2].Text)

	// Dead sessions reject everything without mutating the list.
	assert.False(t, sess.Send("late"))
	sess.Reset()
	assert.Len(t, sess.Snapshot(), 3)
}

func TestSessionIDsAreUniquePerMount(t *testing.T) {
	a := newSession(t, "ws://127.0.0.1:1/ws")
	b := newSession(t, "ws://127.0.0.1:1/ws")
	assert.NotEqual(t, a.ID(), b.ID())
}
