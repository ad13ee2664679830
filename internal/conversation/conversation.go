// Package conversation implements the reducer that folds decoded stream
// events and user actions into an ordered list of chat messages.
//
// The reducer is deterministic and single-owner: callers must apply events
// one at a time from a single goroutine. The open streaming bubble is
// tracked with an explicit phase and index rather than inferred from the
// trailing list element, which keeps the empty-list and interleaved-signal
// cases unambiguous.
package conversation

import (
	"strings"

	"github.com/hubenschmidt/langgraph-react/internal/protocol"
)

// Author identifies who a message is attributed to.
type Author int

const (
	Bot Author = iota
	User
)

// String returns the display name of the author.
func (a Author) String() string {
	switch a {
	case Bot:
		return "bot"
	case User:
		return "user"
	default:
		return "unknown"
	}
}

// Message is one entry in the conversation. Text is append-only while
// Streaming is true and immutable once it is false.
type Message struct {
	Author    Author
	Text      string
	Streaming bool
}

// Phase is the reducer state.
type Phase int

const (
	// Idle means no streaming bubble is open.
	Idle Phase = iota
	// Streaming means exactly one message is still receiving fragments.
	Streaming
)

// Conversation holds the ordered message list and the reducer state.
type Conversation struct {
	welcome  string
	messages []Message
	phase    Phase
	open     int // index of the streaming bubble; -1 when idle
}

// New creates a conversation seeded with a single welcome message.
func New(welcome string) *Conversation {
	c := &Conversation{welcome: welcome}
	c.Reset()
	return c
}

// Reset replaces the list with the single seed message and returns the
// reducer to idle. An in-flight streaming bubble is discarded, not finalized.
func (c *Conversation) Reset() {
	c.messages = []Message{{Author: Bot, Text: c.welcome}}
	c.phase = Idle
	c.open = -1
}

// Submit appends a user message. Empty or whitespace-only text is rejected
// silently and the list is unchanged. Returns whether the text was accepted.
func (c *Conversation) Submit(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	c.appendClosed(Message{Author: User, Text: text})
	return true
}

// Apply folds one decoded inbound event into the message list.
func (c *Conversation) Apply(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.Fragment:
		c.applyFragment(e.Text)
	case protocol.Completion:
		c.applyCompletion()
	case protocol.Signal:
		c.appendClosed(Message{Author: Bot, Text: e.Render()})
	case protocol.PlainText:
		c.appendClosed(Message{Author: Bot, Text: e.Text})
	}
}

func (c *Conversation) applyFragment(text string) {
	if text == "" {
		return
	}
	if c.phase == Streaming {
		// Plain string append: no normalization, no deduplication.
		c.messages[c.open].Text += text
		return
	}
	c.messages = append(c.messages, Message{Author: Bot, Text: text, Streaming: true})
	c.phase = Streaming
	c.open = len(c.messages) - 1
}

func (c *Conversation) applyCompletion() {
	// A completion with no open bubble is a stray marker, not an error.
	if c.phase != Streaming {
		return
	}
	c.messages[c.open].Streaming = false
	c.phase = Idle
	c.open = -1
}

// appendClosed appends a finished message. Appending while a bubble is open
// orphans that bubble: it can never receive fragments again, so it is sealed
// to preserve the single-streaming-message invariant. A later fragment
// starts a fresh bubble.
func (c *Conversation) appendClosed(msg Message) {
	if c.phase == Streaming {
		c.messages[c.open].Streaming = false
		c.phase = Idle
		c.open = -1
	}
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the list, oldest first.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Phase returns the current reducer state.
func (c *Conversation) Phase() Phase {
	return c.phase
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}
