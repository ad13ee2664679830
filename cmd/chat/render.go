package main

import (
	"fmt"
	"io"

	"github.com/hubenschmidt/langgraph-react/internal/conversation"
)

// renderer prints message-list snapshots incrementally: finished messages as
// whole lines, the open streaming bubble token by token on one line.
type renderer struct {
	out io.Writer

	done    int // messages fully printed
	partial int // bytes of the message at index done already printed
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) render(msgs []conversation.Message) {
	if r.stale(msgs) {
		r.reset()
	}

	for r.done < len(msgs) {
		msg := msgs[r.done]

		if msg.Streaming {
			// Only the trailing message can still be streaming.
			if r.partial == 0 {
				fmt.Fprint(r.out, "bot> ")
			}
			fmt.Fprint(r.out, msg.Text[r.partial:])
			r.partial = len(msg.Text)
			return
		}

		if r.partial > 0 {
			// The bubble we were printing has been finalized.
			fmt.Fprintln(r.out, msg.Text[r.partial:])
			r.partial = 0
			r.done++
			continue
		}

		if msg.Author == conversation.User {
			// The user already sees their own input line.
			r.done++
			continue
		}

		fmt.Fprintf(r.out, "bot> %s\n", msg.Text)
		r.done++
	}
}

// stale reports whether the printed prefix no longer matches the snapshot,
// which means the conversation was reset between deliveries. Subscribers can
// miss the seed-only snapshot entirely, so a list that regrew past r.done
// must still be checked: the bubble being printed has to remain at the same
// index with at least the bytes already written.
func (r *renderer) stale(msgs []conversation.Message) bool {
	if len(msgs) < r.done {
		return true
	}
	if r.partial == 0 {
		return false
	}
	if len(msgs) == r.done {
		return true
	}
	msg := msgs[r.done]
	return msg.Author != conversation.Bot || r.partial > len(msg.Text)
}

func (r *renderer) reset() {
	if r.partial > 0 {
		fmt.Fprintln(r.out)
	}
	fmt.Fprintln(r.out, "--- conversation reset ---")
	r.done = 0
	r.partial = 0
}
