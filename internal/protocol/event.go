package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Reserved inbound event keys emitted by the agent stream.
const (
	KeyStream = "on_chat_model_stream"
	KeyEnd    = "on_chat_model_end"
)

// Event is one decoded inbound frame.
type Event interface {
	isEvent()
}

// Fragment is one non-empty token of an in-progress assistant turn.
type Fragment struct {
	Text string
}

// Completion marks the end of an assistant turn.
type Completion struct{}

// Signal is any out-of-band event: the frame's first key names it and the
// raw value is the payload.
type Signal struct {
	Name  string
	Value any
}

// PlainText is a frame that failed JSON parsing, passed through verbatim.
type PlainText struct {
	Text string
}

func (Fragment) isEvent()   {}
func (Completion) isEvent() {}
func (Signal) isEvent()     {}
func (PlainText) isEvent()  {}

// Render formats a signal for display: the bell prefix keeps out-of-band
// events visually distinct from assistant text.
func (s Signal) Render() string {
	value, err := sonic.Marshal(s.Value)
	if err != nil {
		value = []byte(fmt.Sprintf("%v", s.Value))
	}
	return "🔔 " + s.Name + ": " + string(value)
}

// Decode normalizes one raw inbound frame into an Event. The second return
// is false when the frame matches nothing and must be silently dropped
// (empty object, empty fragment, non-object JSON).
func Decode(raw []byte) (Event, bool) {
	var payload any
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return PlainText{Text: string(raw)}, true
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}

	if v, present := obj[KeyStream]; present {
		if text, isString := v.(string); isString {
			if text == "" {
				return nil, false
			}
			return Fragment{Text: text}, true
		}
	}

	if v, present := obj[KeyEnd]; present {
		if done, isBool := v.(bool); isBool && done {
			return Completion{}, true
		}
	}

	name, ok := firstKey(raw)
	if !ok {
		return nil, false
	}
	return Signal{Name: name, Value: obj[name]}, true
}

// firstKey returns the first key of a JSON object in document order. Go maps
// do not preserve order, so this walks the raw bytes instead.
func firstKey(raw []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return "", false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", false
	}

	tok, err = dec.Token()
	if err != nil {
		return "", false
	}
	key, ok := tok.(string)
	return key, ok
}
