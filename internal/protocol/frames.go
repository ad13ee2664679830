package protocol

import (
	"github.com/bytedance/sonic"

	"github.com/hubenschmidt/langgraph-react/internal/shared/id"
)

// InitFrame announces a session to the remote side. Sent exactly once,
// immediately after the connection opens, before any application data.
type InitFrame struct {
	SessionID string `json:"uuid"`
	Init      bool   `json:"init"`
}

// MessageFrame carries one user message.
type MessageFrame struct {
	SessionID string `json:"uuid"`
	Message   string `json:"message"`
}

// EncodeInit marshals the initialization frame for a session.
func EncodeInit(sid id.SessionID) ([]byte, error) {
	return sonic.Marshal(InitFrame{SessionID: sid.String(), Init: true})
}

// EncodeMessage marshals a user message frame for a session.
func EncodeMessage(sid id.SessionID, text string) ([]byte, error) {
	return sonic.Marshal(MessageFrame{SessionID: sid.String(), Message: text})
}
