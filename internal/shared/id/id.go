// Package id provides centralized ID generation for the chat client.
//
// Session identifiers are UUIDv4 strings sourced from crypto/rand via
// google/uuid. The remote side correlates every outbound frame to per-session
// conversation state by this value, so it is generated exactly once per
// session mount and never reused across mounts.
package id

import (
	"github.com/google/uuid"
)

// SessionID identifies one mounted chat session.
type SessionID string

// NewSessionID generates a new cryptographically random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// String returns the raw UUID string.
func (id SessionID) String() string { return string(id) }

// IsValid checks if an ID string is a well-formed UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
