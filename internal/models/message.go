package models

import (
	"errors"
	"fmt"
)

// Message is a single entry of a transcript. The transcript is owned by the client and replayed in full
// on every request, so a Message never outlives the request that carries it. ID is only meaningful to
// the client, which uses it to keep list rendering stable.
type Message struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message written by the person using the dashboard.
	RoleUser Role = "user"
	// RoleAssistant represents a message produced by the generation provider.
	RoleAssistant Role = "assistant"
	// RoleSystem represents an instruction message.
	RoleSystem Role = "system"
)

// ErrEmptyTranscript is returned when a chat request carries no messages.
var ErrEmptyTranscript = errors.New("messages must be a non-empty array")

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ValidateTranscript checks that messages is a non-empty ordered list and that every entry has a known role.
func ValidateTranscript(messages []Message) error {
	if len(messages) == 0 {
		return ErrEmptyTranscript
	}
	for i, msg := range messages {
		if !msg.Role.Valid() {
			return fmt.Errorf("message %d has unknown role %q", i, msg.Role)
		}
	}
	return nil
}

// WithInstruction returns a new transcript with a system instruction in front of messages. The input slice is
// left untouched.
func WithInstruction(instruction string, messages []Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{
		Role:    RoleSystem,
		Content: instruction,
	})
	return append(out, messages...)
}
