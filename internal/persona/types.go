// Package persona defines the core domain types for PersonaChat:
// characters, messages, and the per-character conversation session.
package persona

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Character is a static persona configuration. Characters are loaded once
// from the catalog at startup and never mutated.
type Character struct {
	ID                string `yaml:"id" json:"id"`
	Name              string `yaml:"name" json:"name"`
	Role              string `yaml:"role" json:"role"`
	Description       string `yaml:"description" json:"description"`
	Avatar            string `yaml:"avatar" json:"avatar"`
	SystemInstruction string `yaml:"system_instruction" json:"systemInstruction"`
	Theme             string `yaml:"theme" json:"theme"`
}

// Message is one utterance in a conversation. Text is mutable only while
// Streaming is true; Streaming is only ever set on the trailing in-flight
// assistant message and is resolved to false before the turn ends.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Streaming bool      `json:"isStreaming,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// Session is the persisted ordered message log for one character.
// The log is append-only except for the trailing streaming message, which
// is replaced in place until finalized.
type Session struct {
	CharacterID string    `json:"characterId"`
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"lastUpdated"`
}
