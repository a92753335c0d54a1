package gemini

import (
	"context"
	"sync"
)

// ChatSession binds a character to its remote conversational context: the
// system instruction and the transcript the model has seen so far. It is
// in-memory only and is rebuilt from persisted history after a restart.
// Creation never contacts the network; failures surface during send.
type ChatSession struct {
	client            *Client
	characterID       string
	systemInstruction string

	mu      sync.Mutex
	history []Content
}

// NewChatSession creates a handle seeded with a system instruction and a
// prior transcript. The seed is copied; the caller's slice is not retained.
func (c *Client) NewChatSession(characterID, systemInstruction string, history []Content) *ChatSession {
	return &ChatSession{
		client:            c,
		characterID:       characterID,
		systemInstruction: systemInstruction,
		history:           append([]Content(nil), history...),
	}
}

// CharacterID returns the character this handle is bound to.
func (s *ChatSession) CharacterID() string { return s.characterID }

// SendMessageStream opens a streaming exchange carrying the session
// transcript plus the outgoing user turn. The transcript is not mutated:
// a turn only enters the session's context via Commit, so a failed exchange
// leaves the handle exactly as it was.
func (s *ChatSession) SendMessageStream(ctx context.Context, text string) (<-chan string, <-chan error) {
	s.mu.Lock()
	contents := make([]Content, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	s.mu.Unlock()

	contents = append(contents, Content{
		Role:  "user",
		Parts: []Part{{Text: text}},
	})
	return s.client.StreamGenerate(ctx, s.systemInstruction, contents)
}

// Commit appends a completed user/model exchange to the transcript so
// subsequent turns carry it as context. Call it only after a stream ends
// normally; failed turns are never part of the remote context.
func (s *ChatSession) Commit(userText, modelText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		Content{Role: "user", Parts: []Part{{Text: userText}}},
		Content{Role: "model", Parts: []Part{{Text: modelText}}},
	)
}

// History returns a copy of the transcript the session would send next.
func (s *ChatSession) History() []Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Content(nil), s.history...)
}
