// Package session caches the per-character remote session handles for one
// process lifetime. The persisted message log is the durable source of
// truth; handles here are rebuilt from it after a restart.
package session

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"personachat/internal/gemini"
	"personachat/internal/persona"
)

// Registry owns the remote session handles. Seed history is read exactly
// once per handle, at creation; it never overwrites an existing handle's
// context however far the caller's history has since diverged.
type Registry struct {
	client *gemini.Client

	mu      sync.Mutex
	group   singleflight.Group
	handles map[string]*gemini.ChatSession
}

// NewRegistry creates an empty registry bound to a Gemini client.
func NewRegistry(client *gemini.Client) *Registry {
	return &Registry{
		client:  client,
		handles: make(map[string]*gemini.ChatSession),
	}
}

// GetOrCreate returns the cached handle for the character, creating and
// seeding it on first use. Creation configures local state only; network
// failures surface later, during send. Concurrent calls for the same
// character are collapsed so the handle is seeded exactly once.
func (r *Registry) GetOrCreate(character persona.Character, seedHistory []persona.Message) *gemini.ChatSession {
	r.mu.Lock()
	if handle, ok := r.handles[character.ID]; ok {
		r.mu.Unlock()
		return handle
	}
	r.mu.Unlock()

	v, _, _ := r.group.Do(character.ID, func() (interface{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if handle, ok := r.handles[character.ID]; ok {
			return handle, nil
		}
		handle := r.client.NewChatSession(character.ID, character.SystemInstruction, seedTranscript(seedHistory))
		r.handles[character.ID] = handle
		return handle, nil
	})
	return v.(*gemini.ChatSession)
}

// Reset discards the cached handle so the next GetOrCreate reseeds from
// whatever history is then available.
func (r *Registry) Reset(characterID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, characterID)
}

// seedTranscript maps persisted messages to wire contents, preserving turn
// order. Streaming placeholders are incomplete and must never seed a
// remote session.
func seedTranscript(messages []persona.Message) []gemini.Content {
	transcript := make([]gemini.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Streaming {
			continue
		}
		transcript = append(transcript, gemini.Content{
			Role:  string(msg.Role),
			Parts: []gemini.Part{{Text: msg.Text}},
		})
	}
	return transcript
}
