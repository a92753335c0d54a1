// Package coordinator drives one user-turn-to-model-turn exchange: it
// builds the outgoing request, consumes the streaming response, and
// publishes each partial snapshot of the character's message log outward.
package coordinator

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"personachat/internal/language"
	"personachat/internal/persona"
	"personachat/internal/session"
	"personachat/internal/store"
)

// ErrorAnnotation is appended to whatever text has accumulated when a
// streaming exchange fails. The conversation stays usable; the failure is
// visible inline instead of being thrown at the presentation layer.
const ErrorAnnotation = " [Connection Error: Unable to reach the character. Please try again.]"

// PublishFunc receives the complete authoritative message log for a
// character each time the coordinator wants the stored list replaced.
type PublishFunc func(characterID string, messages []persona.Message)

// Coordinator orchestrates streaming chat turns. At most one turn per
// character is in flight at a time; turns for different characters are
// independent.
type Coordinator struct {
	registry *session.Registry
	publish  PublishFunc
	archive  *store.TurnArchive // optional
	logger   *zap.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates a coordinator. archive may be nil to disable turn archiving.
func New(registry *session.Registry, publish PublishFunc, archive *store.TurnArchive, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		registry: registry,
		publish:  publish,
		archive:  archive,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// InFlight reports whether a turn for the character is currently running.
func (c *Coordinator) InFlight(characterID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[characterID]
}

// Send runs one full turn against the character and blocks until the
// exchange completes. Empty input (after trimming) and re-entrant sends for
// a character already awaiting a response are silent no-ops, not errors.
//
// history is the character's log before this turn. The coordinator
// publishes, in order: the optimistic user echo, the empty streaming
// placeholder, one growing snapshot per fragment, and a final snapshot with
// the streaming flag resolved. Fragments are applied strictly in arrival
// order, so published text is always a prefix of the final text.
func (c *Coordinator) Send(ctx context.Context, character persona.Character, userText string, history []persona.Message, languageSelection string) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return
	}

	c.mu.Lock()
	if c.inFlight[character.ID] {
		c.mu.Unlock()
		return
	}
	c.inFlight[character.ID] = true
	c.mu.Unlock()
	// Cleared last, so exactly one more turn can begin.
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, character.ID)
		c.mu.Unlock()
	}()

	userMsg := persona.NewMessage(persona.RoleUser, text)
	base := make([]persona.Message, 0, len(history)+2)
	base = append(base, history...)
	base = append(base, userMsg)

	// Optimistic echo: the user sees their own message even if the
	// network call stalls.
	c.publish(character.ID, snapshot(base))

	placeholder := persona.NewMessage(persona.RoleModel, "")
	placeholder.Streaming = true
	c.publish(character.ID, snapshotWith(base, placeholder))

	// Seed from pre-turn history: the two messages above are local-only.
	// The handle is created once per character per process; after a
	// restart this is where the persisted log rehydrates the remote
	// context.
	handle := c.registry.GetOrCreate(character, history)

	outgoing := language.Apply(text, languageSelection)
	fragments, errs := handle.SendMessageStream(ctx, outgoing)

	var accumulator strings.Builder
	for fragment := range fragments {
		accumulator.WriteString(fragment)
		partial := placeholder
		partial.Text = accumulator.String()
		c.publish(character.ID, snapshotWith(base, partial))
	}

	failed := false
	if err := <-errs; err != nil {
		failed = true
		c.logger.Warn("streaming exchange failed",
			zap.String("character", character.ID), zap.Error(err))
		accumulator.WriteString(ErrorAnnotation)
	}

	final := placeholder
	final.Text = accumulator.String()
	final.Streaming = false
	c.publish(character.ID, snapshotWith(base, final))

	if !failed {
		handle.Commit(outgoing, final.Text)
	}
	if c.archive != nil {
		_ = c.archive.Record(character.ID, text, final.Text, failed)
	}
}

func snapshot(messages []persona.Message) []persona.Message {
	return append([]persona.Message(nil), messages...)
}

func snapshotWith(messages []persona.Message, trailing persona.Message) []persona.Message {
	out := make([]persona.Message, 0, len(messages)+1)
	out = append(out, messages...)
	out = append(out, trailing)
	return out
}
