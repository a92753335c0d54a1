// Package chat is the interactive TUI for PersonaChat: a character picker
// and a streaming conversation view. It is a thin presentation collaborator
// over the turn coordinator; all conversation semantics live in
// internal/coordinator.
package chat

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"personachat/internal/coordinator"
	"personachat/internal/language"
	"personachat/internal/persona"
	"personachat/internal/session"
)

type view int

const (
	characterView view = iota
	conversationView
)

// MessagesMsg delivers a published message-log snapshot to the UI. The
// coordinator's publish callback forwards every store replacement here.
type MessagesMsg struct {
	CharacterID string
	Messages    []persona.Message
}

type turnDoneMsg struct {
	characterID string
}

// Model is the bubbletea model for the chat interface.
type Model struct {
	characters  []persona.Character
	coordinator *coordinator.Coordinator
	registry    *session.Registry
	clear       func(characterID string)

	mode    view
	cursor  int
	active  int // index into characters, valid only in conversationView
	history map[string][]persona.Message

	languages []string
	langIndex int
	typing    bool

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	styles   styles

	width  int
	height int
	ready  bool
}

// New creates the chat model. history is the store state loaded at startup;
// clear is invoked when the user wipes a conversation (the registry handle
// is reset alongside so the next turn reseeds).
func New(characters []persona.Character, coord *coordinator.Coordinator, registry *session.Registry, history map[string][]persona.Message, clear func(characterID string)) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message... (Enter to send, Esc for characters, Ctrl+C to quit)"
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if history == nil {
		history = make(map[string][]persona.Message)
	}

	return Model{
		characters:  characters,
		coordinator: coord,
		registry:    registry,
		clear:       clear,
		mode:        characterView,
		active:      -1,
		history:     history,
		languages:   language.Supported(),
		textarea:    ta,
		spinner:     sp,
		styles:      newStyles(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerHeight := 3
		footerHeight := 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.textarea.SetWidth(msg.Width - 4)
		m.refreshConversation()
		return m, nil

	case MessagesMsg:
		m.history[msg.CharacterID] = msg.Messages
		if m.mode == conversationView && m.activeCharacter().ID == msg.CharacterID {
			m.refreshConversation()
			m.viewport.GotoBottom()
		}
		return m, nil

	case turnDoneMsg:
		m.typing = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.typing {
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode == characterView {
			return m.updateCharacterView(msg)
		}
		return m.updateConversationView(msg)
	}

	return m, nil
}

func (m Model) updateCharacterView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.characters)-1 {
			m.cursor++
		}
	case "enter":
		m.active = m.cursor
		m.mode = conversationView
		m.textarea.Reset()
		m.textarea.Focus()
		m.refreshConversation()
		m.viewport.GotoBottom()
		return m, textarea.Blink
	}
	return m, nil
}

func (m Model) updateConversationView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.mode = characterView
		return m, nil
	case "ctrl+l":
		m.langIndex = (m.langIndex + 1) % len(m.languages)
		return m, nil
	case "ctrl+r":
		ch := m.activeCharacter()
		if m.clear != nil {
			m.clear(ch.ID)
		}
		m.registry.Reset(ch.ID)
		m.history[ch.ID] = nil
		m.refreshConversation()
		return m, nil
	case "enter":
		return m.sendTurn()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// sendTurn starts one streaming turn. The coordinator itself rejects empty
// input and re-entrant sends, so the UI guard here is cosmetic only.
func (m Model) sendTurn() (tea.Model, tea.Cmd) {
	input := m.textarea.Value()
	if input == "" || m.typing {
		return m, nil
	}

	ch := m.activeCharacter()
	before := append([]persona.Message(nil), m.history[ch.ID]...)
	lang := m.languages[m.langIndex]

	m.textarea.Reset()
	m.typing = true

	send := func() tea.Msg {
		m.coordinator.Send(context.Background(), ch, input, before, lang)
		return turnDoneMsg{characterID: ch.ID}
	}
	return m, tea.Batch(m.spinner.Tick, send)
}

func (m *Model) refreshConversation() {
	if !m.ready || m.active < 0 {
		return
	}
	m.viewport.SetContent(m.renderHistory())
}

func (m Model) activeCharacter() persona.Character {
	if m.active < 0 || m.active >= len(m.characters) {
		return persona.Character{}
	}
	return m.characters[m.active]
}

// NewProgram wraps the model in a bubbletea program. The caller forwards
// publish callbacks into it via Send, then starts it with Run.
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func messageCountLabel(n int) string {
	if n == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", n)
}
