package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"personachat/internal/persona"
)

type styles struct {
	title     lipgloss.Style
	subtitle  lipgloss.Style
	selected  lipgloss.Style
	unselect  lipgloss.Style
	userName  lipgloss.Style
	charName  lipgloss.Style
	muted     lipgloss.Style
	streaming lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135")),
		subtitle:  lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		unselect:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		userName:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		charName:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135")),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		streaming: lipgloss.NewStyle().Foreground(lipgloss.Color("135")),
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.mode == characterView {
		return m.renderCharacterList()
	}
	return m.renderConversation()
}

func (m Model) renderCharacterList() string {
	var sb strings.Builder
	sb.WriteString(m.styles.title.Render("PersonaChat") + "\n")
	sb.WriteString(m.styles.subtitle.Render("Pick a character to start chatting") + "\n\n")

	for i, ch := range m.characters {
		line := fmt.Sprintf("%s, %s", ch.Name, ch.Role)
		if n := len(m.history[ch.ID]); n > 0 {
			line += m.styles.muted.Render(fmt.Sprintf("  (%s)", messageCountLabel(n)))
		}
		if i == m.cursor {
			sb.WriteString(m.styles.selected.Render("> "+line) + "\n")
		} else {
			sb.WriteString(m.styles.unselect.Render("  "+line) + "\n")
		}
	}

	sb.WriteString("\n" + m.styles.muted.Render("↑/↓ select · enter chat · q quit"))
	return sb.String()
}

func (m Model) renderConversation() string {
	ch := m.activeCharacter()

	header := fmt.Sprintf("%s  %s",
		m.styles.charName.Render(ch.Name),
		m.styles.subtitle.Render(ch.Role))
	lang := m.styles.muted.Render("lang: " + m.languages[m.langIndex] + " (ctrl+l)")
	headerLine := lipgloss.JoinHorizontal(lipgloss.Top, header, "  ", lang)

	status := ""
	if m.typing {
		status = m.spinner.View() + m.styles.muted.Render(" "+ch.Name+" is typing...")
	}

	footer := m.textarea.View() + "\n" +
		m.styles.muted.Render("enter send · esc characters · ctrl+r clear · ctrl+c quit")

	return headerLine + "\n\n" + m.viewport.View() + "\n" + status + "\n" + footer
}

func (m Model) renderHistory() string {
	ch := m.activeCharacter()
	msgs := m.history[ch.ID]
	if len(msgs) == 0 {
		return m.styles.muted.Render(fmt.Sprintf("Start a conversation with %s...\nTry cycling languages with ctrl+l.", ch.Name))
	}

	var sb strings.Builder
	for _, msg := range msgs {
		switch msg.Role {
		case persona.RoleUser:
			sb.WriteString(m.styles.userName.Render("You") + "\n")
			sb.WriteString(msg.Text + "\n\n")
		default:
			sb.WriteString(m.styles.charName.Render(ch.Name) + "\n")
			text := msg.Text
			if msg.Streaming {
				text += m.styles.streaming.Render("▌")
			}
			sb.WriteString(text + "\n\n")
		}
	}
	return sb.String()
}
