package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ragchat/chatstream/transcript"
	"github.com/ragchat/chatstream/wire"
)

var (
	humanStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	aiStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	thinkingStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	sqlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	refStyle      = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	pendingStyle  = lipgloss.NewStyle().Faint(true)
)

// RenderTerminal renders a transcript for the example CLI client. The
// pending placeholder turn is shown as an ellipsis.
func RenderTerminal(t *transcript.Transcript, loading bool) string {
	flags := Project(t, loading)

	var sb strings.Builder
	for i, msg := range t.Messages {
		if msg.Role == wire.RoleHuman {
			sb.WriteString(humanStyle.Render("you> ") + msg.AnswerText() + "\n")
			continue
		}
		sb.WriteString(humanStyle.Render("bot> "))
		if flags[i].IsPending {
			sb.WriteString(pendingStyle.Render("…") + "\n")
			continue
		}
		for _, p := range msg.Parts {
			renderPartTerminal(&sb, p)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderPartTerminal(sb *strings.Builder, p *transcript.Part) {
	switch p.Type {
	case wire.TypeMessage:
		if p.Text != "" {
			sb.WriteString(aiStyle.Render(p.Text))
		}
	case wire.TypeThinking, wire.TypeToolCallResult:
		if p.Text != "" {
			sb.WriteString(thinkingStyle.Render(p.Text) + "\n")
		}
	case wire.TypeSQL:
		if p.Text != "" {
			sb.WriteString(sqlStyle.Render(p.Text) + "\n")
		}
	case wire.TypeReferences:
		for _, ref := range p.References {
			sb.WriteString("\n" + refStyle.Render(fmt.Sprintf("[%.2f] %s", ref.Score, ref.Text)))
		}
	case wire.TypeError:
		sb.WriteString(errorStyle.Render("error: " + p.Text))
	}
}
