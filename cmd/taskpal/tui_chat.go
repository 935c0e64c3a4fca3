package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"taskpal/internal/chat"
)

type chatTurnMsg struct{}

// chatModel is the assistant tab: a scrollback transcript over a one-line
// composer. The composer locks while a turn is in flight.
type chatModel struct {
	container *Container

	viewport viewport.Model
	textarea textarea.Model
	markdown *markdownRenderer
	width    int
}

func newChatModel(container *Container) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask the assistant..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)

	return chatModel{container: container, textarea: ta, viewport: vp}
}

func (m chatModel) Init() tea.Cmd {
	return textarea.Blink
}

// typing reports whether the composer holds a draft, so the root model does
// not steal Tab for view switching mid-sentence.
func (m chatModel) typing() bool {
	return m.textarea.Focused() && m.textarea.Value() != ""
}

func (m *chatModel) setSize(width, height int) {
	m.width = width
	m.viewport.Width = width
	m.viewport.Height = height - 3 // composer + status row
	m.textarea.SetWidth(width - 4)

	renderer, err := newMarkdownRenderer(width - 4)
	if err == nil {
		m.markdown = renderer
	}
	m.reload()
}

// reload re-renders the transcript from the store snapshot.
func (m *chatModel) reload() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *chatModel) transcript() string {
	snap := m.container.Chat.Snapshot()

	var b strings.Builder
	for _, msg := range snap.Messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(userMsgStyle.Render("you> " + msg.Content))
			b.WriteString("\n")
		default:
			rendered := msg.Content
			if m.markdown != nil {
				rendered = strings.TrimRight(m.markdown.Render(msg.Content), "\n")
			}
			b.WriteString(rendered)
			b.WriteString("\n")
			b.WriteString(renderTranscriptAnnotations(msg))
		}
		b.WriteString("\n")
	}
	if snap.Pending {
		b.WriteString(statusStyle.Render("assistant is thinking..."))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTranscriptAnnotations(msg chat.Message) string {
	var b strings.Builder
	for _, call := range msg.ToolCalls {
		b.WriteString(annotationStyle.Render(fmt.Sprintf("  ⚙ %s", call.Name)))
		b.WriteString("\n")
	}
	for _, update := range msg.TaskUpdates {
		switch {
		case update.Task != nil:
			b.WriteString(annotationStyle.Render(fmt.Sprintf("  ✓ %s task: %s", update.Action, update.Task.Title)))
			b.WriteString("\n")
		case len(update.Tasks) > 0:
			b.WriteString(annotationStyle.Render(fmt.Sprintf("  ✓ %s %d tasks", update.Action, len(update.Tasks))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case chatTurnMsg:
		m.reload()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter {
			pending := m.container.Chat.Pending()
			content := strings.TrimSpace(m.textarea.Value())
			if pending || content == "" {
				return m, nil
			}
			m.textarea.Reset()

			// Show the optimistic user turn before the network round trip.
			container := m.container
			send := func() tea.Msg {
				_ = container.Chat.Send(context.Background(), content)
				return chatTurnMsg{}
			}
			m.reloadAfter(content)
			return m, send
		}
	}

	var taCmd, vpCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

// reloadAfter paints the turn being sent before the network round trip
// finishes; the store appends the real optimistic message once Send runs.
func (m *chatModel) reloadAfter(content string) {
	extra := userMsgStyle.Render("you> "+content) + "\n" + statusStyle.Render("assistant is thinking...")
	m.viewport.SetContent(m.transcript() + extra)
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	composer := m.textarea.View()

	var status string
	if m.container.Chat.Pending() {
		status = statusStyle.Render("⚡ Waiting for the assistant...")
	} else {
		status = helpStyle.Render("enter: send • tab: switch view")
	}

	return m.viewport.View() + "\n" + composer + "\n" + status
}
