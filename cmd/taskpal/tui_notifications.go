package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"taskpal/internal/notification"
)

type (
	notifTickMsg    time.Time
	notifUpdatedMsg struct{}
)

// notifsModel is the reminders tab. It refreshes on the poll interval while
// the program runs, whichever tab is showing.
type notifsModel struct {
	container *Container

	viewport viewport.Model
	cursor   int
}

func newNotifsModel(container *Container) notifsModel {
	return notifsModel{container: container, viewport: viewport.New(80, 20)}
}

func (m notifsModel) tick() tea.Cmd {
	return tea.Tick(notification.DefaultPollInterval, func(t time.Time) tea.Msg {
		return notifTickMsg(t)
	})
}

func (m *notifsModel) setSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height - 1
	m.reload()
}

func (m *notifsModel) reload() {
	snap := m.container.Notifications.Snapshot()
	if m.cursor >= len(snap.Notifications) {
		m.cursor = len(snap.Notifications) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	var b strings.Builder
	if len(snap.Notifications) == 0 {
		b.WriteString(statusStyle.Render("No new notifications."))
	}
	for i, n := range snap.Notifications {
		pointer := "  "
		if i == m.cursor {
			pointer = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s %s  %s\n",
			pointer,
			pendingBadge.Render("●"),
			n.Content,
			statusStyle.Render(n.CreatedAt.Format("Jan 2 15:04")),
		))
	}
	m.viewport.SetContent(b.String())
}

func (m notifsModel) Update(msg tea.Msg) (notifsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case notifTickMsg:
		return m, tea.Batch(m.refresh(), m.tick())

	case notifUpdatedMsg:
		m.reload()
		return m, nil

	case tea.KeyMsg:
		snap := m.container.Notifications.Snapshot()
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(snap.Notifications)-1 {
				m.cursor++
				m.reload()
			}
			return m, nil
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
				m.reload()
			}
			return m, nil
		case "enter", "m":
			if m.cursor < len(snap.Notifications) {
				return m, m.markRead(snap.Notifications[m.cursor].ID)
			}
			return m, nil
		case "A":
			return m, m.markAllRead()
		case "r":
			return m, m.refresh()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m notifsModel) refresh() tea.Cmd {
	container := m.container
	return func() tea.Msg {
		if !container.Session.Snapshot().Authenticated() {
			return notifUpdatedMsg{}
		}
		_ = container.Notifications.Refresh(context.Background())
		return notifUpdatedMsg{}
	}
}

func (m notifsModel) markRead(id string) tea.Cmd {
	container := m.container
	return func() tea.Msg {
		_ = container.Notifications.MarkRead(context.Background(), id)
		return notifUpdatedMsg{}
	}
}

func (m notifsModel) markAllRead() tea.Cmd {
	container := m.container
	return func() tea.Msg {
		_ = container.Notifications.MarkAllRead(context.Background())
		return notifUpdatedMsg{}
	}
}

func (m notifsModel) View() string {
	snap := m.container.Notifications.Snapshot()
	var footer string
	if snap.Err != "" {
		footer = errStyle.Render("✗ " + snap.Err)
	} else {
		footer = helpStyle.Render("m: mark read • A: mark all read • r: refresh • j/k: move")
	}
	return m.viewport.View() + "\n" + footer
}
