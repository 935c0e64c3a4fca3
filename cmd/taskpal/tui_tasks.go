package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"taskpal/internal/api"
)

type tasksUpdatedMsg struct{}

// tasksModel is the task list tab: browse, add, toggle and delete.
type tasksModel struct {
	container *Container

	viewport viewport.Model
	input    textinput.Model
	adding   bool
	cursor   int
	width    int
}

func newTasksModel(container *Container) tasksModel {
	input := textinput.New()
	input.Placeholder = "New task title..."
	input.Prompt = "+ "
	input.CharLimit = 200

	vp := viewport.New(80, 20)

	return tasksModel{container: container, input: input, viewport: vp}
}

func (m *tasksModel) setSize(width, height int) {
	m.width = width
	m.viewport.Width = width
	m.viewport.Height = height - 2 // input + status row
	m.input.Width = width - 4
	m.reload()
}

// reload re-renders the viewport from the store snapshot.
func (m *tasksModel) reload() {
	snap := m.container.Tasks.Snapshot()
	if m.cursor >= len(snap.Tasks) {
		m.cursor = len(snap.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	var b strings.Builder
	if snap.Loading {
		b.WriteString(statusStyle.Render("Loading tasks..."))
	} else if len(snap.Tasks) == 0 {
		b.WriteString(statusStyle.Render("No tasks yet. Press 'a' to add one."))
	}
	for i, t := range snap.Tasks {
		b.WriteString(m.renderTask(i, t))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func (m *tasksModel) renderTask(i int, t api.Task) string {
	pointer := "  "
	if i == m.cursor {
		pointer = "> "
	}
	marker := "[ ]"
	title := t.Title
	if t.IsCompleted {
		marker = "[x]"
		title = doneStyle.Render(title)
	}
	line := fmt.Sprintf("%s%s %s", pointer, marker, title)
	if t.DueDate != nil {
		line += statusStyle.Render(fmt.Sprintf("  due %s", t.DueDate.Format("Jan 2")))
	}
	if t.Description != "" {
		line += "\n" + statusStyle.Render("      "+t.Description)
	}
	return line
}

func (m tasksModel) Update(msg tea.Msg) (tasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksUpdatedMsg:
		m.reload()
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			switch msg.Type {
			case tea.KeyEnter:
				title := strings.TrimSpace(m.input.Value())
				m.adding = false
				m.input.Reset()
				m.input.Blur()
				if title == "" {
					return m, nil
				}
				return m, m.createTask(title)
			case tea.KeyEsc:
				m.adding = false
				m.input.Reset()
				m.input.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		snap := m.container.Tasks.Snapshot()
		switch msg.String() {
		case "a":
			m.adding = true
			m.input.Focus()
			return m, textinput.Blink
		case "j", "down":
			if m.cursor < len(snap.Tasks)-1 {
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
		case "x", " ":
			if m.cursor < len(snap.Tasks) {
				t := snap.Tasks[m.cursor]
				return m, m.toggleTask(t.ID, !t.IsCompleted)
			}
			return m, nil
		case "d":
			if m.cursor < len(snap.Tasks) {
				return m, m.deleteTask(snap.Tasks[m.cursor].ID)
			}
			return m, nil
		case "r":
			return m, m.fetch()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m tasksModel) fetch() tea.Cmd {
	container := m.container
	return func() tea.Msg {
		_ = container.Tasks.Fetch(context.Background())
		return tasksUpdatedMsg{}
	}
}

func (m tasksModel) createTask(title string) tea.Cmd {
	container := m.container
	return func() tea.Msg {
		_, _ = container.Tasks.Create(context.Background(), api.TaskCreate{Title: title})
		return tasksUpdatedMsg{}
	}
}

func (m tasksModel) toggleTask(id string, completed bool) tea.Cmd {
	container := m.container
	return func() tea.Msg {
		_, _ = container.Tasks.ToggleComplete(context.Background(), id, completed)
		return tasksUpdatedMsg{}
	}
}

func (m tasksModel) deleteTask(id string) tea.Cmd {
	container := m.container
	return func() tea.Msg {
		_ = container.Tasks.Delete(context.Background(), id)
		return tasksUpdatedMsg{}
	}
}

func (m tasksModel) View() string {
	var footer string
	switch {
	case m.adding:
		footer = m.input.View()
	default:
		snap := m.container.Tasks.Snapshot()
		if snap.Err != "" {
			footer = errStyle.Render("✗ " + snap.Err)
		} else {
			footer = helpStyle.Render("a: add • x: toggle • d: delete • r: refresh • j/k: move")
		}
	}
	return m.viewport.View() + "\n" + footer
}
