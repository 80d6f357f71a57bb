package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"darling/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#C7537A"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#C7537A"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func renderMessage(message domain.ChatMessage) string {
	switch message.Role {
	case domain.RoleUser:
		return userStyle.Render("you") + "     " + message.Text
	case domain.RoleAssistant:
		return assistantStyle.Render("darling") + " " + message.Text
	default:
		return dimStyle.Render("· " + message.Text)
	}
}

func renderTask(position int, task domain.Task) string {
	box := "[ ]"
	text := task.Text
	if task.Completed {
		box = successStyle.Render("[x]")
		text = dimStyle.Render(text)
	}
	return fmt.Sprintf("%3d. %s %s", position, box, text)
}
