package prompt

import (
	"strings"
	"time"

	"ba-assistant-be/pkg/store"
)

// RenderTemplate substitutes the current date into a template body
func RenderTemplate(body string, now time.Time) string {
	return strings.ReplaceAll(body, DatePlaceholder, now.Format("2006-01-02"))
}

// FirstTurn is the opening prompt right after the document type is bound
func FirstTurn(template, userText string) string {
	var b strings.Builder
	b.WriteString(template)
	b.WriteString("\n\n---\n\nUser: ")
	b.WriteString(userText)
	b.WriteString("\n\nYour answer:")
	return b.String()
}

// WithHistory replays the bound template and the whole dialogue. history
// must already end with the new user message.
func WithHistory(template string, history []store.Message) string {
	var b strings.Builder
	b.WriteString(template)
	b.WriteString("\n\n---\n\nDialogue history:\n")
	for _, msg := range history {
		b.WriteString("\n")
		b.WriteString(roleLabel(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	b.WriteString("\n\nYour answer:")
	return b.String()
}

// Clarification asks the generator for clarifying questions
func Clarification(instruction, userText string) string {
	return strings.ReplaceAll(instruction, UserInputPlaceholder, strings.ReplaceAll(userText, `"`, `'`))
}

func roleLabel(r store.Role) string {
	if r == store.RoleUser {
		return "User"
	}
	return "Assistant"
}
