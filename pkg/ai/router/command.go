package router

import "strings"

// Command is a slash directive typed into the chat instead of a message
type Command string

const (
	CommandNone   Command = ""
	CommandReset  Command = "/reset"
	CommandStatus Command = "/status"
	CommandDocs   Command = "/docs"
	CommandHelp   Command = "/help"
	CommandQuit   Command = "/quit"
)

var commands = map[string]Command{
	"/reset":  CommandReset,
	"/status": CommandStatus,
	"/docs":   CommandDocs,
	"/help":   CommandHelp,
	"/quit":   CommandQuit,
	"/exit":   CommandQuit,
}

// ParsedInput splits a raw chat line into a command and its argument
type ParsedInput struct {
	Original string
	Command  Command
	Arg      string
}

// ParseInput recognises "/reset", "/status", "/docs", "/help" and "/quit"
// (also "/exit"), case-insensitively. Anything else is a plain message.
func ParseInput(input string) *ParsedInput {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, "/") {
		word, _, _ := strings.Cut(lower, " ")
		if c, ok := commands[word]; ok {
			return &ParsedInput{Original: input, Command: c, Arg: strings.TrimSpace(trimmed[len(word):])}
		}
	}

	return &ParsedInput{Original: input, Command: CommandNone, Arg: trimmed}
}

// IsCommand reports whether the input was a directive
func (p *ParsedInput) IsCommand() bool {
	return p.Command != CommandNone
}
