package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ba-assistant-be/internal/dto"
	"ba-assistant-be/pkg/ai/router"
	"ba-assistant-be/pkg/dialogue/completion"
	"ba-assistant-be/pkg/render"
	"ba-assistant-be/pkg/store"

	"github.com/fatih/color"
)

// assistant is what the console needs from the engine
type assistant interface {
	ProcessMessage(ctx context.Context, sessionID, message string) (*dto.SendChatResponse, error)
	GetSessionInfo(sessionID string) *dto.SessionInfoResponse
	ResetSession(ctx context.Context, sessionID string) error
}

// documents lists generated files
type documents interface {
	ListSession(sessionID string) ([]render.DocumentInfo, error)
}

const helpText = `Commands:
  /reset   start over with a new document
  /status  show the document type and progress
  /docs    list the documents generated in this session
  /help    show this help
  /quit    leave the console`

type console struct {
	assistant assistant
	docs      documents
	in        io.Reader
	out       io.Writer

	title  *color.Color
	reply  *color.Color
	info   *color.Color
	errout *color.Color
	prompt *color.Color
}

func newConsole(a assistant, docs documents, in io.Reader, out io.Writer) *console {
	return &console{
		assistant: a,
		docs:      docs,
		in:        in,
		out:       out,
		title:     color.New(color.FgCyan, color.Bold),
		reply:     color.New(color.FgWhite),
		info:      color.New(color.FgYellow),
		errout:    color.New(color.FgRed),
		prompt:    color.New(color.FgGreen, color.Bold),
	}
}

// Run reads lines until /quit, end of input or ctx is done
func (c *console) Run(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.title.Fprintln(c.out, "BA Assistant")
	c.info.Fprintf(c.out, "Session %s. Describe what you need, or /help.\n", sessionID)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		c.prompt.Fprint(c.out, "\nyou> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				return nil
			}
			line = l
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if quit := c.handle(ctx, sessionID, line); quit {
			return nil
		}
	}
}

// handle processes one line and reports whether the console should exit
func (c *console) handle(ctx context.Context, sessionID, line string) bool {
	input := router.ParseInput(line)

	switch input.Command {
	case router.CommandQuit:
		c.info.Fprintln(c.out, "Bye.")
		return true
	case router.CommandHelp:
		fmt.Fprintln(c.out, helpText)
	case router.CommandReset:
		if err := c.assistant.ResetSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
			c.errout.Fprintf(c.out, "reset failed: %v\n", err)
			return false
		}
		c.info.Fprintln(c.out, "Session reset. Describe your next need.")
	case router.CommandStatus:
		c.status(sessionID)
	case router.CommandDocs:
		c.listDocs(sessionID)
	default:
		c.send(ctx, sessionID, input.Arg)
	}
	return false
}

func (c *console) send(ctx context.Context, sessionID, message string) {
	c.info.Fprintln(c.out, "thinking...")

	res, err := c.assistant.ProcessMessage(ctx, sessionID, message)
	if err != nil {
		c.errout.Fprintf(c.out, "error: %v\n", err)
		return
	}

	text := res.Response
	if res.DocumentReady {
		// markers are for transports; print the body and the summary plainly
		text = strings.NewReplacer(completion.StartMarker, "", completion.EndMarker, "").Replace(text)
	}
	c.title.Fprint(c.out, "assistant> ")
	c.reply.Fprintln(c.out, strings.TrimSpace(text))

	if res.DocType != "" {
		c.info.Fprintf(c.out, "[%s, progress %.0f%%]\n", res.DocType, res.Progress*100)
	}
}

func (c *console) status(sessionID string) {
	info := c.assistant.GetSessionInfo(sessionID)
	if info.DocType == "" {
		c.info.Fprintf(c.out, "Status: %s, no document type yet\n", info.Status)
		return
	}
	c.info.Fprintf(c.out, "Status: %s, type %s, progress %.0f%%, %d messages\n",
		info.Status, info.DocType, info.Progress*100, info.MessageCount)
	if info.DocumentPath != "" {
		c.info.Fprintf(c.out, "Document: %s\n", info.DocumentPath)
	}
}

func (c *console) listDocs(sessionID string) {
	docs, err := c.docs.ListSession(sessionID)
	if err != nil {
		c.errout.Fprintf(c.out, "list failed: %v\n", err)
		return
	}
	if len(docs) == 0 {
		c.info.Fprintln(c.out, "No documents yet.")
		return
	}
	for _, d := range docs {
		fmt.Fprintf(c.out, "  %s  (%d bytes, %s)\n", d.Filename, d.Size, d.UpdatedAt.Format("2006-01-02 15:04"))
	}
}
