// Package render writes finished documents to the output directory as
// Markdown or standalone HTML.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ba-assistant-be/pkg/store"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown" and "html"
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown document format %q", v)
}

const maxTitleLength = 50

// FileRenderer persists documents under one directory. File names start
// with the session id so a session's artifacts can be found by prefix.
type FileRenderer struct {
	dir      string
	format   Format
	markdown goldmark.Markdown
	now      func() time.Time
}

func NewFileRenderer(dir string, format Format) *FileRenderer {
	return &FileRenderer{
		dir:      dir,
		format:   format,
		markdown: NewMarkdown(),
		now:      time.Now,
	}
}

// NewMarkdown is the goldmark converter shared by file and wiki output
func NewMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// WithClock overrides the timestamp source used in file names
func (r *FileRenderer) WithClock(now func() time.Time) *FileRenderer {
	r.now = now
	return r
}

func (r *FileRenderer) Dir() string { return r.dir }

// Render writes body and returns the file path
func (r *FileRenderer) Render(ctx context.Context, body string, docType store.DocumentType, sessionID, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	content := []byte(body)
	if r.format == FormatHTML {
		var err error
		if content, err = r.htmlPage(body, docType, title); err != nil {
			return "", err
		}
	}

	path := filepath.Join(r.dir, r.FileName(docType, sessionID, title))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return path, nil
}

// FileName builds "<session>__<timestamp>_<doctype>_<title>.<ext>". The
// session id stands in for a missing title.
func (r *FileRenderer) FileName(docType store.DocumentType, sessionID, title string) string {
	session := SanitizeName(sessionID)
	name := SanitizeName(title)
	if name == "" {
		name = session
	}
	stamp := r.now().Format("20060102_150405")
	return fmt.Sprintf("%s__%s_%s_%s.%s", session, stamp, docType, name, r.format)
}

// SanitizeName drops characters that are unsafe in file names, replaces
// spaces with underscores, keeps at most 50 characters and lowercases.
func SanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		case ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))

	if utf8.RuneCountInString(s) > maxTitleLength {
		s = string([]rune(s)[:maxTitleLength])
	}
	return strings.ToLower(s)
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
<header><p>%s</p></header>
<main>
%s</main>
<footer><p>Document generated: %s</p></footer>
</body>
</html>
`

func (r *FileRenderer) htmlPage(body string, docType store.DocumentType, title string) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	page := fmt.Sprintf(pageTemplate,
		html.EscapeString(title),
		html.EscapeString(docType.Title()),
		buf.String(),
		r.now().Format("02.01.2006 15:04"),
	)
	return []byte(page), nil
}
