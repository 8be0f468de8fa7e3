// Package completion decides when an assistant reply carries a finished
// document and how far a session has progressed toward one.
package completion

import (
	"strings"

	"ba-assistant-be/pkg/store"
)

const (
	StartMarker = "[DOCUMENT_START]"
	EndMarker   = "[DOCUMENT_END]"
)

// Detector is a best-effort predicate over untrusted generated text.
// The state machine depends only on this interface.
type Detector interface {
	IsComplete(reply string, docType store.DocumentType) bool
	Extract(reply string) string
}

// MarkerDetector accepts a reply when it holds the start marker. As a
// fallback it accepts a file-reference marker, or a completion keyword
// together with the title of the session's document type.
type MarkerDetector struct {
	FileMarkers        []string
	CompletionKeywords []string
}

var _ Detector = (*MarkerDetector)(nil)

func NewMarkerDetector() *MarkerDetector {
	return &MarkerDetector{
		FileMarkers:        []string{"📄 File:", "📄 Файл:"},
		CompletionKeywords: []string{"created", "создан"},
	}
}

func (d *MarkerDetector) IsComplete(reply string, docType store.DocumentType) bool {
	if HasStartMarker(reply) {
		return true
	}

	for _, m := range d.FileMarkers {
		if strings.Contains(reply, m) {
			return true
		}
	}

	if !docType.HasDocument() || !strings.Contains(reply, docType.Title()) {
		return false
	}
	for _, kw := range d.CompletionKeywords {
		if strings.Contains(reply, kw) {
			return true
		}
	}

	return false
}

func (d *MarkerDetector) Extract(reply string) string {
	return ExtractDocument(reply)
}

// HasStartMarker reports whether text opens a document block
func HasStartMarker(text string) bool {
	return strings.Contains(text, StartMarker)
}

// ExtractDocument returns the trimmed text between the markers, everything
// after the start marker when the end marker is missing, or the whole reply
// when there is no start marker.
func ExtractDocument(reply string) string {
	start := strings.Index(reply, StartMarker)
	if start < 0 {
		return reply
	}
	body := reply[start+len(StartMarker):]
	if end := strings.Index(body, EndMarker); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// Wrap encloses a document body in the marker pair
func Wrap(body string) string {
	return StartMarker + "\n" + body + "\n" + EndMarker
}
