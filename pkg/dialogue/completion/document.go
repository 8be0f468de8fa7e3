package completion

import (
	"regexp"
	"strings"
)

// DefaultTitle is used when a document has no heading
const DefaultTitle = "AI BA Document"

var (
	headingLine = regexp.MustCompile(`(?m)^##? (.+)$`)
	emphasis    = regexp.MustCompile(`\*+`)
)

// ExtractTitle returns the first level 1 or 2 heading with emphasis removed
func ExtractTitle(document string) string {
	m := headingLine.FindStringSubmatch(strings.ReplaceAll(document, "\r\n", "\n"))
	if m == nil {
		return DefaultTitle
	}
	title := strings.TrimSpace(emphasis.ReplaceAllString(m[1], ""))
	if title == "" {
		return DefaultTitle
	}
	return title
}
