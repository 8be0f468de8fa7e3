package confluence

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"ba-assistant-be/pkg/diagram"
)

// storage format is XHTML, so void elements must self-close
var storageMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithXHTML()),
)

// MermaidMacro wraps Mermaid markup in the mermaid structured macro. A
// "]]>" inside the markup is split across two CDATA sections.
func MermaidMacro(markup string) string {
	safe := strings.ReplaceAll(markup, "]]>", "]]]]><![CDATA[>")
	return "<ac:structured-macro ac:name=\"mermaid\" ac:schema-version=\"1\">\n" +
		"<ac:plain-text-body><![CDATA[" + safe + "]]></ac:plain-text-body>\n" +
		"</ac:structured-macro>\n"
}

// diagramHeading turns "process_flow" into "Process Flow"
func diagramHeading(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// StoragePage renders the page body: the document converted from Markdown,
// then a diagrams section with one macro per diagram.
func StoragePage(title, document string, diagrams []diagram.Diagram) (string, error) {
	var body bytes.Buffer
	if err := storageMarkdown.Convert([]byte(document), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n<hr/>\n", html.EscapeString(title))
	b.Write(body.Bytes())

	if len(diagrams) > 0 {
		b.WriteString("<hr/>\n<h1>Diagrams</h1>\n")
		for _, d := range diagrams {
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(diagramHeading(d.Name)))
			b.WriteString(MermaidMacro(d.Markup))
		}
	}
	return b.String(), nil
}
