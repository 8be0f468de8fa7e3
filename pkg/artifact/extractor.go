// Package artifact mines structured items out of a finished document body.
// Extraction is best-effort: a missing pattern yields an empty list, never an
// error, and every list keeps the order of appearance in the source text.
package artifact

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	useCaseHeader = regexp.MustCompile(`(?s)### UC-(\d+):\s*(.+?)\n\*\*Actor:\*\*\s*(.+?)\n\n\*\*Preconditions:\*\*\n(.*?)\n\n\*\*Main Flow:\*\*\n`)
	numberedLine  = regexp.MustCompile(`^\d+\.`)
	ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)
	userStory     = regexp.MustCompile(`(?i)As a (.+?), I want (.+?) so that (.+?)(?:\.|$)`)
	kpiLine       = regexp.MustCompile(`\*\*KPI \d+:\*\*\s*(.+)`)
)

const (
	alternativeFlowsHeading = "\n\n**Alternative Flows:**"
	postconditionsHeading   = "**Postconditions:**\n"
	nextSubsection          = "\n### "
	nextSection             = "\n## "
)

// ExtractAll runs every extractor over the document
func ExtractAll(document string) Artifacts {
	return Artifacts{
		UseCases:    ExtractUseCases(document),
		UserStories: ExtractUserStories(document),
		KPIs:        ExtractKPIs(document),
	}
}

// ExtractUseCases finds "### UC-nnn: title" sections with an actor line, a
// precondition bullet block and a numbered main flow. The main flow stops at
// the "Alternative Flows" heading, the next heading or the end of text.
func ExtractUseCases(document string) []UseCase {
	doc := normalize(document)
	useCases := []UseCase{}

	pos := 0
	for pos < len(doc) {
		loc := useCaseHeader.FindStringSubmatchIndex(doc[pos:])
		if loc == nil {
			break
		}
		group := func(i int) string { return doc[pos+loc[2*i] : pos+loc[2*i+1]] }

		flowStart := pos + loc[1]
		flowEnd := terminatorIndex(doc, flowStart, alternativeFlowsHeading, nextSubsection, nextSection)
		sectionEnd := terminatorIndex(doc, flowStart, nextSubsection, nextSection, "\n---")

		uc := UseCase{
			ID:               "UC-" + group(1),
			Title:            strings.TrimSpace(group(2)),
			Actor:            strings.TrimSpace(group(3)),
			Preconditions:    bullets(group(4)),
			MainFlow:         numbered(doc[flowStart:flowEnd]),
			AlternativeFlows: []string{},
			Postconditions:   []string{},
			Priority:         DefaultUseCasePriority,
		}

		if flowEnd < sectionEnd {
			tail := doc[flowEnd:sectionEnd]
			if i := strings.Index(tail, alternativeFlowsHeading); i >= 0 {
				uc.AlternativeFlows = bullets(blockAfter(tail[i+len(alternativeFlowsHeading):]))
			}
			if i := strings.Index(tail, postconditionsHeading); i >= 0 {
				uc.Postconditions = bullets(blockAfter(tail[i+len(postconditionsHeading):]))
			}
		}

		useCases = append(useCases, uc)
		pos = flowEnd
	}

	return useCases
}

// ExtractUserStories finds every "As a X, I want Y so that Z" sentence
func ExtractUserStories(document string) []UserStory {
	stories := []UserStory{}
	for i, m := range userStory.FindAllStringSubmatch(normalize(document), -1) {
		asA := strings.TrimSpace(m[1])
		iWant := strings.TrimSpace(m[2])
		stories = append(stories, UserStory{
			ID:                 fmt.Sprintf("US-%03d", i+1),
			Title:              fmt.Sprintf("%s wants %s...", asA, truncateRunes(iWant, 30)),
			AsA:                asA,
			IWant:              iWant,
			SoThat:             strings.TrimSpace(m[3]),
			AcceptanceCriteria: []string{},
			Priority:           DefaultUserStoryPriority,
		})
	}
	return stories
}

// ExtractKPIs finds every "**KPI n:**" labeled line
func ExtractKPIs(document string) []KPI {
	kpis := []KPI{}
	for i, m := range kpiLine.FindAllStringSubmatch(normalize(document), -1) {
		text := strings.TrimSpace(m[1])
		kpis = append(kpis, KPI{
			Name:        fmt.Sprintf("KPI-%d", i+1),
			Description: text,
			Target:      UnspecifiedTarget,
			Metric:      text,
			Category:    DefaultKPICategory,
		})
	}
	return kpis
}

func normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// terminatorIndex returns the absolute index of the earliest marker after
// from, or len(doc) when none occurs.
func terminatorIndex(doc string, from int, markers ...string) int {
	end := len(doc)
	for _, m := range markers {
		if i := strings.Index(doc[from:], m); i >= 0 && from+i < end {
			end = from + i
		}
	}
	return end
}

// blockAfter returns the text up to the first blank line
func blockAfter(s string) string {
	s = strings.TrimLeft(s, "\n")
	if i := strings.Index(s, "\n\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func bullets(block string) []string {
	out := []string{}
	for _, line := range strings.Split(block, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "-") {
			continue
		}
		item := strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "- "))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func numbered(block string) []string {
	out := []string{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if numberedLine.MatchString(line) {
			out = append(out, ordinalPrefix.ReplaceAllString(line, ""))
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
