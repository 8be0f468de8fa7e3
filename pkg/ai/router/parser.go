package router

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ba-assistant-be/pkg/store"
)

var (
	jsonFenceOpen = regexp.MustCompile("```json\\s*")
	fence         = regexp.MustCompile("```\\s*")
)

type rawClassification struct {
	Type               *string  `json:"type"`
	Confidence         *float64 `json:"confidence"`
	NeedsClarification *bool    `json:"needs_clarification"`
	Reasoning          string   `json:"reasoning"`
}

// StripFences removes markdown code fences around a JSON payload
func StripFences(s string) string {
	s = jsonFenceOpen.ReplaceAllString(s, "")
	s = fence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseClassification decodes a router reply. type must name a known
// document type; confidence is clamped to [0,1]; a missing
// needs_clarification defaults to false except for unclear, which always
// needs clarification.
func ParseClassification(reply string) (store.IntentClassification, error) {
	var raw rawClassification
	if err := json.Unmarshal([]byte(StripFences(reply)), &raw); err != nil {
		return store.IntentClassification{}, fmt.Errorf("decode classification: %w", err)
	}
	if raw.Type == nil {
		return store.IntentClassification{}, fmt.Errorf("classification has no type")
	}

	docType, err := store.ParseDocumentType(*raw.Type)
	if err != nil {
		return store.IntentClassification{}, err
	}

	out := store.IntentClassification{
		DocType:   docType,
		Reasoning: raw.Reasoning,
	}
	if raw.Confidence != nil {
		out.Confidence = clamp(*raw.Confidence)
	}
	if raw.NeedsClarification != nil {
		out.NeedsClarification = *raw.NeedsClarification
	}
	if docType == store.DocUnclear {
		out.NeedsClarification = true
	}
	return out, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
