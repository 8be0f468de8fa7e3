package store

import "fmt"

// DocumentType is the closed set of document templates a session can bind to
type DocumentType string

const (
	DocNewFeature    DocumentType = "new_feature"
	DocProcessChange DocumentType = "process_change"
	DocIntegration   DocumentType = "integration"
	DocBugFix        DocumentType = "bug_fix"
	DocDataRequest   DocumentType = "data_request"
	DocUnclear       DocumentType = "unclear"
)

// DocumentTypes lists every type in declaration order
var DocumentTypes = []DocumentType{
	DocNewFeature,
	DocProcessChange,
	DocIntegration,
	DocBugFix,
	DocDataRequest,
	DocUnclear,
}

var documentTitles = map[DocumentType]string{
	DocNewFeature:    "Business Requirements Document",
	DocProcessChange: "Process Change Request",
	DocIntegration:   "Integration Requirements",
	DocBugFix:        "Bug Fix Requirements",
	DocDataRequest:   "Data Request Specification",
}

// ParseDocumentType maps a wire value to a DocumentType
func ParseDocumentType(v string) (DocumentType, error) {
	for _, t := range DocumentTypes {
		if string(t) == v {
			return t, nil
		}
	}
	return DocUnclear, fmt.Errorf("unknown document type %q", v)
}

// Title is the human name of the document produced for this type
func (t DocumentType) Title() string {
	if title, ok := documentTitles[t]; ok {
		return title
	}
	return "Document"
}

// HasDocument reports whether the type produces a document of its own
func (t DocumentType) HasDocument() bool {
	_, ok := documentTitles[t]
	return ok
}

// IntentClassification is the result of one routing decision
type IntentClassification struct {
	DocType            DocumentType `json:"type"`
	Confidence         float64      `json:"confidence"`
	NeedsClarification bool         `json:"needs_clarification"`
	Reasoning          string       `json:"reasoning"`
}
