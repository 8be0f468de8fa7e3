// Package prompt holds the per-document-type templates and assembles the
// prompts sent to the text generator on each turn.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ba-assistant-be/pkg/store"
)

//go:embed templates/default.yaml
var defaultTemplates []byte

const (
	DatePlaceholder      = "{current_date}"
	UserInputPlaceholder = "{user_input}"
)

// Template drives the dialogue for one document type
type Template struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type fileFormat struct {
	Clarification string              `yaml:"clarification"`
	Templates     map[string]Template `yaml:"templates"`
}

// TemplateSet maps document types to templates. New types are added by
// configuration, not by code.
type TemplateSet struct {
	Clarification string
	templates     map[store.DocumentType]Template
}

// DefaultTemplateSet returns the built-in templates
func DefaultTemplateSet() *TemplateSet {
	set, err := parse(defaultTemplates, &TemplateSet{templates: map[store.DocumentType]Template{}})
	if err != nil {
		panic(fmt.Sprintf("built-in templates are invalid: %v", err))
	}
	return set
}

// LoadTemplateSet returns the built-in templates overridden by the YAML file
// at path. An empty path yields the defaults.
func LoadTemplateSet(path string) (*TemplateSet, error) {
	set := DefaultTemplateSet()
	if path == "" {
		return set, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}
	return parse(data, set)
}

func parse(data []byte, base *TemplateSet) (*TemplateSet, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if strings.TrimSpace(f.Clarification) != "" {
		base.Clarification = f.Clarification
	}
	for key, tpl := range f.Templates {
		docType, err := store.ParseDocumentType(key)
		if err != nil {
			return nil, err
		}
		if docType == store.DocUnclear {
			return nil, fmt.Errorf("template for %q is not allowed", key)
		}
		if strings.TrimSpace(tpl.Body) == "" {
			return nil, fmt.Errorf("template %q has an empty body", key)
		}
		if tpl.Title == "" {
			tpl.Title = docType.Title()
		}
		base.templates[docType] = tpl
	}
	return base, nil
}

// NewTemplateSet builds a set from explicit entries
func NewTemplateSet(clarification string, templates map[store.DocumentType]Template) *TemplateSet {
	set := &TemplateSet{Clarification: clarification, templates: map[store.DocumentType]Template{}}
	for k, v := range templates {
		set.templates[k] = v
	}
	return set
}

// Lookup returns the template bound to a document type
func (s *TemplateSet) Lookup(t store.DocumentType) (Template, bool) {
	tpl, ok := s.templates[t]
	return tpl, ok
}

// Types lists the document types that have a template
func (s *TemplateSet) Types() []store.DocumentType {
	var out []store.DocumentType
	for _, t := range store.DocumentTypes {
		if _, ok := s.templates[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
