// Package router classifies the opening user request into a document type
// with a single low-temperature call to the text generator.
package router

import (
	"context"
	"fmt"
	"strings"

	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/pkg/llm"
	"ba-assistant-be/pkg/store"
)

const (
	routerTemperature = 0.1
	routerMaxTokens   = 150
)

const routerPrompt = `Determine which document the user needs.

Available types:
- new_feature: new functionality (biometric login, QR payments, dark mode, a new feature)
- process_change: change a business process (speed up KYC, automate, simplify)
- integration: integrate with another system (connect 1C, partner API, a payment provider)
- bug_fix: fix a bug or a problem
- data_request: a report, analytics or statistics are needed
- unclear: it is not clear what is needed

User request: "%s"

IMPORTANT: return ONLY valid JSON without markdown fences:
{"type": "new_feature", "confidence": 0.9, "needs_clarification": false, "reasoning": "..."}

If the request is unclear or confidence < 0.7, set needs_clarification=true
`

// Classifier is what the state machine needs from a router
type Classifier interface {
	Classify(ctx context.Context, text string) store.IntentClassification
}

// Router never fails: any generator, parse or type error yields an Unclear
// classification that asks for clarification.
type Router struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

var _ Classifier = (*Router)(nil)

func NewRouter(provider llm.LLMProvider, log logger.ILogger) *Router {
	return &Router{llm: provider, logger: log}
}

func (r *Router) Classify(ctx context.Context, text string) store.IntentClassification {
	prompt := fmt.Sprintf(routerPrompt, strings.ReplaceAll(text, `"`, `'`))

	reply, err := r.llm.Generate(ctx, prompt,
		llm.WithTemperature(routerTemperature),
		llm.WithMaxTokens(routerMaxTokens),
		llm.WithModelHint(llm.HintRouter),
	)
	if err != nil {
		return r.unclear(&store.ClassificationError{Err: err})
	}

	result, err := ParseClassification(reply)
	if err != nil {
		return r.unclear(&store.ClassificationError{Err: err})
	}

	r.logger.Info("ROUTER", "Intent classified", map[string]interface{}{
		"type":                result.DocType,
		"confidence":          result.Confidence,
		"needs_clarification": result.NeedsClarification,
	})
	return result
}

func (r *Router) unclear(err error) store.IntentClassification {
	r.logger.Warn("ROUTER", "Intent routing failed", map[string]interface{}{"error": err.Error()})
	return store.IntentClassification{
		DocType:            store.DocUnclear,
		Confidence:         0,
		NeedsClarification: true,
		Reasoning:          "Error: " + err.Error(),
	}
}
