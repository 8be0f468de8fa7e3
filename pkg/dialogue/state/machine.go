// Package state runs one dialogue turn: routing, template binding, prompt
// assembly, completion detection and the hand-off of a finished document.
//
// Step never mutates the state it is given. It works on a clone and returns
// the next state, so a failed turn leaves the committed state untouched and
// the caller may resubmit the same message.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/pkg/ai/router"
	"ba-assistant-be/pkg/dialogue/completion"
	"ba-assistant-be/pkg/dialogue/prompt"
	"ba-assistant-be/pkg/llm"
	"ba-assistant-be/pkg/store"
)

const (
	dialogueTemperature    = 0.7
	clarificationMaxTokens = 300
	firstTurnMaxTokens     = 1500
	historyTurnMaxTokens   = 4000

	// DefaultPublishTimeout bounds the synchronous publish step
	DefaultPublishTimeout = time.Minute
)

// Phase is the externally meaningful position of a session in the dialogue
type Phase string

const (
	PhaseClarifying Phase = "clarifying"
	PhaseActive     Phase = "active"
	PhaseCompleted  Phase = "completed"
)

// Renderer persists a finished document and returns its path
type Renderer interface {
	Render(ctx context.Context, body string, docType store.DocumentType, sessionID, title string) (string, error)
}

// CompletedDocument is handed to the publisher after rendering
type CompletedDocument struct {
	SessionID string
	DocType   store.DocumentType
	Title     string
	Body      string
	Path      string
}

// PublishOutcome reports where a document was published. Queued means the
// publication continues in the background.
type PublishOutcome struct {
	PageID string
	URL    string
	Queued bool
}

// Publisher is the optional extract, diagram and wiki publish pipeline
type Publisher interface {
	Publish(ctx context.Context, doc CompletedDocument) (PublishOutcome, error)
}

// TurnResult describes what one turn produced. Document is set on the turn
// that completes the session and carries what Publish hands on.
type TurnResult struct {
	Reply          string
	Phase          Phase
	Classification *store.IntentClassification
	Completed      bool
	DocumentPath   string
	Document       *CompletedDocument
	Publish        *PublishOutcome
}

type Machine struct {
	classifier router.Classifier
	llm        llm.LLMProvider
	templates  *prompt.TemplateSet
	detector   completion.Detector
	renderer   Renderer
	publisher  Publisher
	logger     logger.ILogger
	now        func() time.Time

	publishTimeout time.Duration
}

// NewMachine wires a state machine. publisher may be nil.
func NewMachine(
	classifier router.Classifier,
	provider llm.LLMProvider,
	templates *prompt.TemplateSet,
	detector completion.Detector,
	renderer Renderer,
	publisher Publisher,
	log logger.ILogger,
) *Machine {
	return &Machine{
		classifier: classifier,
		llm:        provider,
		templates:  templates,
		detector:   detector,
		renderer:   renderer,
		publisher:  publisher,
		logger:     log,
		now:        time.Now,

		publishTimeout: DefaultPublishTimeout,
	}
}

// WithClock replaces the time source
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// WithPublishTimeout bounds the publish step; zero or less keeps the default
func (m *Machine) WithPublishTimeout(d time.Duration) *Machine {
	if d > 0 {
		m.publishTimeout = d
	}
	return m
}

// Step applies one user message to committed and returns the next state.
// committed may be nil for a session that does not exist yet.
func (m *Machine) Step(ctx context.Context, sessionID string, committed *store.ConversationState, userText string) (*store.ConversationState, TurnResult, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, TurnResult{}, store.ErrEmptyMessage
	}

	now := m.now()
	next := committed.Clone()
	if next == nil {
		next = store.NewConversationState(sessionID, now)
	}

	var (
		result TurnResult
		err    error
	)
	if !next.Bound() {
		result, err = m.route(ctx, next, userText, now)
	} else {
		result, err = m.continueDialogue(ctx, next, userText)
	}
	if err != nil {
		return nil, TurnResult{}, err
	}

	next.Progress = completion.EstimateProgress(next)
	next.UpdatedAt = now
	return next, result, nil
}

func (m *Machine) route(ctx context.Context, s *store.ConversationState, userText string, now time.Time) (TurnResult, error) {
	cls := m.classifier.Classify(ctx, userText)

	if cls.NeedsClarification {
		reply, err := m.llm.Generate(ctx, prompt.Clarification(m.templates.Clarification, userText),
			llm.WithTemperature(dialogueTemperature),
			llm.WithMaxTokens(clarificationMaxTokens),
			llm.WithModelHint(llm.HintAssistant),
		)
		if err != nil {
			return TurnResult{}, &store.GenerationError{SessionID: s.SessionID, Err: err}
		}
		s.Append(
			store.Message{Role: store.RoleUser, Content: userText},
			store.Message{Role: store.RoleAssistant, Content: reply},
		)
		m.logger.Info("STATE", "Clarification requested", map[string]interface{}{
			"session_id": s.SessionID,
			"reasoning":  cls.Reasoning,
		})
		return TurnResult{Reply: reply, Phase: PhaseClarifying, Classification: &cls}, nil
	}

	tpl, ok := m.templates.Lookup(cls.DocType)
	if !ok {
		return TurnResult{}, &store.ConfigurationError{SessionID: s.SessionID, DocType: cls.DocType, Reason: "no template registered"}
	}

	docType := cls.DocType
	s.DocType = &docType
	s.PromptTemplate = prompt.RenderTemplate(tpl.Body, now)
	s.BoundAt = len(s.History)

	reply, err := m.llm.Generate(ctx, prompt.FirstTurn(s.PromptTemplate, userText),
		llm.WithTemperature(dialogueTemperature),
		llm.WithMaxTokens(firstTurnMaxTokens),
		llm.WithModelHint(llm.HintAssistant),
	)
	if err != nil {
		return TurnResult{}, &store.GenerationError{SessionID: s.SessionID, Err: err}
	}
	s.Append(
		store.Message{Role: store.RoleUser, Content: userText},
		store.Message{Role: store.RoleAssistant, Content: reply},
	)

	m.logger.Info("STATE", "Document type bound", map[string]interface{}{
		"session_id": s.SessionID,
		"doc_type":   docType,
		"confidence": cls.Confidence,
	})

	result, err := m.afterReply(ctx, s, reply)
	result.Classification = &cls
	return result, err
}

func (m *Machine) continueDialogue(ctx context.Context, s *store.ConversationState, userText string) (TurnResult, error) {
	s.Append(store.Message{Role: store.RoleUser, Content: userText})

	reply, err := m.llm.Generate(ctx, prompt.WithHistory(s.PromptTemplate, s.History),
		llm.WithTemperature(dialogueTemperature),
		llm.WithMaxTokens(historyTurnMaxTokens),
		llm.WithModelHint(llm.HintAssistant),
	)
	if err != nil {
		return TurnResult{}, &store.GenerationError{SessionID: s.SessionID, Err: err}
	}
	s.Append(store.Message{Role: store.RoleAssistant, Content: reply})

	return m.afterReply(ctx, s, reply)
}

// afterReply checks the latest reply for a finished document and, if so,
// renders it and marks the state ready. Publishing is left to Publish so a
// slow wiki never holds back the turn.
func (m *Machine) afterReply(ctx context.Context, s *store.ConversationState, reply string) (TurnResult, error) {
	if !m.detector.IsComplete(reply, *s.DocType) {
		return TurnResult{Reply: reply, Phase: PhaseActive}, nil
	}

	body := m.detector.Extract(reply)
	title := completion.ExtractTitle(body)

	path, err := m.renderer.Render(ctx, body, *s.DocType, s.SessionID, title)
	if err != nil {
		return TurnResult{}, &store.RenderError{SessionID: s.SessionID, Err: err}
	}

	s.DocumentReady = true
	s.LastDocumentPath = path

	m.logger.Info("STATE", "Document generated", map[string]interface{}{
		"session_id": s.SessionID,
		"doc_type":   *s.DocType,
		"path":       path,
	})

	doc := &CompletedDocument{
		SessionID: s.SessionID,
		DocType:   *s.DocType,
		Title:     title,
		Body:      body,
		Path:      path,
	}

	return TurnResult{
		Reply:        m.completedReply(doc, nil),
		Phase:        PhaseCompleted,
		Completed:    true,
		DocumentPath: path,
		Document:     doc,
	}, nil
}

// Publish runs the optional publish step for a completing turn and returns
// the result with the summary updated. It is detached from ctx cancellation
// and bounded by the publish timeout. Every failure is swallowed; a document
// without a wiki page is still done.
func (m *Machine) Publish(ctx context.Context, result TurnResult) TurnResult {
	if m.publisher == nil || result.Document == nil {
		return result
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.publishTimeout)
	defer cancel()

	doc := *result.Document
	outcome, err := m.publisher.Publish(pubCtx, doc)
	if err == nil {
		result.Publish = &outcome
		result.Reply = m.completedReply(&doc, &outcome)
		return result
	}

	var pubErr *store.PublishError
	if !errors.As(err, &pubErr) {
		pubErr = &store.PublishError{SessionID: doc.SessionID, Err: err}
	}
	m.logger.Error("STATE", "Publish skipped", map[string]interface{}{
		"session_id": doc.SessionID,
		"error":      pubErr.Error(),
	})
	return result
}

func (m *Machine) completedReply(doc *CompletedDocument, outcome *PublishOutcome) string {
	return completion.Wrap(doc.Body) + m.summary(doc.DocType, doc.Path, outcome)
}

func (m *Machine) summary(docType store.DocumentType, path string, outcome *PublishOutcome) string {
	name := docType.Title()
	if tpl, ok := m.templates.Lookup(docType); ok && tpl.Title != "" {
		name = tpl.Title
	}

	rule := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n%s\n✅ **%s created!**\n📄 File: `%s`\n", rule, name, path)
	switch {
	case outcome == nil:
	case outcome.Queued:
		b.WriteString("🕒 Publication to Confluence is queued\n")
	case outcome.URL != "":
		fmt.Fprintf(&b, "🌐 Published to Confluence: %s\n", outcome.URL)
	}
	fmt.Fprintf(&b, "%s\n\n🔄 Session completed. Use /reset to start a new document.", rule)
	return b.String()
}
