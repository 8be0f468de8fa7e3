package state

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/pkg/dialogue/completion"
	"ba-assistant-be/pkg/dialogue/prompt"
	"ba-assistant-be/pkg/llm"
	"ba-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	results []store.IntentClassification
	calls   int
}

func (s *stubClassifier) Classify(ctx context.Context, text string) store.IntentClassification {
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r
}

type scriptedLLM struct {
	replies []string
	errs    []error
	prompts []string
	opts    []llm.Options
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, history[len(history)-1].Content)
	s.opts = append(s.opts, llm.Apply(llm.Options{}, opts...))
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.replies[min(i, len(s.replies)-1)], nil
}

func (s *scriptedLLM) Generate(ctx context.Context, p string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: p}}, opts...)
}

type stubRenderer struct {
	err   error
	body  string
	title string
	calls int
}

func (r *stubRenderer) Render(ctx context.Context, body string, docType store.DocumentType, sessionID, title string) (string, error) {
	r.calls++
	r.body, r.title = body, title
	if r.err != nil {
		return "", r.err
	}
	return "docs/" + sessionID + "__" + string(docType) + ".md", nil
}

type stubPublisher struct {
	outcome PublishOutcome
	err     error
	got     CompletedDocument
}

func (p *stubPublisher) Publish(ctx context.Context, doc CompletedDocument) (PublishOutcome, error) {
	p.got = doc
	return p.outcome, p.err
}

// hangingPublisher waits until its context gives up
type hangingPublisher struct{}

func (hangingPublisher) Publish(ctx context.Context, doc CompletedDocument) (PublishOutcome, error) {
	<-ctx.Done()
	return PublishOutcome{}, ctx.Err()
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const docReply = "✅ Creating the document...\n[DOCUMENT_START]\n# **QR Payments**\n\n**KPI 1:** Increase conversion by 10%\n[DOCUMENT_END]\n📄 **Business Requirements Document created!**"

func newFeature() store.IntentClassification {
	return store.IntentClassification{DocType: store.DocNewFeature, Confidence: 0.92}
}

func newMachine(cls *stubClassifier, gen *scriptedLLM, r *stubRenderer, p Publisher) *Machine {
	templates := prompt.NewTemplateSet("Clarify: {user_input}", map[store.DocumentType]prompt.Template{
		store.DocNewFeature: {Title: "Business Requirements Document", Body: "BRD template {current_date}"},
	})
	return NewMachine(cls, gen, templates, completion.NewMarkerDetector(), r, p, logger.NewNop()).
		WithClock(func() time.Time { return fixedNow })
}

func TestStep_BindsDocumentTypeOnFirstMessage(t *testing.T) {
	gen := &scriptedLLM{replies: []string{"Which platform is this for?"}}
	m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, gen, &stubRenderer{}, nil)

	next, res, err := m.Step(context.Background(), "s1", nil, "хочу оплату по QR")

	require.NoError(t, err)
	require.True(t, next.Bound())
	assert.Equal(t, store.DocNewFeature, *next.DocType)
	assert.Equal(t, "BRD template 2024-05-01", next.PromptTemplate)
	assert.Equal(t, 0.20, next.Progress)
	assert.Len(t, next.History, 2)
	assert.Equal(t, PhaseActive, res.Phase)
	assert.Equal(t, "Which platform is this for?", res.Reply)
	assert.Equal(t, 0.92, res.Classification.Confidence)

	assert.Equal(t, "BRD template 2024-05-01\n\n---\n\nUser: хочу оплату по QR\n\nYour answer:", gen.prompts[0])
	assert.Equal(t, 1500, gen.opts[0].MaxTokens)
	assert.Equal(t, 0.7, gen.opts[0].Temperature)
}

func TestStep_ClarificationKeepsSessionUnbound(t *testing.T) {
	cls := &stubClassifier{results: []store.IntentClassification{
		{DocType: store.DocUnclear, NeedsClarification: true},
		newFeature(),
	}}
	gen := &scriptedLLM{replies: []string{"Is it for mobile or web?", "Great, which KPIs?"}}
	m := newMachine(cls, gen, &stubRenderer{}, nil)

	s1, res, err := m.Step(context.Background(), "s1", nil, "help me")
	require.NoError(t, err)
	assert.False(t, s1.Bound())
	assert.Equal(t, PhaseClarifying, res.Phase)
	assert.Equal(t, 0.0, s1.Progress)
	assert.Len(t, s1.History, 2)
	assert.Equal(t, "Clarify: help me", gen.prompts[0])
	assert.Equal(t, 300, gen.opts[0].MaxTokens)

	s2, _, err := m.Step(context.Background(), "s1", s1, "a new mobile feature")
	require.NoError(t, err)
	assert.True(t, s2.Bound())
	assert.Equal(t, 2, s2.BoundAt)
	assert.Equal(t, 0.20, s2.Progress)
	assert.Equal(t, 2, cls.calls)
	assert.Len(t, s1.History, 2, "committed state must not change")
}

func TestStep_ContinuesWithFullHistory(t *testing.T) {
	gen := &scriptedLLM{replies: []string{"Which platform?", "Which KPIs?"}}
	m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, gen, &stubRenderer{}, nil)

	s1, _, err := m.Step(context.Background(), "s1", nil, "QR payments")
	require.NoError(t, err)
	s2, res, err := m.Step(context.Background(), "s1", s1, "iOS and Android")
	require.NoError(t, err)

	assert.Equal(t, "Which KPIs?", res.Reply)
	assert.Len(t, s2.History, 4)
	assert.InDelta(t, 0.40, s2.Progress, 1e-9)
	assert.True(t, strings.HasSuffix(gen.prompts[1],
		"Dialogue history:\n\nUser: QR payments\nAssistant: Which platform?\nUser: iOS and Android\n\nYour answer:"))
	assert.Equal(t, 4000, gen.opts[1].MaxTokens)
}

func TestStep_CompletesDocument(t *testing.T) {
	gen := &scriptedLLM{replies: []string{"Which platform?", docReply}}
	renderer := &stubRenderer{}
	pub := &stubPublisher{outcome: PublishOutcome{PageID: "42", URL: "https://wiki/x"}}
	m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, gen, renderer, pub)

	s1, _, err := m.Step(context.Background(), "s1", nil, "QR payments")
	require.NoError(t, err)
	s2, res, err := m.Step(context.Background(), "s1", s1, "that's enough, create it")
	require.NoError(t, err)
	require.NotNil(t, res.Document)
	assert.Empty(t, pub.got.Path)

	res = m.Publish(context.Background(), res)

	assert.True(t, res.Completed)
	assert.Equal(t, PhaseCompleted, res.Phase)
	assert.True(t, s2.DocumentReady)
	assert.Equal(t, "docs/s1__new_feature.md", s2.LastDocumentPath)
	assert.Equal(t, 1.0, s2.Progress)

	assert.Equal(t, "# **QR Payments**\n\n**KPI 1:** Increase conversion by 10%", renderer.body)
	assert.Equal(t, "QR Payments", renderer.title)
	assert.Equal(t, "QR Payments", pub.got.Title)
	assert.Equal(t, s2.LastDocumentPath, pub.got.Path)

	assert.Equal(t, renderer.body, completion.ExtractDocument(res.Reply))
	assert.Contains(t, res.Reply, completion.EndMarker)
	assert.Contains(t, res.Reply, "✅ **Business Requirements Document created!**")
	assert.Contains(t, res.Reply, "📄 File: `docs/s1__new_feature.md`")
	assert.Contains(t, res.Reply, "https://wiki/x")
	assert.Equal(t, docReply, s2.History[len(s2.History)-1].Content)
}

func TestStep_PublishFailureDoesNotBlockCompletion(t *testing.T) {
	gen := &scriptedLLM{replies: []string{docReply}}
	pub := &stubPublisher{err: errors.New("confluence down")}
	m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, gen, &stubRenderer{}, pub)

	next, res, err := m.Step(context.Background(), "s1", nil, "everything at once")
	require.NoError(t, err)
	res = m.Publish(context.Background(), res)

	assert.True(t, next.DocumentReady)
	assert.True(t, res.Completed)
	assert.Nil(t, res.Publish)
	assert.Contains(t, res.Reply, "📄 File: `docs/s1__new_feature.md`")
	assert.NotContains(t, res.Reply, "Confluence")
}

func TestPublish_HangingPublisherIsBounded(t *testing.T) {
	gen := &scriptedLLM{replies: []string{docReply}}
	m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, gen, &stubRenderer{}, hangingPublisher{}).
		WithPublishTimeout(50 * time.Millisecond)

	next, res, err := m.Step(context.Background(), "s1", nil, "everything at once")
	require.NoError(t, err)

	// a caller that has already given up does not cut the publish short
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	res = m.Publish(ctx, res)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, next.DocumentReady)
	assert.True(t, res.Completed)
	assert.Nil(t, res.Publish)
	assert.Equal(t, "docs/s1__new_feature.md", res.DocumentPath)
}

func TestPublish_WithoutDocumentIsNoop(t *testing.T) {
	pub := &stubPublisher{outcome: PublishOutcome{URL: "https://wiki/x"}}
	m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}},
		&scriptedLLM{replies: []string{"Which platform?"}}, &stubRenderer{}, pub)

	_, res, err := m.Step(context.Background(), "s1", nil, "QR payments")
	require.NoError(t, err)

	assert.Equal(t, res, m.Publish(context.Background(), res))
	assert.Empty(t, pub.got.SessionID)
}

func TestStep_QueuedPublication(t *testing.T) {
	gen := &scriptedLLM{replies: []string{docReply}}
	m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, gen, &stubRenderer{},
		&stubPublisher{outcome: PublishOutcome{Queued: true}})

	_, res, err := m.Step(context.Background(), "s1", nil, "everything at once")
	require.NoError(t, err)
	res = m.Publish(context.Background(), res)

	assert.Contains(t, res.Reply, "queued")
}

func TestStep_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty message", func(t *testing.T) {
		m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, &scriptedLLM{}, &stubRenderer{}, nil)
		_, _, err := m.Step(ctx, "s1", nil, "   ")
		assert.ErrorIs(t, err, store.ErrEmptyMessage)
	})

	t.Run("generation failure leaves state unchanged", func(t *testing.T) {
		gen := &scriptedLLM{replies: []string{"Which platform?"}, errs: []error{nil, errors.New("timeout")}}
		m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, gen, &stubRenderer{}, nil)

		s1, _, err := m.Step(ctx, "s1", nil, "QR payments")
		require.NoError(t, err)

		next, _, err := m.Step(ctx, "s1", s1, "iOS")
		var genErr *store.GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, "s1", genErr.SessionID)
		assert.True(t, store.IsRetryable(err))
		assert.Nil(t, next)
		assert.Len(t, s1.History, 2)
	})

	t.Run("missing template", func(t *testing.T) {
		cls := &stubClassifier{results: []store.IntentClassification{{DocType: store.DocBugFix, Confidence: 0.9}}}
		m := newMachine(cls, &scriptedLLM{replies: []string{"x"}}, &stubRenderer{}, nil)

		_, _, err := m.Step(ctx, "s1", nil, "login is broken")
		var cfgErr *store.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, store.DocBugFix, cfgErr.DocType)
		assert.False(t, store.IsRetryable(err))
	})

	t.Run("render failure", func(t *testing.T) {
		gen := &scriptedLLM{replies: []string{docReply}}
		m := newMachine(&stubClassifier{results: []store.IntentClassification{newFeature()}}, gen,
			&stubRenderer{err: errors.New("disk full")}, nil)

		next, _, err := m.Step(ctx, "s1", nil, "everything at once")
		var renderErr *store.RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Nil(t, next)
	})
}
