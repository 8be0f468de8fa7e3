package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ba-assistant-be/internal/config"
	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/entity"
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/internal/pkg/mailer"
	"ba-assistant-be/internal/repository/contract"
	"ba-assistant-be/internal/repository/memory"
	"ba-assistant-be/pkg/dialogue/completion"
	"ba-assistant-be/pkg/dialogue/state"
	"ba-assistant-be/pkg/events"
	"ba-assistant-be/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const assistantModule = "ENGINE"

// IAssistantService is the synthesis engine entry point shared by the REST,
// websocket and console transports. Turns for one session run one at a time
// in submission order.
type IAssistantService interface {
	ProcessMessage(ctx context.Context, sessionID, message string) (*dto.SendChatResponse, error)
	GetSessionInfo(sessionID string) *dto.SessionInfoResponse
	ResetSession(ctx context.Context, sessionID string) error
	ListActiveSessions() []*dto.SessionInfoResponse
	GetHistory(ctx context.Context, sessionID string) ([]dto.ChatHistoryResponse, error)
	Cleanup(ctx context.Context, olderThanDays int) (*dto.CleanupResponse, error)
	Statistics(ctx context.Context) (*dto.StatsResponse, error)
	RunJanitor(ctx context.Context) error
	// KeepWhile protects sessions from idle sweeps while fn reports true
	KeepWhile(fn func(sessionID string) bool)
	Close()
}

type assistantService struct {
	registry  *memory.SessionRegistry
	machine   *state.Machine
	logStore  contract.SessionLogStore
	events    events.Publisher
	notifier  mailer.IEmailService
	logger    logger.ILogger
	tracer    trace.Tracer
	cfg       config.EngineConfig
	now       func() time.Time
	keepAlive func(sessionID string) bool

	background sync.WaitGroup
}

// NewAssistantService wires the engine. logStore, eventPub and notifier are
// optional and may be nil.
func NewAssistantService(
	registry *memory.SessionRegistry,
	machine *state.Machine,
	logStore contract.SessionLogStore,
	eventPub events.Publisher,
	notifier mailer.IEmailService,
	log logger.ILogger,
	cfg config.EngineConfig,
) IAssistantService {
	return &assistantService{
		registry: registry,
		machine:  machine,
		logStore: logStore,
		events:   eventPub,
		notifier: notifier,
		logger:   log,
		tracer:   otel.Tracer("ba-assistant-be/engine"),
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *assistantService) KeepWhile(fn func(sessionID string) bool) {
	s.keepAlive = fn
}

func (s *assistantService) acquire(ctx context.Context, sessionID string) (*memory.Lease, error) {
	waitCtx := ctx
	if s.cfg.LockWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.cfg.LockWait)
		defer cancel()
	}

	lease, err := s.registry.Acquire(waitCtx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", store.ErrSessionBusy, sessionID)
	}
	return lease, nil
}

func (s *assistantService) ProcessMessage(ctx context.Context, sessionID, message string) (*dto.SendChatResponse, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, span := s.tracer.Start(ctx, "engine.ProcessMessage",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	lease, err := s.acquire(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock wait")
		return nil, err
	}
	defer lease.Release()

	committed := lease.State()
	next, result, err := s.runTurn(ctx, sessionID, committed, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		s.logger.Error(assistantModule, "Turn failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
			"retryable":  store.IsRetryable(err),
		})
		return nil, err
	}

	lease.Commit(next)
	// the document is committed before the wiki is tried, so a slow
	// publisher cannot lose it
	result = s.machine.Publish(ctx, result)
	// log writes stay under the lease so rows keep the turn order
	s.logTurn(ctx, committed, next, message, result)
	lease.Release()

	span.SetAttributes(
		attribute.String("dialogue.phase", string(result.Phase)),
		attribute.Float64("dialogue.progress", next.Progress),
	)

	if result.Completed {
		s.announceDocument(next, result)
	}

	return toChatResponse(next, result), nil
}

type turnOutcome struct {
	next   *store.ConversationState
	result state.TurnResult
	err    error
}

// runTurn bounds one state machine step by the turn timeout. On timeout the
// committed state is untouched and the step is abandoned with its context
// cancelled.
func (s *assistantService) runTurn(ctx context.Context, sessionID string, committed *store.ConversationState, message string) (*store.ConversationState, state.TurnResult, error) {
	var (
		turnCtx context.Context
		cancel  context.CancelFunc
	)
	if s.cfg.TurnTimeout > 0 {
		turnCtx, cancel = context.WithTimeout(ctx, s.cfg.TurnTimeout)
	} else {
		turnCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan turnOutcome, 1)
	go func() {
		next, result, err := s.machine.Step(turnCtx, sessionID, committed, message)
		done <- turnOutcome{next: next, result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(turnCtx.Err(), context.DeadlineExceeded) {
			return nil, state.TurnResult{}, s.timeoutError(sessionID)
		}
		return out.next, out.result, out.err
	case <-turnCtx.Done():
		if ctx.Err() != nil {
			return nil, state.TurnResult{}, ctx.Err()
		}
		return nil, state.TurnResult{}, s.timeoutError(sessionID)
	}
}

func (s *assistantService) timeoutError(sessionID string) error {
	return fmt.Errorf("%w: session %s after %s", store.ErrTurnTimeout, sessionID, s.cfg.TurnTimeout)
}

func logStatus(st *store.ConversationState) string {
	if st.DocumentReady {
		return store.StatusCompleted
	}
	return store.StatusActive
}

// logTurn mirrors a committed turn into the session log store. Failures are
// logged only; the log store is not on the turn's critical path.
func (s *assistantService) logTurn(ctx context.Context, committed, next *store.ConversationState, message string, result state.TurnResult) {
	if s.logStore == nil {
		return
	}
	id := next.SessionID
	warn := func(op string, err error) {
		s.logger.Warn(assistantModule, "Session log write failed", map[string]interface{}{
			"session_id": id,
			"op":         op,
			"error":      err.Error(),
		})
	}

	if committed == nil {
		if err := s.logStore.CreateSession(ctx, id); err != nil {
			warn("create_session", err)
		}
	}
	if err := s.logStore.AppendMessage(ctx, id, string(store.RoleUser), message); err != nil {
		warn("append_user", err)
	}
	if err := s.logStore.AppendMessage(ctx, id, string(store.RoleAssistant), result.Reply); err != nil {
		warn("append_assistant", err)
	}

	status := logStatus(next)
	update := entity.SessionUpdate{
		Status:   &status,
		Progress: &next.Progress,
	}
	if next.Bound() {
		docType := string(*next.DocType)
		update.DocType = &docType
	}
	if next.LastDocumentPath != "" {
		update.DocumentPath = &next.LastDocumentPath
	}
	if err := s.logStore.UpdateSession(ctx, id, update); err != nil {
		warn("update_session", err)
	}
}

func (s *assistantService) announceDocument(next *store.ConversationState, result state.TurnResult) {
	docType := string(*next.DocType)
	title := completion.ExtractTitle(completion.ExtractDocument(result.Reply))

	s.logger.Info(assistantModule, "Document completed", map[string]interface{}{
		"session_id": next.SessionID,
		"doc_type":   docType,
		"path":       result.DocumentPath,
	})

	if s.events == nil && s.notifier == nil {
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if s.events != nil {
			event := events.NewDocumentGenerated(next.SessionID, docType, title, result.DocumentPath, s.now())
			if err := s.events.Publish(ctx, event); err != nil {
				s.logger.Warn(assistantModule, "Event publish failed", map[string]interface{}{
					"event": event.EventType(), "error": err.Error(),
				})
			}
		}
		if s.notifier != nil {
			err := s.notifier.SendDocumentReady(mailer.DocumentReady{
				SessionID: next.SessionID,
				DocType:   docType,
				Title:     title,
				Path:      result.DocumentPath,
			})
			if err != nil {
				s.logger.Warn(assistantModule, "Document notification failed", map[string]interface{}{
					"session_id": next.SessionID, "error": err.Error(),
				})
			}
		}
	}()
}

func toChatResponse(st *store.ConversationState, result state.TurnResult) *dto.SendChatResponse {
	res := &dto.SendChatResponse{
		Response:      result.Reply,
		SessionId:     st.SessionID,
		Phase:         string(result.Phase),
		Progress:      st.Progress,
		DocumentReady: st.DocumentReady,
		DocumentPath:  st.LastDocumentPath,
	}
	if st.Bound() {
		res.DocType = string(*st.DocType)
	}
	if result.Publish != nil {
		res.WikiURL = result.Publish.URL
	}
	return res
}

func toSessionInfo(sessionID string, st *store.ConversationState) *dto.SessionInfoResponse {
	info := &dto.SessionInfoResponse{
		SessionId: sessionID,
		Status:    st.Status(),
	}
	if st == nil {
		return info
	}
	info.MessageCount = len(st.History)
	info.Progress = st.Progress
	info.DocumentReady = st.DocumentReady
	info.DocumentPath = st.LastDocumentPath
	if st.Bound() {
		info.DocType = string(*st.DocType)
	}
	created, updated := st.CreatedAt, st.UpdatedAt
	info.CreatedAt, info.UpdatedAt = &created, &updated
	return info
}

func (s *assistantService) GetSessionInfo(sessionID string) *dto.SessionInfoResponse {
	st, _ := s.registry.Snapshot(sessionID)
	info := toSessionInfo(sessionID, st)
	if s.keepAlive != nil {
		info.Connected = s.keepAlive(sessionID)
	}
	return info
}

// ResetSession waits for any in-flight turn, then drops the state. Log rows
// are kept. Resetting an unknown id is a no-op.
func (s *assistantService) ResetSession(ctx context.Context, sessionID string) error {
	if !s.registry.Exists(sessionID) {
		return nil
	}
	lease, err := s.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	prev := lease.State()
	lease.Clear()
	lease.Release()

	if prev == nil {
		return nil
	}

	s.logger.Info(assistantModule, "Session reset", map[string]interface{}{
		"session_id": sessionID,
		"messages":   len(prev.History),
	})

	if s.events != nil {
		if err := s.events.Publish(ctx, events.NewSessionReset(sessionID, s.now())); err != nil {
			s.logger.Warn(assistantModule, "Event publish failed", map[string]interface{}{
				"event": events.TypeSessionReset, "error": err.Error(),
			})
		}
	}
	return nil
}

func (s *assistantService) ListActiveSessions() []*dto.SessionInfoResponse {
	states := s.registry.List()
	sort.Slice(states, func(i, j int) bool {
		return states[i].UpdatedAt.After(states[j].UpdatedAt)
	})

	out := make([]*dto.SessionInfoResponse, 0, len(states))
	for _, st := range states {
		info := toSessionInfo(st.SessionID, st)
		if s.keepAlive != nil {
			info.Connected = s.keepAlive(st.SessionID)
		}
		out = append(out, info)
	}
	return out
}

// GetHistory prefers the durable log and falls back to the live state
func (s *assistantService) GetHistory(ctx context.Context, sessionID string) ([]dto.ChatHistoryResponse, error) {
	if s.logStore != nil {
		msgs, err := s.logStore.GetMessages(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			out := make([]dto.ChatHistoryResponse, len(msgs))
			for i, m := range msgs {
				createdAt := m.CreatedAt
				out[i] = dto.ChatHistoryResponse{Role: m.Role, Content: m.Content, CreatedAt: &createdAt}
			}
			return out, nil
		}
	}

	st, ok := s.registry.Snapshot(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
	}
	out := make([]dto.ChatHistoryResponse, len(st.History))
	for i, m := range st.History {
		out[i] = dto.ChatHistoryResponse{Role: string(m.Role), Content: m.Content}
	}
	return out, nil
}

func (s *assistantService) sweep() []string {
	removed := s.registry.SweepExpired(s.cfg.SessionTTL, s.keepAlive)
	if len(removed) > 0 {
		s.logger.Info(assistantModule, "Idle sessions swept", map[string]interface{}{
			"count":    len(removed),
			"sessions": removed,
		})
	}
	return removed
}

// Cleanup sweeps idle sessions without live connections and purges log rows
// older than olderThanDays (when positive)
func (s *assistantService) Cleanup(ctx context.Context, olderThanDays int) (*dto.CleanupResponse, error) {
	res := &dto.CleanupResponse{SweptSessions: s.sweep()}
	if res.SweptSessions == nil {
		res.SweptSessions = []string{}
	}

	if s.logStore != nil && olderThanDays > 0 {
		cutoff := s.now().AddDate(0, 0, -olderThanDays)
		n, err := s.logStore.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		res.PurgedSessions = n
	}
	return res, nil
}

func (s *assistantService) Statistics(ctx context.Context) (*dto.StatsResponse, error) {
	res := &dto.StatsResponse{
		InMemorySessions: len(s.registry.List()),
		ByDocType:        map[string]int64{},
	}
	if s.keepAlive != nil {
		for _, st := range s.registry.List() {
			if s.keepAlive(st.SessionID) {
				res.ConnectedClients++
			}
		}
	}
	if s.logStore == nil {
		return res, nil
	}

	stats, err := s.logStore.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	res.TotalSessions = stats.TotalSessions
	res.ActiveSessions = stats.ActiveSessions
	res.CompletedSessions = stats.CompletedSessions
	res.TotalMessages = stats.TotalMessages
	if stats.ByDocType != nil {
		res.ByDocType = stats.ByDocType
	}
	return res, nil
}

// RunJanitor sweeps idle sessions every SweepInterval until ctx is done
func (s *assistantService) RunJanitor(ctx context.Context) error {
	if s.cfg.SweepInterval <= 0 || s.cfg.SessionTTL <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Close waits for pending event and notification deliveries
func (s *assistantService) Close() {
	s.background.Wait()
}
