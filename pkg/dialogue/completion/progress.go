package completion

import "ba-assistant-be/pkg/store"

const (
	progressPerTurn = 0.20
	progressCeiling = 0.95
)

// EstimateProgress is 0 before the document type is bound and 1 once the
// document is ready or the last assistant reply opens a document block.
// Otherwise it ramps linearly with user turns since binding, capped below 1.
// The result never drops below the progress already recorded on the state.
func EstimateProgress(s *store.ConversationState) float64 {
	if s == nil || !s.Bound() {
		return 0
	}
	if s.DocumentReady {
		return 1
	}
	if last, ok := s.LastAssistant(); ok && HasStartMarker(last.Content) {
		return 1
	}

	p := float64(s.UserTurnsSinceBinding()) * progressPerTurn
	if p > progressCeiling {
		p = progressCeiling
	}
	if s.Progress > p {
		return s.Progress
	}
	return p
}
