package specification

import (
	"time"

	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.SessionID)
}

// MessagesOfSession filters message rows of one session
type MessagesOfSession struct {
	SessionID string
}

func (s MessagesOfSession) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type UpdatedBefore struct {
	Cutoff time.Time
}

func (s UpdatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("updated_at < ?", s.Cutoff)
}
