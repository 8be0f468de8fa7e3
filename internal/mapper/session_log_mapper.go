package mapper

import (
	"encoding/json"

	"ba-assistant-be/internal/entity"
	"ba-assistant-be/internal/model"

	"gorm.io/datatypes"
)

type SessionLogMapper struct{}

func NewSessionLogMapper() *SessionLogMapper {
	return &SessionLogMapper{}
}

func (m *SessionLogMapper) SessionToEntity(s *model.SessionLog) *entity.SessionLog {
	if s == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(s.Metadata) > 0 {
		// Unreadable metadata is dropped rather than failing the read
		_ = json.Unmarshal(s.Metadata, &metadata)
	}

	return &entity.SessionLog{
		Id:           s.Id,
		DocType:      s.DocType,
		Status:       s.Status,
		Progress:     s.Progress,
		DocumentPath: s.DocumentPath,
		Metadata:     metadata,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (m *SessionLogMapper) SessionToModel(s *entity.SessionLog) *model.SessionLog {
	if s == nil {
		return nil
	}

	var metadata datatypes.JSON
	if len(s.Metadata) > 0 {
		if raw, err := json.Marshal(s.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	return &model.SessionLog{
		Id:           s.Id,
		DocType:      s.DocType,
		Status:       s.Status,
		Progress:     s.Progress,
		DocumentPath: s.DocumentPath,
		Metadata:     metadata,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (m *SessionLogMapper) MessageToEntity(msg *model.MessageLog) *entity.MessageLog {
	if msg == nil {
		return nil
	}
	return &entity.MessageLog{
		Id:        msg.Id,
		SessionId: msg.SessionId,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *SessionLogMapper) MessageToModel(msg *entity.MessageLog) *model.MessageLog {
	if msg == nil {
		return nil
	}
	return &model.MessageLog{
		Id:        msg.Id,
		SessionId: msg.SessionId,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *SessionLogMapper) MessagesToEntities(msgs []*model.MessageLog) []*entity.MessageLog {
	out := make([]*entity.MessageLog, len(msgs))
	for i, msg := range msgs {
		out[i] = m.MessageToEntity(msg)
	}
	return out
}
