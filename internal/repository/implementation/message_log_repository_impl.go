package implementation

import (
	"context"

	"ba-assistant-be/internal/entity"
	"ba-assistant-be/internal/mapper"
	"ba-assistant-be/internal/model"
	"ba-assistant-be/internal/repository/contract"
	"ba-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MessageLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionLogMapper
}

func NewMessageLogRepository(db *gorm.DB) contract.MessageLogRepository {
	return &MessageLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionLogMapper(),
	}
}

func (r *MessageLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MessageLogRepositoryImpl) Create(ctx context.Context, msg *entity.MessageLog) error {
	m := r.mapper.MessageToModel(msg)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*msg = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *MessageLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MessageLog, error) {
	var models []*model.MessageLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}

func (r *MessageLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.MessageLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MessageLogRepositoryImpl) DeleteBySessionIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("session_id IN ?", ids).Delete(&model.MessageLog{}).Error
}
