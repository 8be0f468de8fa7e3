package implementation

import (
	"context"
	"errors"

	"ba-assistant-be/internal/entity"
	"ba-assistant-be/internal/mapper"
	"ba-assistant-be/internal/model"
	"ba-assistant-be/internal/repository/contract"
	"ba-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionLogMapper
}

func NewSessionLogRepository(db *gorm.DB) contract.SessionLogRepository {
	return &SessionLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionLogMapper(),
	}
}

func (r *SessionLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionLogRepositoryImpl) CreateIfAbsent(ctx context.Context, session *entity.SessionLog) error {
	m := r.mapper.SessionToModel(session)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(m).Error
}

func (r *SessionLogRepositoryImpl) Update(ctx context.Context, session *entity.SessionLog) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *SessionLogRepositoryImpl) Delete(ctx context.Context, specs ...specification.Specification) (int64, error) {
	if len(specs) == 0 {
		return 0, errors.New("refusing to delete sessions without a filter")
	}
	res := r.applySpecifications(r.db.WithContext(ctx), specs...).Delete(&model.SessionLog{})
	return res.RowsAffected, res.Error
}

func (r *SessionLogRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionLog, error) {
	var m model.SessionLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *SessionLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionLog, error) {
	var models []*model.SessionLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.SessionLog, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SessionToEntity(m)
	}
	return entities, nil
}

func (r *SessionLogRepositoryImpl) FindIDs(ctx context.Context, specs ...specification.Specification) ([]string, error) {
	var ids []string
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.SessionLog{}), specs...)
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SessionLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.SessionLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SessionLogRepositoryImpl) CountByDocType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		DocType string
		Total   int64
	}
	err := r.db.WithContext(ctx).Model(&model.SessionLog{}).
		Select("doc_type, COUNT(*) AS total").
		Where("doc_type <> ''").
		Group("doc_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.DocType] = row.Total
	}
	return out, nil
}
