package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/persistence/models"
)

// GormRunLogRepository implements integration.RunLogRepository using GORM
type GormRunLogRepository struct {
	db *gorm.DB
}

// NewGormRunLogRepository creates a new GormRunLogRepository
func NewGormRunLogRepository(db *gorm.DB) *GormRunLogRepository {
	return &GormRunLogRepository{db: db}
}

var _ integration.RunLogRepository = (*GormRunLogRepository)(nil)

// Create inserts a run log row and sets its generated ID
func (r *GormRunLogRepository) Create(ctx context.Context, log *integration.RunLog) error {
	var model models.RunLogModel
	if err := model.FromDomain(log); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	log.ID = model.ID
	return nil
}

// Update writes the status, counters, error and finish time of an existing row
func (r *GormRunLogRepository) Update(ctx context.Context, log *integration.RunLog) error {
	var model models.RunLogModel
	if err := model.FromDomain(log); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.RunLogModel{}).
		Where("id = ?", log.ID).
		Updates(map[string]any{
			"status":      model.Status,
			"counters":    model.CountersJSON,
			"error":       model.ErrorJSON,
			"finished_at": model.FinishedAt,
		}).Error
}
