package repository

import (
	"context"

	"echoverse/internal/models"

	"gorm.io/gorm"
)

// AdminLogRepository records and lists moderation audit entries.
type AdminLogRepository interface {
	Record(ctx context.Context, entry *models.AdminLog) error
	List(ctx context.Context, limit, offset int) ([]models.AdminLog, error)
}

type adminLogRepository struct {
	db *gorm.DB
}

// NewAdminLogRepository returns a new AdminLogRepository implementation.
func NewAdminLogRepository(db *gorm.DB) AdminLogRepository {
	return &adminLogRepository{db: db}
}

func (r *adminLogRepository) Record(ctx context.Context, entry *models.AdminLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *adminLogRepository) List(ctx context.Context, limit, offset int) ([]models.AdminLog, error) {
	var entries []models.AdminLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}
