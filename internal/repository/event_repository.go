package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/cleaning-calendar/internal/model"
)

type EventRepository interface {
	// Записать события аудита одним запросом.
	Create(ctx context.Context, events ...model.Event) error
	// События одной заявки в порядке записи.
	ListBySubmission(ctx context.Context, submissionID string) ([]model.Event, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(ctx context.Context, events ...model.Event) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

func (r *GormEventRepository) ListBySubmission(ctx context.Context, submissionID string) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
