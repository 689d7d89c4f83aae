package repository

import (
	"context"
	"time"

	"nutriscan/internal/models"
	"nutriscan/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ViewRepository is the per-user ledger of last-viewed times.
type ViewRepository interface {
	Upsert(ctx context.Context, userID string, postID uint, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]models.ViewRecord, error)
	ClearByUser(ctx context.Context, userID string) error
}

type viewRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewViewRepository creates a new view ledger repository.
func NewViewRepository(db *gorm.DB) ViewRepository {
	return &viewRepository{db: db, log: observability.NewRepoLogger("view_records")}
}

// Upsert records a view; a repeat view of the same post only moves viewed_at forward.
func (r *viewRepository) Upsert(ctx context.Context, userID string, postID uint, at time.Time) error {
	record := models.ViewRecord{UserID: userID, PostID: postID, ViewedAt: at}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"viewed_at"}),
	}).Create(&record).Error
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
		return models.NewInternalError(err)
	}
	return nil
}

// ListByUser returns the user's records, most recent view first.
func (r *viewRepository) ListByUser(ctx context.Context, userID string) ([]models.ViewRecord, error) {
	var records []models.ViewRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("viewed_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return records, nil
}

func (r *viewRepository) ClearByUser(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ViewRecord{})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "delete")
		return models.NewInternalError(result.Error)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"user_id": userID, "removed": result.RowsAffected})
	return nil
}
