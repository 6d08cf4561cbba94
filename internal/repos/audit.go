package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

type StageAuditRepo interface {
	// Append inserts entries. Rows are immutable once written; there is no
	// update or delete path.
	Append(ctx context.Context, tx *gorm.DB, entries []*types.StageAuditLog) error
	ListBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) ([]*types.StageAuditLog, error)
}

type stageAuditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageAuditRepo(db *gorm.DB, baseLog *logger.Logger) StageAuditRepo {
	return &stageAuditRepo{
		db:  db,
		log: baseLog.With("repo", "StageAuditRepo"),
	}
}

func (r *stageAuditRepo) Append(ctx context.Context, tx *gorm.DB, entries []*types.StageAuditLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, e := range entries {
		if e.LogID == uuid.Nil {
			e.LogID = uuid.New()
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
	}
	return transaction.WithContext(ctx).Create(&entries).Error
}

func (r *stageAuditRepo) ListBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) ([]*types.StageAuditLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.StageAuditLog{}
	if sampleID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Order("timestamp DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
