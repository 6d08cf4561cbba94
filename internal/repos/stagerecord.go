package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

type StageRecordRepo interface {
	GetBySampleAndStage(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, stage string) (*types.StageRecord, error)
	GetAllForSample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) ([]*types.StageRecord, error)
	Create(ctx context.Context, tx *gorm.DB, record *types.StageRecord) (*types.StageRecord, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, fields datatypes.JSONMap) error
	DeleteBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) error
}

type stageRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageRecordRepo(db *gorm.DB, baseLog *logger.Logger) StageRecordRepo {
	return &stageRecordRepo{
		db:  db,
		log: baseLog.With("repo", "StageRecordRepo"),
	}
}

func (r *stageRecordRepo) GetBySampleAndStage(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, stage string) (*types.StageRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil || stage == "" {
		return nil, nil
	}
	var record types.StageRecord
	err := transaction.WithContext(ctx).
		Where("sample_id = ? AND stage = ?", sampleID, stage).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *stageRecordRepo) GetAllForSample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) ([]*types.StageRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.StageRecord{}
	if sampleID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stageRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.StageRecord) (*types.StageRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if record.RecordID == uuid.Nil {
		record.RecordID = uuid.New()
	}
	if record.Fields == nil {
		record.Fields = datatypes.JSONMap{}
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateFields replaces the whole field bag. Callers merge old and new maps
// first so a partial payload never clears untouched keys.
func (r *stageRecordRepo) UpdateFields(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, fields datatypes.JSONMap) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if recordID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.StageRecord{}).
		Where("record_id = ?", recordID).
		Updates(map[string]interface{}{
			"fields":     fields,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *stageRecordRepo) DeleteBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Delete(&types.StageRecord{}).Error
}
