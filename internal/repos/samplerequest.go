package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

// SampleFilter narrows the sample listing. StyleIDs nil means "no style
// filter"; an empty non-nil slice short-circuits to an empty result.
type SampleFilter struct {
	StyleIDs     []uuid.UUID
	SampleType   string
	SampleStatus string
}

type SampleRequestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sample *types.SampleRequest) (*types.SampleRequest, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SampleRequest, error)
	Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	List(ctx context.Context, tx *gorm.DB, filter SampleFilter) ([]*types.SampleRequest, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type sampleRequestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSampleRequestRepo(db *gorm.DB, baseLog *logger.Logger) SampleRequestRepo {
	return &sampleRequestRepo{
		db:  db,
		log: baseLog.With("repo", "SampleRequestRepo"),
	}
}

func (r *sampleRequestRepo) Create(ctx context.Context, tx *gorm.DB, sample *types.SampleRequest) (*types.SampleRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sample.SampleID == uuid.Nil {
		sample.SampleID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Omit("Style", "Assignment").Create(sample).Error; err != nil {
		return nil, err
	}
	return sample, nil
}

func (r *sampleRequestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SampleRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var sample types.SampleRequest
	err := transaction.WithContext(ctx).
		Preload("Style").
		Preload("Assignment").
		Where("sample_id = ?", id).
		First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

func (r *sampleRequestRepo) Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.SampleRequest{}).
		Where("sample_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *sampleRequestRepo) List(ctx context.Context, tx *gorm.DB, filter SampleFilter) ([]*types.SampleRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.SampleRequest{}
	if filter.StyleIDs != nil && len(filter.StyleIDs) == 0 {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Preload("Style").
		Preload("Assignment").
		Order("created_at DESC")
	if len(filter.StyleIDs) > 0 {
		q = q.Where("style_id IN ?", filter.StyleIDs)
	}
	if filter.SampleType != "" {
		q = q.Where("sample_type = ?", filter.SampleType)
	}
	if filter.SampleStatus != "" {
		q = q.Where("sample_status = ?", filter.SampleStatus)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sampleRequestRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(ctx).
		Model(&types.SampleRequest{}).
		Where("sample_id = ?", id).
		Updates(updates).Error
}

func (r *sampleRequestRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("sample_id = ?", id).
		Delete(&types.SampleRequest{}).Error
}
