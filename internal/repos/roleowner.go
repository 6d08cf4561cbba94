package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

type SampleRoleOwnerRepo interface {
	// Set upserts the owner for (sample, role key). Re-applying the same owner
	// is a no-op, not a new history entry.
	Set(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, roleKey string, userID uuid.UUID, enteredBy *uuid.UUID) error
	Clear(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, roleKey string) error
	ListBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) ([]*types.SampleRoleOwner, error)
	DeleteBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) error
}

type sampleRoleOwnerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSampleRoleOwnerRepo(db *gorm.DB, baseLog *logger.Logger) SampleRoleOwnerRepo {
	return &sampleRoleOwnerRepo{
		db:  db,
		log: baseLog.With("repo", "SampleRoleOwnerRepo"),
	}
}

func (r *sampleRoleOwnerRepo) Set(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, roleKey string, userID uuid.UUID, enteredBy *uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil || roleKey == "" || userID == uuid.Nil {
		return nil
	}

	var existing types.SampleRoleOwner
	err := transaction.WithContext(ctx).
		Where("sample_id = ? AND role_key = ?", sampleID, roleKey).
		First(&existing).Error
	if err == nil && existing.UserID == userID {
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	row := types.SampleRoleOwner{
		ID:        uuid.New(),
		SampleID:  sampleID,
		RoleKey:   roleKey,
		UserID:    userID,
		EnteredBy: enteredBy,
		EnteredAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sample_id"}, {Name: "role_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"user_id":    userID,
				"entered_by": enteredBy,
				"entered_at": now,
				"updated_at": now,
			}),
		}).
		Create(&row).Error
}

func (r *sampleRoleOwnerRepo) Clear(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, roleKey string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil || roleKey == "" {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("sample_id = ? AND role_key = ?", sampleID, roleKey).
		Delete(&types.SampleRoleOwner{}).Error
}

func (r *sampleRoleOwnerRepo) ListBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) ([]*types.SampleRoleOwner, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.SampleRoleOwner{}
	if sampleID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Preload("User").
		Where("sample_id = ?", sampleID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sampleRoleOwnerRepo) DeleteBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Delete(&types.SampleRoleOwner{}).Error
}
