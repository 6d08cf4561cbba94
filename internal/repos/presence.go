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

type SamplePresenceRepo interface {
	// Upsert inserts or refreshes the lease for (sample, user, context).
	Upsert(ctx context.Context, tx *gorm.DB, row *types.SamplePresence) error
	// Release deletes the caller's leases; context "" releases all contexts.
	Release(ctx context.Context, tx *gorm.DB, sampleID, userID uuid.UUID, context_ string) error
	// FindConflict returns the freshest live blocking lock held by another
	// user, or nil.
	FindConflict(ctx context.Context, tx *gorm.DB, sampleID, userID uuid.UUID, blockingLockTypes []string, now time.Time) (*types.SamplePresence, error)
	// ListActive returns non-expired leases for the given samples, freshest
	// first.
	ListActive(ctx context.Context, tx *gorm.DB, sampleIDs []uuid.UUID, now time.Time) ([]*types.SamplePresence, error)
	DeleteBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) error
	PurgeExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type samplePresenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSamplePresenceRepo(db *gorm.DB, baseLog *logger.Logger) SamplePresenceRepo {
	return &samplePresenceRepo{
		db:  db,
		log: baseLog.With("repo", "SamplePresenceRepo"),
	}
}

func (r *samplePresenceRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.SamplePresence) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.SampleID == uuid.Nil || row.UserID == uuid.Nil {
		return errors.New("presence row requires sample and user")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sample_id"}, {Name: "user_id"}, {Name: "context"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"username":     row.Username,
				"full_name":    row.FullName,
				"role_code":    row.RoleCode,
				"lock_type":    row.LockType,
				"last_seen_at": row.LastSeenAt,
				"expires_at":   row.ExpiresAt,
				"updated_at":   time.Now().UTC(),
			}),
		}).
		Create(row).Error
}

func (r *samplePresenceRepo) Release(ctx context.Context, tx *gorm.DB, sampleID, userID uuid.UUID, context_ string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil || userID == uuid.Nil {
		return nil
	}
	q := transaction.WithContext(ctx).
		Where("sample_id = ? AND user_id = ?", sampleID, userID)
	if context_ != "" {
		q = q.Where("context = ?", context_)
	}
	return q.Delete(&types.SamplePresence{}).Error
}

func (r *samplePresenceRepo) FindConflict(ctx context.Context, tx *gorm.DB, sampleID, userID uuid.UUID, blockingLockTypes []string, now time.Time) (*types.SamplePresence, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil || len(blockingLockTypes) == 0 {
		return nil, nil
	}
	var row types.SamplePresence
	err := transaction.WithContext(ctx).
		Where("sample_id = ? AND user_id <> ?", sampleID, userID).
		Where("lock_type IN ?", blockingLockTypes).
		Where("expires_at > ?", now).
		Order("last_seen_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *samplePresenceRepo) ListActive(ctx context.Context, tx *gorm.DB, sampleIDs []uuid.UUID, now time.Time) ([]*types.SamplePresence, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.SamplePresence{}
	if len(sampleIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("sample_id IN ?", sampleIDs).
		Where("expires_at > ?", now).
		Order("last_seen_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *samplePresenceRepo) DeleteBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Delete(&types.SamplePresence{}).Error
}

func (r *samplePresenceRepo) PurgeExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&types.SamplePresence{})
	return res.RowsAffected, res.Error
}
