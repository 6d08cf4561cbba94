package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

// ActivityLogFilter narrows the operational log listing. Zero values mean "no
// filter". Limit is clamped by the repo.
type ActivityLogFilter struct {
	Action   string
	Resource string
	UserID   string
	Start    *time.Time
	End      *time.Time
	Limit    int
	Offset   int
}

const activityLogMaxLimit = 1000

type ActivityLogRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.ActivityLog) error
	List(ctx context.Context, tx *gorm.DB, filter ActivityLogFilter) ([]*types.ActivityLog, int64, error)
}

type activityLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	return &activityLogRepo{
		db:  db,
		log: baseLog.With("repo", "ActivityLogRepo"),
	}
}

func (r *activityLogRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.ActivityLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil {
		return nil
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepo) List(ctx context.Context, tx *gorm.DB, filter ActivityLogFilter) ([]*types.ActivityLog, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.ActivityLog{})
	if filter.Action != "" {
		q = q.Where("action ILIKE ?", "%"+filter.Action+"%")
	}
	if filter.Resource != "" {
		q = q.Where("resource ILIKE ?", "%"+filter.Resource+"%")
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Start != nil {
		q = q.Where("timestamp >= ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("timestamp <= ?", *filter.End)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > activityLogMaxLimit {
		limit = activityLogMaxLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	out := []*types.ActivityLog{}
	if err := q.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
