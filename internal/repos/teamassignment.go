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

type TeamAssignmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *types.TeamAssignment) (*types.TeamAssignment, error)
	GetBySampleID(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) (*types.TeamAssignment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, updates map[string]interface{}) error
	DeleteBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) error
}

type teamAssignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeamAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) TeamAssignmentRepo {
	return &teamAssignmentRepo{
		db:  db,
		log: baseLog.With("repo", "TeamAssignmentRepo"),
	}
}

func (r *teamAssignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignment *types.TeamAssignment) (*types.TeamAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if assignment.AssignmentID == uuid.Nil {
		assignment.AssignmentID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *teamAssignmentRepo) GetBySampleID(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) (*types.TeamAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil {
		return nil, nil
	}
	var assignment types.TeamAssignment
	err := transaction.WithContext(ctx).Where("sample_id = ?", sampleID).First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *teamAssignmentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(ctx).
		Model(&types.TeamAssignment{}).
		Where("sample_id = ?", sampleID).
		Updates(updates).Error
}

func (r *teamAssignmentRepo) DeleteBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sampleID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Delete(&types.TeamAssignment{}).Error
}
