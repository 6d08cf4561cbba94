package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

type UserRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{
		db:  db,
		log: baseLog.With("repo", "UserRepo"),
	}
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var user types.User
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.User
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
