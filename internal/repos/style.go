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

// StyleFilter narrows styles for sample listing. Zero values mean "no filter".
type StyleFilter struct {
	SeasonID        int64
	BrandID         int64
	Division        string
	ProductCategory string
}

func (f StyleFilter) Active() bool {
	return f.SeasonID != 0 || f.BrandID != 0 || f.Division != "" || f.ProductCategory != ""
}

type StyleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, style *types.Style) (*types.Style, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Style, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	FilterIDs(ctx context.Context, tx *gorm.DB, filter StyleFilter) ([]uuid.UUID, error)
}

type styleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStyleRepo(db *gorm.DB, baseLog *logger.Logger) StyleRepo {
	return &styleRepo{
		db:  db,
		log: baseLog.With("repo", "StyleRepo"),
	}
}

func (r *styleRepo) Create(ctx context.Context, tx *gorm.DB, style *types.Style) (*types.Style, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if style.StyleID == uuid.Nil {
		style.StyleID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(style).Error; err != nil {
		return nil, err
	}
	return style, nil
}

func (r *styleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Style, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var style types.Style
	err := transaction.WithContext(ctx).Where("style_id = ?", id).First(&style).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &style, nil
}

func (r *styleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Style{}).
		Where("style_id = ?", id).
		Updates(updates).Error
}

func (r *styleRepo) FilterIDs(ctx context.Context, tx *gorm.DB, filter StyleFilter) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Style{})
	if filter.SeasonID != 0 {
		q = q.Where("season_id = ?", filter.SeasonID)
	}
	if filter.BrandID != 0 {
		q = q.Where("brand_id = ?", filter.BrandID)
	}
	if filter.Division != "" {
		q = q.Where("division = ?", filter.Division)
	}
	if filter.ProductCategory != "" {
		q = q.Where("product_category = ?", filter.ProductCategory)
	}
	var ids []uuid.UUID
	if err := q.Pluck("style_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
