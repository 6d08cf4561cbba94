package types

import (
	"time"

	"github.com/google/uuid"
)

// Style is the owning style reference for a sample. Brand/season ids point at
// reference data managed elsewhere.
type Style struct {
	StyleID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:style_id" json:"style_id"`
	BrandID         int64     `gorm:"not null;column:brand_id" json:"brand_id"`
	SeasonID        int64     `gorm:"not null;column:season_id" json:"season_id"`
	StyleNumber     string    `gorm:"not null;index;column:style_number" json:"style_number"`
	StyleName       *string   `gorm:"column:style_name" json:"style_name"`
	Division        *string   `gorm:"column:division" json:"division"`
	ProductCategory *string   `gorm:"column:product_category" json:"product_category"`
	Color           *string   `gorm:"column:color" json:"color"`
	Qty             *int64    `gorm:"column:qty" json:"qty"`
	COO             *string   `gorm:"column:coo" json:"coo"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Style) TableName() string { return "styles" }
