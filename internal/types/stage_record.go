package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StageRecord holds the sparse field bag for one (sample, stage). At most one
// row per pair; fields are whitelist-filtered before they ever reach this row.
type StageRecord struct {
	RecordID  uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:record_id" json:"record_id"`
	SampleID  uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_stage_record_sample_stage;column:sample_id" json:"sample_id"`
	Stage     string            `gorm:"not null;uniqueIndex:idx_stage_record_sample_stage;column:stage" json:"stage"`
	Fields    datatypes.JSONMap `gorm:"type:jsonb;column:fields" json:"fields"`
	CreatedAt time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (StageRecord) TableName() string { return "stage_record" }
