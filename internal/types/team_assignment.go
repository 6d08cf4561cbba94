package types

import (
	"time"

	"github.com/google/uuid"
)

// TeamAssignment holds per-sample default owners for each role; used as the
// fallback source when a stage payload does not name an owner.
type TeamAssignment struct {
	AssignmentID uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:assignment_id" json:"assignment_id"`
	SampleID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex;column:sample_id" json:"sample_id"`
	PBDUserID    *uuid.UUID `gorm:"type:uuid;column:pbd_user_id" json:"pbd_user_id"`
	TDUserID     *uuid.UUID `gorm:"type:uuid;column:td_user_id" json:"td_user_id"`
	FTYUserID    *uuid.UUID `gorm:"type:uuid;column:fty_user_id" json:"fty_user_id"`
	FTYMD2UserID *uuid.UUID `gorm:"type:uuid;column:fty_md2_user_id" json:"fty_md2_user_id"`
	MDUserID     *uuid.UUID `gorm:"type:uuid;column:md_user_id" json:"md_user_id"`
	CostingUser  *uuid.UUID `gorm:"type:uuid;column:costing_user_id" json:"costing_user_id"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (TeamAssignment) TableName() string { return "team_assignment" }
