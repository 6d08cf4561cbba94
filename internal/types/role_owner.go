package types

import (
	"time"

	"github.com/google/uuid"
)

// SampleRoleOwner is the current responsible user for one role-key on one
// sample. Current-state only: later writes overwrite, history lives in the
// audit trail.
type SampleRoleOwner struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:sample_role_owner_id" json:"sample_role_owner_id"`
	SampleID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_sample_role_owner_key;column:sample_id" json:"sample_id"`
	RoleKey   string     `gorm:"not null;uniqueIndex:idx_sample_role_owner_key;column:role_key" json:"role_key"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	EnteredBy *uuid.UUID `gorm:"type:uuid;column:entered_by" json:"entered_by"`
	EnteredAt time.Time  `gorm:"not null;column:entered_at" json:"entered_at"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (SampleRoleOwner) TableName() string { return "sample_role_owner" }
