package types

import (
	"time"

	"github.com/google/uuid"
)

// SamplePresence is a short-lived advisory lease: user X is active on sample Y
// in some context. A row is live only while now < expires_at; expired rows are
// logically absent even before cleanup deletes them.
type SamplePresence struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:presence_id" json:"presence_id"`
	SampleID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sample_presence_scope;column:sample_id" json:"sample_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sample_presence_scope;column:user_id" json:"user_id"`
	Context    string    `gorm:"not null;uniqueIndex:idx_sample_presence_scope;column:context" json:"context"`
	Username   string    `gorm:"column:username" json:"username"`
	FullName   string    `gorm:"column:full_name" json:"full_name"`
	RoleCode   string    `gorm:"column:role_code" json:"role_code"`
	LockType   *string   `gorm:"column:lock_type" json:"lock_type"`
	LastSeenAt time.Time `gorm:"not null;column:last_seen_at" json:"last_seen_at"`
	ExpiresAt  time.Time `gorm:"not null;index;column:expires_at" json:"expires_at"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SamplePresence) TableName() string { return "sample_presence" }
