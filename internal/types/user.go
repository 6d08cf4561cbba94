package types

import (
	"time"

	"github.com/google/uuid"
)

// User is a read-only replica of the user directory. Account management lives
// in another service; this table only resolves display identity for lock
// conflicts, role owners and audit history.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	FullName  string    `gorm:"column:full_name" json:"full_name"`
	RoleCode  string    `gorm:"not null;column:role_code" json:"role_code"`
	Region    string    `gorm:"column:region" json:"region"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "users" }
