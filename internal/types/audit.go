package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit actions.
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
)

// StageAuditLog is append-only. field_changed null marks a whole-record entry
// (stage record creation); otherwise the row is a field-level diff. Rows are
// never updated or deleted; deleting a sample orphans its rows by id.
type StageAuditLog struct {
	LogID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:log_id" json:"log_id"`
	SampleID     uuid.UUID  `gorm:"type:uuid;not null;index;column:sample_id" json:"sample_id"`
	UserID       *uuid.UUID `gorm:"type:uuid;column:user_id" json:"user_id"`
	Stage        string     `gorm:"not null;column:stage" json:"stage"`
	Action       string     `gorm:"not null;column:action" json:"action"`
	FieldChanged *string    `gorm:"column:field_changed" json:"field_changed"`
	OldValue     *string    `gorm:"column:old_value" json:"old_value"`
	NewValue     *string    `gorm:"column:new_value" json:"new_value"`
	Timestamp    time.Time  `gorm:"not null;index;column:timestamp" json:"timestamp"`
}

func (StageAuditLog) TableName() string { return "stage_audit_log" }

// ActivityLog is the request-level operational audit (who called what), kept
// separate from the per-field stage trail.
type ActivityLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:id" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index;column:user_id" json:"user_id"`
	Action     string         `gorm:"not null;index;column:action" json:"action"`
	Resource   string         `gorm:"not null;index;column:resource" json:"resource"`
	ResourceID *string        `gorm:"column:resource_id" json:"resource_id"`
	Details    datatypes.JSON `gorm:"type:jsonb;column:details" json:"details"`
	IP         *string        `gorm:"column:ip" json:"ip"`
	UserAgent  *string        `gorm:"column:user_agent" json:"user_agent"`
	Timestamp  time.Time      `gorm:"not null;index;column:timestamp" json:"timestamp"`
}

func (ActivityLog) TableName() string { return "activity_log" }
