package types

import (
	"time"

	"github.com/google/uuid"
)

// SampleRequest is the sample header row. current_stage and current_status are
// owned by the stage engine: status is derived, never set by callers.
type SampleRequest struct {
	SampleID          uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:sample_id" json:"sample_id"`
	StyleID           uuid.UUID       `gorm:"type:uuid;not null;index;column:style_id" json:"style_id"`
	Style             *Style          `gorm:"foreignKey:StyleID;references:StyleID" json:"styles,omitempty"`
	Assignment        *TeamAssignment `gorm:"foreignKey:SampleID;references:SampleID" json:"team_assignment,omitempty"`
	SampleType        *string         `gorm:"column:sample_type" json:"sample_type"`
	SampleTypeGroup   *string         `gorm:"column:sample_type_group" json:"sample_type_group"`
	SampleStatus      *string         `gorm:"column:sample_status" json:"sample_status"`
	UnfreeStatus      *string         `gorm:"column:unfree_status" json:"unfree_status"`
	KickoffDate       *string         `gorm:"column:kickoff_date" json:"kickoff_date"`
	SampleDueDenver   *string         `gorm:"column:sample_due_denver" json:"sample_due_denver"`
	RequestedLeadTime *int64          `gorm:"column:requested_lead_time" json:"requested_lead_time"`
	LeadTimeType      *string         `gorm:"column:lead_time_type" json:"lead_time_type"`
	RefFromM88        *string         `gorm:"column:ref_from_m88" json:"ref_from_m88"`
	RefSampleToFty    *string         `gorm:"column:ref_sample_to_fty" json:"ref_sample_to_fty"`
	AdditionalNotes   *string         `gorm:"column:additional_notes" json:"additional_notes"`
	KeyDate           *string         `gorm:"column:key_date" json:"key_date"`
	CurrentStage      string          `gorm:"not null;index;column:current_stage" json:"current_stage"`
	CurrentStatus     string          `gorm:"not null;index;column:current_status" json:"current_status"`
	CreatedBy         *uuid.UUID      `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt         time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (SampleRequest) TableName() string { return "sample_request" }
