package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/requestdata"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/workflow"
)

// UserRef is the display identity attached to history rows.
type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
}

// HistoryEntry is one field-level change, shaped for the UI.
type HistoryEntry struct {
	ID        uuid.UUID  `json:"id"`
	SampleID  uuid.UUID  `json:"sample_id"`
	Stage     string     `json:"table_name"`
	FieldName *string    `json:"field_name"`
	OldValue  *string    `json:"old_value"`
	NewValue  *string    `json:"new_value"`
	ChangedBy *uuid.UUID `json:"changed_by"`
	ChangedAt time.Time  `json:"changed_at"`
	User      *UserRef   `json:"users,omitempty"`
}

// TransitionEntry is a stage or status transition derived from the trail.
type TransitionEntry struct {
	ID             uuid.UUID  `json:"id"`
	SampleID       uuid.UUID  `json:"sample_id"`
	FromStatus     *string    `json:"from_status"`
	ToStatus       *string    `json:"to_status"`
	FromStage      *string    `json:"from_stage"`
	ToStage        *string    `json:"to_stage"`
	TransitionedBy *uuid.UUID `json:"transitioned_by"`
	TransitionedAt time.Time  `json:"transitioned_at"`
	User           *UserRef   `json:"users,omitempty"`
}

// SampleHistory is the role-filtered view over the audit trail.
type SampleHistory struct {
	History     []HistoryEntry    `json:"sample_history"`
	Transitions []TransitionEntry `json:"status_transitions"`
	Total       int               `json:"total"`
	Limit       int               `json:"limit"`
	Offset      int               `json:"offset"`
}

type AuditService interface {
	// RecordStageEntries appends to the trail. Failures are logged and
	// swallowed: audit is diagnostic, never authoritative, and must not fail
	// the primary mutation.
	RecordStageEntries(ctx context.Context, entries []*types.StageAuditLog)
	// LogActivity writes the request-level operational log, fire-and-forget.
	LogActivity(ctx context.Context, action, resource string, resourceID *string, details map[string]interface{}, ip, userAgent *string)
	// GetSampleHistory returns the trail filtered by the caller's visibility
	// scope, newest first, with display identity enrichment.
	GetSampleHistory(ctx context.Context, sampleID uuid.UUID, limit, offset int) (*SampleHistory, error)
	ListActivity(ctx context.Context, filter repos.ActivityLogFilter) ([]*types.ActivityLog, int64, error)
}

type auditService struct {
	db           *gorm.DB
	log          *logger.Logger
	auditRepo    repos.StageAuditRepo
	activityRepo repos.ActivityLogRepo
	userRepo     repos.UserRepo
}

func NewAuditService(db *gorm.DB, baseLog *logger.Logger, auditRepo repos.StageAuditRepo, activityRepo repos.ActivityLogRepo, userRepo repos.UserRepo) AuditService {
	return &auditService{
		db:           db,
		log:          baseLog.With("service", "AuditService"),
		auditRepo:    auditRepo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
	}
}

func (s *auditService) RecordStageEntries(ctx context.Context, entries []*types.StageAuditLog) {
	if len(entries) == 0 {
		return
	}
	if err := s.auditRepo.Append(ctx, nil, entries); err != nil {
		s.log.Error("stage audit append failed", "error", err, "entries", len(entries))
	}
}

func (s *auditService) LogActivity(ctx context.Context, action, resource string, resourceID *string, details map[string]interface{}, ip, userAgent *string) {
	var userID *uuid.UUID
	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		id := rd.UserID
		userID = &id
	}
	entry := &types.ActivityLog{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         ip,
		UserAgent:  userAgent,
		Timestamp:  time.Now().UTC(),
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(b)
		}
	}
	if err := s.activityRepo.Append(ctx, nil, entry); err != nil {
		s.log.Error("activity log write failed", "error", err, "action", action, "resource", resource)
	}
}

func (s *auditService) GetSampleHistory(ctx context.Context, sampleID uuid.UUID, limit, offset int) (*SampleHistory, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Authorization("not authenticated")
	}
	if sampleID == uuid.Nil {
		return nil, apierr.Validation("sampleId is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.auditRepo.ListBySample(ctx, nil, sampleID)
	if err != nil {
		return nil, apierr.Persistence(fmt.Errorf("list audit rows: %w", err))
	}

	visible := make([]*types.StageAuditLog, 0, len(rows))
	for _, row := range rows {
		if workflow.AuditEntryVisible(rd.RoleCode, row.Stage, deref(row.FieldChanged), deref(row.OldValue), deref(row.NewValue)) {
			visible = append(visible, row)
		}
	}

	page := visible
	if offset < len(page) {
		page = page[offset:]
	} else {
		page = nil
	}
	if len(page) > limit {
		page = page[:limit]
	}

	users, err := s.resolveUsers(ctx, page)
	if err != nil {
		return nil, err
	}

	out := &SampleHistory{
		History:     make([]HistoryEntry, 0, len(page)),
		Transitions: []TransitionEntry{},
		Total:       len(visible),
		Limit:       limit,
		Offset:      offset,
	}
	for _, row := range page {
		out.History = append(out.History, HistoryEntry{
			ID:        row.LogID,
			SampleID:  row.SampleID,
			Stage:     row.Stage,
			FieldName: row.FieldChanged,
			OldValue:  row.OldValue,
			NewValue:  row.NewValue,
			ChangedBy: row.UserID,
			ChangedAt: row.Timestamp,
			User:      users[refID(row.UserID)],
		})
		if t := transitionFromRow(row); t != nil {
			t.User = users[refID(row.UserID)]
			out.Transitions = append(out.Transitions, *t)
		}
	}
	return out, nil
}

func (s *auditService) ListActivity(ctx context.Context, filter repos.ActivityLogFilter) ([]*types.ActivityLog, int64, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, 0, apierr.Authorization("not authenticated")
	}
	if !workflow.IsAdmin(rd.RoleCode) {
		return nil, 0, apierr.Authorization("role %s may not list activity logs", rd.RoleCode)
	}
	rows, total, err := s.activityRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, 0, apierr.Persistence(fmt.Errorf("list activity logs: %w", err))
	}
	return rows, total, nil
}

func (s *auditService) resolveUsers(ctx context.Context, rows []*types.StageAuditLog) (map[uuid.UUID]*UserRef, error) {
	seen := map[uuid.UUID]bool{}
	ids := []uuid.UUID{}
	for _, row := range rows {
		if row.UserID != nil && !seen[*row.UserID] {
			seen[*row.UserID] = true
			ids = append(ids, *row.UserID)
		}
	}
	out := map[uuid.UUID]*UserRef{}
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.userRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, apierr.Persistence(fmt.Errorf("resolve audit users: %w", err))
	}
	for _, u := range users {
		out[u.ID] = &UserRef{ID: u.ID, Username: u.Username, FullName: u.FullName}
	}
	return out, nil
}

// transitionFromRow lifts stage/status change rows into transition shape.
func transitionFromRow(row *types.StageAuditLog) *TransitionEntry {
	field := deref(row.FieldChanged)
	switch field {
	case "current_stage":
		return &TransitionEntry{
			ID:             row.LogID,
			SampleID:       row.SampleID,
			FromStage:      row.OldValue,
			ToStage:        row.NewValue,
			TransitionedBy: row.UserID,
			TransitionedAt: row.Timestamp,
		}
	case "status", "current_status", "sample_status":
		stage := row.Stage
		return &TransitionEntry{
			ID:             row.LogID,
			SampleID:       row.SampleID,
			FromStatus:     row.OldValue,
			ToStatus:       row.NewValue,
			ToStage:        &stage,
			TransitionedBy: row.UserID,
			TransitionedAt: row.Timestamp,
		}
	}
	return nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func refID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
