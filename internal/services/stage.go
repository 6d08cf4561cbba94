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

// StageUpdateInput is the single write path into a sample's workflow state.
// Stage names the stage being written; AdvanceToStage, when set, must be the
// unique successor of the sample's current stage.
type StageUpdateInput struct {
	Stage          string                 `json:"stage"`
	AdvanceToStage string                 `json:"advance_to_stage"`
	Payload        map[string]interface{} `json:"payload"`
}

// StageUpdateResult reports the sample's workflow state after the write.
type StageUpdateResult struct {
	SampleID      uuid.UUID              `json:"sample_id"`
	Stage         string                 `json:"stage"`
	Fields        map[string]interface{} `json:"fields"`
	CurrentStage  string                 `json:"current_stage"`
	CurrentStatus string                 `json:"current_status"`
	Advanced      bool                   `json:"advanced"`
}

// StageView is one stage's persisted data in a read response. A nil Fields
// slot in StagesResult.Stages means the caller's role may not see that stage.
type StageView struct {
	RecordID  uuid.UUID              `json:"record_id"`
	Fields    map[string]interface{} `json:"fields"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// StagesResult always carries every record stage as a key; the shape does not
// vary with the caller, only the visibility of each slot does.
type StagesResult struct {
	SampleID      uuid.UUID             `json:"sample_id"`
	CurrentStage  string                `json:"current_stage"`
	CurrentStatus string                `json:"current_status"`
	Stages        map[string]*StageView `json:"stages"`
}

type StageService interface {
	// UpdateStage applies a stage write and optional advance as one unit.
	// A live blocking lock held by another user is reported via the second
	// return, not as an error, so handlers can surface the holder.
	UpdateStage(ctx context.Context, sampleID uuid.UUID, input StageUpdateInput) (*StageUpdateResult, *LockConflict, error)
	// GetStages returns every stage record with role-filtered slots.
	GetStages(ctx context.Context, sampleID uuid.UUID) (*StagesResult, error)
}

type stageService struct {
	db              *gorm.DB
	log             *logger.Logger
	sampleRepo      repos.SampleRequestRepo
	stageRecordRepo repos.StageRecordRepo
	roleOwnerRepo   repos.SampleRoleOwnerRepo
	assignmentRepo  repos.TeamAssignmentRepo
	presenceSvc     PresenceService
	auditSvc        AuditService
}

func NewStageService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sampleRepo repos.SampleRequestRepo,
	stageRecordRepo repos.StageRecordRepo,
	roleOwnerRepo repos.SampleRoleOwnerRepo,
	assignmentRepo repos.TeamAssignmentRepo,
	presenceSvc PresenceService,
	auditSvc AuditService,
) StageService {
	return &stageService{
		db:              db,
		log:             baseLog.With("service", "StageService"),
		sampleRepo:      sampleRepo,
		stageRecordRepo: stageRecordRepo,
		roleOwnerRepo:   roleOwnerRepo,
		assignmentRepo:  assignmentRepo,
		presenceSvc:     presenceSvc,
		auditSvc:        auditSvc,
	}
}

func (s *stageService) UpdateStage(ctx context.Context, sampleID uuid.UUID, input StageUpdateInput) (*StageUpdateResult, *LockConflict, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, nil, apierr.Authorization("not authenticated")
	}
	if sampleID == uuid.Nil {
		return nil, nil, apierr.Validation("sampleId is required")
	}

	stage := workflow.NormalizeStage(input.Stage)
	if !workflow.KnownStage(stage) {
		return nil, nil, apierr.Validation("unknown stage %q", input.Stage)
	}

	sample, err := s.sampleRepo.GetByID(ctx, nil, sampleID)
	if err != nil {
		return nil, nil, apierr.Persistence(fmt.Errorf("load sample: %w", err))
	}
	if sample == nil {
		return nil, nil, apierr.NotFound("sample not found")
	}

	if !workflow.CanWriteStage(rd.RoleCode, stage) {
		return nil, nil, apierr.Authorization("role %s may not write stage %s", rd.RoleCode, stage)
	}

	// Locks are advisory; this re-check keeps a stale client that skipped the
	// heartbeat path from silently clobbering an active editor.
	conflict, err := s.presenceSvc.FindConflict(ctx, nil, sampleID, rd.UserID)
	if err != nil {
		return nil, nil, err
	}
	if conflict != nil {
		return nil, conflict, nil
	}

	filtered := workflow.FilterPayload(stage, input.Payload)

	var advance workflow.Stage
	if input.AdvanceToStage != "" {
		advance = workflow.NormalizeStage(input.AdvanceToStage)
		if !workflow.KnownStage(advance) {
			return nil, nil, apierr.Validation("unknown stage %q", input.AdvanceToStage)
		}
		next := workflow.Next(workflow.NormalizeStage(sample.CurrentStage))
		if next == "" || advance != next {
			return nil, nil, apierr.Conflict("cannot advance from %s to %s", sample.CurrentStage, advance)
		}
	}

	recordStage := workflow.RecordStage(stage)
	actorID := rd.UserID

	var (
		result  *StageUpdateResult
		entries []*types.StageAuditLog
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.stageRecordRepo.GetBySampleAndStage(ctx, tx, sampleID, string(recordStage))
		if err != nil {
			return apierr.Persistence(fmt.Errorf("load stage record: %w", err))
		}

		merged := map[string]interface{}{}
		created := record == nil
		if record != nil {
			for k, v := range record.Fields {
				merged[k] = v
			}
		}

		now := time.Now().UTC()
		if created {
			for k, v := range filtered {
				merged[k] = v
			}
			record, err = s.stageRecordRepo.Create(ctx, tx, &types.StageRecord{
				SampleID: sampleID,
				Stage:    string(recordStage),
				Fields:   datatypes.JSONMap(merged),
			})
			if err != nil {
				return apierr.Persistence(fmt.Errorf("create stage record: %w", err))
			}
			entries = append(entries, &types.StageAuditLog{
				SampleID:  sampleID,
				UserID:    &actorID,
				Stage:     string(stage),
				Action:    types.AuditActionCreate,
				Timestamp: now,
			})
			for _, k := range workflow.StageFieldKeys(recordStage) {
				v, ok := filtered[k]
				if !ok {
					continue
				}
				entries = append(entries, fieldEntry(sampleID, actorID, stage, types.AuditActionCreate, k, nil, v, now))
			}
		} else {
			for _, k := range workflow.StageFieldKeys(recordStage) {
				v, ok := filtered[k]
				if !ok {
					continue
				}
				old, had := merged[k]
				if had && auditValue(old) == auditValue(v) {
					continue
				}
				var oldV interface{}
				if had {
					oldV = old
				}
				entries = append(entries, fieldEntry(sampleID, actorID, stage, types.AuditActionUpdate, k, oldV, v, now))
				merged[k] = v
			}
			if err := s.stageRecordRepo.UpdateFields(ctx, tx, record.RecordID, datatypes.JSONMap(merged)); err != nil {
				return apierr.Persistence(fmt.Errorf("update stage record: %w", err))
			}
		}

		// Confirming delivery needs a recorded dispatch date on the shipment
		// record, counting values written in this same request.
		if advance == workflow.StageDeliveredConfirmation || stage == workflow.StageDeliveredConfirmation {
			evidence := merged
			if recordStage != workflow.StageShipmentToBrand {
				shipment, err := s.stageRecordRepo.GetBySampleAndStage(ctx, tx, sampleID, string(workflow.StageShipmentToBrand))
				if err != nil {
					return apierr.Persistence(fmt.Errorf("load shipment record: %w", err))
				}
				evidence = map[string]interface{}{}
				if shipment != nil {
					evidence = shipment.Fields
				}
			}
			if !workflow.DeliveryEvidence(evidence) {
				return apierr.Precondition("delivery cannot be confirmed without a sent date")
			}
		}

		if err := s.recomputeOwner(ctx, tx, sampleID, stage, rd, filtered); err != nil {
			return err
		}

		newStage := workflow.NormalizeStage(sample.CurrentStage)
		if advance != "" {
			newStage = advance
		}
		cancel := workflow.PayloadCancels(filtered)
		touched := len(merged) > 0
		newStatus := workflow.DeriveStatus(newStage, touched, cancel)

		updates := map[string]interface{}{}
		if string(newStage) != sample.CurrentStage {
			updates["current_stage"] = string(newStage)
			entries = append(entries, fieldEntry(sampleID, actorID, stage, types.AuditActionUpdate, "current_stage", sample.CurrentStage, string(newStage), now))
		}
		if newStatus != sample.CurrentStatus {
			updates["current_status"] = newStatus
			entries = append(entries, fieldEntry(sampleID, actorID, stage, types.AuditActionUpdate, "current_status", sample.CurrentStatus, newStatus, now))
		}
		// A cancel drops both status columns.
		if cancel && (sample.SampleStatus == nil || *sample.SampleStatus != workflow.StatusDropped) {
			updates["sample_status"] = workflow.StatusDropped
			var oldStatus interface{}
			if sample.SampleStatus != nil {
				oldStatus = *sample.SampleStatus
			}
			entries = append(entries, fieldEntry(sampleID, actorID, stage, types.AuditActionUpdate, "sample_status", oldStatus, workflow.StatusDropped, now))
		}
		if len(updates) > 0 {
			if err := s.sampleRepo.UpdateFields(ctx, tx, sampleID, updates); err != nil {
				return apierr.Persistence(fmt.Errorf("update sample: %w", err))
			}
		}

		result = &StageUpdateResult{
			SampleID:      sampleID,
			Stage:         string(stage),
			Fields:        merged,
			CurrentStage:  string(newStage),
			CurrentStatus: newStatus,
			Advanced:      advance != "",
		}
		return nil
	})
	if err != nil {
		return nil, nil, apierr.From(err)
	}

	// The trail is written after commit: a failed append loses diagnostics,
	// never the mutation, and a rolled-back mutation leaves no trail.
	s.auditSvc.RecordStageEntries(ctx, entries)

	s.log.Info("stage updated",
		"sample_id", sampleID,
		"stage", stage,
		"advanced", result.Advanced,
		"current_stage", result.CurrentStage,
		"current_status", result.CurrentStatus,
	)
	return result, nil, nil
}

func (s *stageService) GetStages(ctx context.Context, sampleID uuid.UUID) (*StagesResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Authorization("not authenticated")
	}
	sample, err := s.sampleRepo.GetByID(ctx, nil, sampleID)
	if err != nil {
		return nil, apierr.Persistence(fmt.Errorf("load sample: %w", err))
	}
	if sample == nil {
		return nil, apierr.NotFound("sample not found")
	}

	records, err := s.stageRecordRepo.GetAllForSample(ctx, nil, sampleID)
	if err != nil {
		return nil, apierr.Persistence(fmt.Errorf("load stage records: %w", err))
	}
	byStage := map[string]*types.StageRecord{}
	for _, r := range records {
		byStage[r.Stage] = r
	}

	out := &StagesResult{
		SampleID:      sampleID,
		CurrentStage:  sample.CurrentStage,
		CurrentStatus: sample.CurrentStatus,
		Stages:        make(map[string]*StageView, len(workflow.RecordStages)),
	}
	for _, stage := range workflow.RecordStages {
		if !workflow.CanSeeStage(rd.RoleCode, stage) {
			out.Stages[string(stage)] = nil
			continue
		}
		view := &StageView{Fields: map[string]interface{}{}}
		if r, ok := byStage[string(stage)]; ok {
			view.RecordID = r.RecordID
			view.UpdatedAt = r.UpdatedAt
			for k, v := range r.Fields {
				view.Fields[k] = v
			}
		}
		out.Stages[string(stage)] = view
	}
	return out, nil
}

// recomputeOwner resolves the stage's role-key owner after a write: an
// explicit owner_id in the payload wins, then the actor when their role is the
// stage's natural role, then the team assignment slot, otherwise the key is
// cleared.
func (s *stageService) recomputeOwner(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, stage workflow.Stage, rd *requestdata.RequestData, payload map[string]interface{}) error {
	key, ok := workflow.RoleKeyForStage(stage)
	if !ok {
		return nil
	}

	var owner *uuid.UUID
	if raw, present := payload["owner_id"]; present {
		if str, ok := raw.(string); ok {
			if id, err := uuid.Parse(str); err == nil && id != uuid.Nil {
				owner = &id
			}
		}
	}

	natural := workflow.NaturalRoleForStage(stage)
	if owner == nil && workflow.ResolveRole(rd.RoleCode) == natural {
		id := rd.UserID
		owner = &id
	}

	if owner == nil {
		assignment, err := s.assignmentRepo.GetBySampleID(ctx, tx, sampleID)
		if err != nil {
			return apierr.Persistence(fmt.Errorf("load team assignment: %w", err))
		}
		if assignment != nil {
			owner = assignmentSlot(assignment, natural)
		}
	}

	enteredBy := rd.UserID
	if owner == nil {
		if err := s.roleOwnerRepo.Clear(ctx, tx, sampleID, string(key)); err != nil {
			return apierr.Persistence(fmt.Errorf("clear role owner: %w", err))
		}
		return nil
	}
	if err := s.roleOwnerRepo.Set(ctx, tx, sampleID, string(key), *owner, &enteredBy); err != nil {
		return apierr.Persistence(fmt.Errorf("set role owner: %w", err))
	}
	return nil
}

// assignmentSlot maps a natural role onto its team assignment column.
func assignmentSlot(a *types.TeamAssignment, role string) *uuid.UUID {
	switch role {
	case workflow.RolePBD:
		return a.PBDUserID
	case workflow.RoleTD:
		return a.TDUserID
	case workflow.RoleFTY:
		return a.FTYUserID
	case workflow.RoleMD:
		return a.MDUserID
	case workflow.RoleCosting:
		return a.CostingUser
	}
	return nil
}

func fieldEntry(sampleID, actorID uuid.UUID, stage workflow.Stage, action, field string, oldV, newV interface{}, at time.Time) *types.StageAuditLog {
	f := field
	return &types.StageAuditLog{
		SampleID:     sampleID,
		UserID:       &actorID,
		Stage:        string(stage),
		Action:       action,
		FieldChanged: &f,
		OldValue:     auditValuePtr(oldV),
		NewValue:     auditValuePtr(newV),
		Timestamp:    at,
	}
}

// auditValue flattens a payload value to the string form stored in the trail.
func auditValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func auditValuePtr(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := auditValue(v)
	return &s
}
