package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/workflow"
)

func TestUpdateStage_WriteWithoutAdvanceLeavesStage(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	ctx := ctxAs("TD", uuid.New())

	result, conflict, err := f.stageSvc.UpdateStage(ctx, sample.SampleID, StageUpdateInput{
		Stage:   "psi",
		Payload: map[string]interface{}{"sent_date": "2026-01-05", "work_week": "WW02"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if conflict != nil {
		t.Fatalf("unexpected conflict: %+v", conflict)
	}
	if result.Advanced {
		t.Fatalf("no advance requested, but result says advanced")
	}
	if result.CurrentStage != string(workflow.StagePSI) {
		t.Fatalf("stage moved without advance: %s", result.CurrentStage)
	}
	if result.CurrentStatus != workflow.StatusProcessing {
		t.Fatalf("touched sample should be PROCESSING, got %s", result.CurrentStatus)
	}

	reloaded := f.reloadSample(t, sample.SampleID)
	if reloaded.CurrentStage != string(workflow.StagePSI) {
		t.Fatalf("persisted stage moved: %s", reloaded.CurrentStage)
	}
}

func TestUpdateStage_AdvanceToSuccessor(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	actor := uuid.New()
	ctx := ctxAs("TD", actor)

	result, conflict, err := f.stageSvc.UpdateStage(ctx, sample.SampleID, StageUpdateInput{
		Stage:          "psi",
		AdvanceToStage: "sample_development",
		Payload:        map[string]interface{}{"sent_date": "2026-01-05"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if conflict != nil {
		t.Fatalf("unexpected conflict: %+v", conflict)
	}
	if !result.Advanced || result.CurrentStage != string(workflow.StageSampleDevelopment) {
		t.Fatalf("expected advance to sample_development, got %+v", result)
	}

	// The transition must show up in the trail.
	history, err := f.auditSvc.GetSampleHistory(ctxAs("ADMIN", actor), sample.SampleID, 100, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var sawTransition bool
	for _, tr := range history.Transitions {
		if tr.ToStage != nil && *tr.ToStage == string(workflow.StageSampleDevelopment) {
			sawTransition = true
		}
	}
	if !sawTransition {
		t.Fatalf("stage transition missing from trail: %+v", history.Transitions)
	}
}

func TestUpdateStage_IllegalJumpIsConflictAndLeavesSampleUntouched(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	ctx := ctxAs("ADMIN", uuid.New())

	_, _, err := f.stageSvc.UpdateStage(ctx, sample.SampleID, StageUpdateInput{
		Stage:          "psi",
		AdvanceToStage: "costing",
	})
	if err == nil {
		t.Fatalf("expected conflict for skipping stages")
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Code != apierr.CodeConflict {
		t.Fatalf("expected conflict_error, got %v", err)
	}

	reloaded := f.reloadSample(t, sample.SampleID)
	if reloaded.CurrentStage != string(workflow.StagePSI) || reloaded.CurrentStatus != workflow.StatusPending {
		t.Fatalf("failed advance mutated the sample: %s/%s", reloaded.CurrentStage, reloaded.CurrentStatus)
	}
}

func TestUpdateStage_RoleOutsideStageIsAuthorizationError(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	ctx := ctxAs("COSTING", uuid.New())

	_, _, err := f.stageSvc.UpdateStage(ctx, sample.SampleID, StageUpdateInput{
		Stage:   "psi",
		Payload: map[string]interface{}{"sent_date": "2026-01-05"},
	})
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Code != apierr.CodeAuthorization {
		t.Fatalf("expected authorization_error, got %v", err)
	}
}

func TestUpdateStage_CancelIsAbsorbing(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	ctx := ctxAs("TD", uuid.New())

	result, _, err := f.stageSvc.UpdateStage(ctx, sample.SampleID, StageUpdateInput{
		Stage:   "psi",
		Payload: map[string]interface{}{"sent_status": "Cancelled"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.CurrentStatus != workflow.StatusDropped {
		t.Fatalf("cancel-like status should derive DROPPED, got %s", result.CurrentStatus)
	}

	// The drop lands on both status columns.
	reloaded := f.reloadSample(t, sample.SampleID)
	if reloaded.CurrentStatus != workflow.StatusDropped {
		t.Fatalf("current_status not dropped: %s", reloaded.CurrentStatus)
	}
	if reloaded.SampleStatus == nil || *reloaded.SampleStatus != workflow.StatusDropped {
		t.Fatalf("sample_status not dropped: %v", reloaded.SampleStatus)
	}
}

func TestUpdateStage_DeliveryConfirmationNeedsSentDate(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	admin := ctxAs("ADMIN", uuid.New())

	// Walk the sample to shipment_to_brand.
	steps := []struct{ stage, advance string }{
		{"psi", "sample_development"},
		{"sample_development", "pc_review"},
		{"pc_review", "costing"},
		{"costing", "shipment_to_brand"},
	}
	for _, s := range steps {
		if _, _, err := f.stageSvc.UpdateStage(admin, sample.SampleID, StageUpdateInput{Stage: s.stage, AdvanceToStage: s.advance}); err != nil {
			t.Fatalf("advance %s -> %s: %v", s.stage, s.advance, err)
		}
	}

	// No sent_date recorded: confirming delivery must fail as a precondition
	// and leave the sample in place.
	_, _, err := f.stageSvc.UpdateStage(admin, sample.SampleID, StageUpdateInput{
		Stage:          "shipment_to_brand",
		AdvanceToStage: "delivered_confirmation",
	})
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Code != apierr.CodePrecondition {
		t.Fatalf("expected precondition_error, got %v", err)
	}
	reloaded := f.reloadSample(t, sample.SampleID)
	if reloaded.CurrentStage != string(workflow.StageShipmentToBrand) {
		t.Fatalf("failed confirmation moved the sample: %s", reloaded.CurrentStage)
	}

	// A sent_date written in the same request satisfies the check.
	result, _, err := f.stageSvc.UpdateStage(admin, sample.SampleID, StageUpdateInput{
		Stage:          "shipment_to_brand",
		AdvanceToStage: "delivered_confirmation",
		Payload:        map[string]interface{}{"sent_date": "2026-03-01"},
	})
	if err != nil {
		t.Fatalf("confirm delivery: %v", err)
	}
	if result.CurrentStage != string(workflow.StageDeliveredConfirmation) {
		t.Fatalf("expected terminal stage, got %s", result.CurrentStage)
	}
	if result.CurrentStatus != workflow.StatusCompleted {
		t.Fatalf("terminal stage should be COMPLETED, got %s", result.CurrentStatus)
	}
}

func TestUpdateStage_DeliveredConfirmationWriteNeedsSentDate(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	admin := ctxAs("ADMIN", uuid.New())

	steps := []struct{ stage, advance string }{
		{"psi", "sample_development"},
		{"sample_development", "pc_review"},
		{"pc_review", "costing"},
		{"costing", "shipment_to_brand"},
	}
	for _, s := range steps {
		if _, _, err := f.stageSvc.UpdateStage(admin, sample.SampleID, StageUpdateInput{Stage: s.stage, AdvanceToStage: s.advance}); err != nil {
			t.Fatalf("advance %s -> %s: %v", s.stage, s.advance, err)
		}
	}

	// A plain write naming the terminal stage needs the sent date too, and a
	// failed one rolls the record write back.
	_, _, err := f.stageSvc.UpdateStage(admin, sample.SampleID, StageUpdateInput{
		Stage:   "delivered_confirmation",
		Payload: map[string]interface{}{"awb_status": "pending"},
	})
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Code != apierr.CodePrecondition {
		t.Fatalf("expected precondition_error, got %v", err)
	}
	stages, err := f.stageSvc.GetStages(admin, sample.SampleID)
	if err != nil {
		t.Fatalf("get stages: %v", err)
	}
	shipment := stages.Stages[string(workflow.StageShipmentToBrand)]
	if shipment != nil && len(shipment.Fields) > 0 {
		t.Fatalf("failed confirmation persisted fields: %v", shipment.Fields)
	}

	// With the dispatch date in the same payload the write goes through.
	if _, _, err := f.stageSvc.UpdateStage(admin, sample.SampleID, StageUpdateInput{
		Stage:   "delivered_confirmation",
		Payload: map[string]interface{}{"sent_date": "2026-03-01", "awb_status": "pending"},
	}); err != nil {
		t.Fatalf("terminal write with sent_date: %v", err)
	}
}

func TestUpdateStage_BlockedByAnotherUsersLock(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	holder := uuid.New()
	writer := uuid.New()

	if _, conflict, err := f.presenceSvc.Heartbeat(ctxAs("TD", holder), sample.SampleID, "stage_edit", "stage_edit"); err != nil || conflict != nil {
		t.Fatalf("holder heartbeat: %v %+v", err, conflict)
	}

	_, conflict, err := f.stageSvc.UpdateStage(ctxAs("TD", writer), sample.SampleID, StageUpdateInput{
		Stage:   "psi",
		Payload: map[string]interface{}{"sent_date": "2026-01-05"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if conflict == nil || conflict.UserID != holder {
		t.Fatalf("expected lock conflict held by %s, got %+v", holder, conflict)
	}

	// The blocked write must not have touched the record.
	stages, err := f.stageSvc.GetStages(ctxAs("ADMIN", writer), sample.SampleID)
	if err != nil {
		t.Fatalf("get stages: %v", err)
	}
	psi := stages.Stages[string(workflow.StagePSI)]
	if psi != nil && len(psi.Fields) > 0 {
		t.Fatalf("blocked write persisted fields: %v", psi.Fields)
	}

	// Once the holder releases, the write goes through.
	if err := f.presenceSvc.Release(ctxAs("TD", holder), sample.SampleID, ""); err != nil {
		t.Fatalf("release: %v", err)
	}
	_, conflict, err = f.stageSvc.UpdateStage(ctxAs("TD", writer), sample.SampleID, StageUpdateInput{
		Stage:   "psi",
		Payload: map[string]interface{}{"sent_date": "2026-01-05"},
	})
	if err != nil || conflict != nil {
		t.Fatalf("write after release: %v %+v", err, conflict)
	}
}

func TestUpdateStage_UnknownStageAndMissingSample(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs("ADMIN", uuid.New())

	_, _, err := f.stageSvc.UpdateStage(ctx, uuid.New(), StageUpdateInput{Stage: "packing"})
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Code != apierr.CodeValidation {
		t.Fatalf("expected validation_error for unknown stage, got %v", err)
	}

	_, _, err = f.stageSvc.UpdateStage(ctx, uuid.New(), StageUpdateInput{Stage: "psi"})
	if !errors.As(err, &ae) || ae.Code != apierr.CodeNotFound {
		t.Fatalf("expected not_found for missing sample, got %v", err)
	}
}

func TestGetStages_RoleFilteredSlots(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	td := ctxAs("TD", uuid.New())

	if _, _, err := f.stageSvc.UpdateStage(td, sample.SampleID, StageUpdateInput{
		Stage:   "psi",
		Payload: map[string]interface{}{"sent_date": "2026-01-05"},
	}); err != nil {
		t.Fatalf("seed psi write: %v", err)
	}

	// MD's scope is pc_review only; every other slot is an explicit null.
	result, err := f.stageSvc.GetStages(ctxAs("MD", uuid.New()), sample.SampleID)
	if err != nil {
		t.Fatalf("get stages: %v", err)
	}
	if len(result.Stages) != len(workflow.RecordStages) {
		t.Fatalf("response shape not stable: %d slots", len(result.Stages))
	}
	if result.Stages[string(workflow.StagePSI)] != nil {
		t.Fatalf("MD should get a null psi slot")
	}
	if result.Stages[string(workflow.StagePCReview)] == nil {
		t.Fatalf("MD should see the pc_review slot")
	}

	// Admin sees the written data.
	adminView, err := f.stageSvc.GetStages(ctxAs("ADMIN", uuid.New()), sample.SampleID)
	if err != nil {
		t.Fatalf("admin get stages: %v", err)
	}
	psi := adminView.Stages[string(workflow.StagePSI)]
	if psi == nil || psi.Fields["sent_date"] != "2026-01-05" {
		t.Fatalf("admin view missing written fields: %+v", psi)
	}
}

func TestUpdateStage_SetsNaturalRoleOwner(t *testing.T) {
	f := newFixture(t)
	sample := f.seedSample(t)
	actor := uuid.New()

	// TD is the natural role for psi, so the actor becomes the intake owner.
	if _, _, err := f.stageSvc.UpdateStage(ctxAs("TD", actor), sample.SampleID, StageUpdateInput{
		Stage:   "psi",
		Payload: map[string]interface{}{"sent_date": "2026-01-05"},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	full, err := f.sampleSvc.GetFull(ctxAs("ADMIN", actor), sample.SampleID)
	if err != nil {
		t.Fatalf("get full: %v", err)
	}
	var found bool
	for _, o := range full.RoleOwners {
		if o.RoleKey == string(workflow.RoleKeyPSIIntake) && o.UserID == actor {
			found = true
		}
	}
	if !found {
		t.Fatalf("psi intake owner not recorded: %+v", full.RoleOwners)
	}
}
