package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos/testutil"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/requestdata"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/workflow"
)

func ctxAs(role string, userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID:   userID,
		Username: "user-" + userID.String()[:8],
		FullName: "Test User",
		RoleCode: role,
	})
}

type serviceFixture struct {
	db          *gorm.DB
	sampleRepo  repos.SampleRequestRepo
	stageSvc    StageService
	presenceSvc PresenceService
	auditSvc    AuditService
	sampleSvc   SampleService
}

// newFixture wires the full service stack against the integration database.
// Services commit their own transactions, so each test seeds throwaway rows
// and removes them afterwards.
func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	styleRepo := repos.NewStyleRepo(db, log)
	sampleRepo := repos.NewSampleRequestRepo(db, log)
	assignmentRepo := repos.NewTeamAssignmentRepo(db, log)
	stageRecordRepo := repos.NewStageRecordRepo(db, log)
	roleOwnerRepo := repos.NewSampleRoleOwnerRepo(db, log)
	presenceRepo := repos.NewSamplePresenceRepo(db, log)
	stageAuditRepo := repos.NewStageAuditRepo(db, log)
	activityLogRepo := repos.NewActivityLogRepo(db, log)

	presenceSvc := NewPresenceService(db, log, presenceRepo, 0)
	auditSvc := NewAuditService(db, log, stageAuditRepo, activityLogRepo, userRepo)
	stageSvc := NewStageService(db, log, sampleRepo, stageRecordRepo, roleOwnerRepo, assignmentRepo, presenceSvc, auditSvc)
	sampleSvc := NewSampleService(db, log, sampleRepo, styleRepo, assignmentRepo, stageRecordRepo, roleOwnerRepo, presenceRepo, stageSvc, auditSvc)

	return &serviceFixture{
		db:          db,
		sampleRepo:  sampleRepo,
		stageSvc:    stageSvc,
		presenceSvc: presenceSvc,
		auditSvc:    auditSvc,
		sampleSvc:   sampleSvc,
	}
}

// seedSample inserts a style and a fresh PSI sample, registering cleanup for
// every table the workflow can touch.
func (f *serviceFixture) seedSample(t *testing.T) *types.SampleRequest {
	t.Helper()
	ctx := context.Background()

	style := &types.Style{BrandID: 1, SeasonID: 1, StyleNumber: "ST-" + uuid.NewString()[:8]}
	if err := f.db.WithContext(ctx).Create(style).Error; err != nil {
		t.Fatalf("seed style: %v", err)
	}
	sample := &types.SampleRequest{
		StyleID:       style.StyleID,
		CurrentStage:  string(workflow.StagePSI),
		CurrentStatus: workflow.StatusPending,
	}
	if err := f.db.WithContext(ctx).Create(sample).Error; err != nil {
		t.Fatalf("seed sample: %v", err)
	}
	f.cleanupSample(t, sample.SampleID, style.StyleID)
	return sample
}

func (f *serviceFixture) cleanupSample(t *testing.T, sampleID, styleID uuid.UUID) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		f.db.WithContext(ctx).Where("sample_id = ?", sampleID).Delete(&types.StageAuditLog{})
		f.db.WithContext(ctx).Where("sample_id = ?", sampleID).Delete(&types.StageRecord{})
		f.db.WithContext(ctx).Where("sample_id = ?", sampleID).Delete(&types.SampleRoleOwner{})
		f.db.WithContext(ctx).Where("sample_id = ?", sampleID).Delete(&types.SamplePresence{})
		f.db.WithContext(ctx).Where("sample_id = ?", sampleID).Delete(&types.TeamAssignment{})
		f.db.WithContext(ctx).Where("sample_id = ?", sampleID).Delete(&types.SampleRequest{})
		if styleID != uuid.Nil {
			f.db.WithContext(ctx).Where("style_id = ?", styleID).Delete(&types.Style{})
		}
	})
}

func (f *serviceFixture) reloadSample(t *testing.T, sampleID uuid.UUID) *types.SampleRequest {
	t.Helper()
	sample, err := f.sampleRepo.GetByID(context.Background(), nil, sampleID)
	if err != nil {
		t.Fatalf("reload sample: %v", err)
	}
	if sample == nil {
		t.Fatalf("sample %s vanished", sampleID)
	}
	return sample
}
