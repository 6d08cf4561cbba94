package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/requestdata"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/workflow"
)

const leadTimeRushMaxWeeks = 17

// StyleInput creates or references the owning style. When StyleID is set the
// inline fields are ignored.
type StyleInput struct {
	StyleID         *uuid.UUID `json:"style_id"`
	BrandID         int64      `json:"brand_id"`
	SeasonID        int64      `json:"season_id"`
	StyleNumber     string     `json:"style_number"`
	StyleName       *string    `json:"style_name"`
	Division        *string    `json:"division"`
	ProductCategory *string    `json:"product_category"`
	Color           *string    `json:"color"`
	Qty             *int64     `json:"qty"`
	COO             *string    `json:"coo"`
}

// AssignmentInput names the team members responsible for the sample.
type AssignmentInput struct {
	PBDUserID    *uuid.UUID `json:"pbd_user_id"`
	TDUserID     *uuid.UUID `json:"td_user_id"`
	FTYUserID    *uuid.UUID `json:"fty_user_id"`
	FTYMD2UserID *uuid.UUID `json:"fty_md2_user_id"`
	MDUserID     *uuid.UUID `json:"md_user_id"`
	CostingUser  *uuid.UUID `json:"costing_user_id"`
}

func (a *AssignmentInput) empty() bool {
	return a == nil || (a.PBDUserID == nil && a.TDUserID == nil && a.FTYUserID == nil &&
		a.FTYMD2UserID == nil && a.MDUserID == nil && a.CostingUser == nil)
}

type SampleCreateInput struct {
	Style             StyleInput       `json:"style"`
	Assignment        *AssignmentInput `json:"assignment"`
	SampleType        *string          `json:"sample_type"`
	SampleTypeGroup   *string          `json:"sample_type_group"`
	KickoffDate       *string          `json:"kickoff_date"`
	SampleDueDenver   *string          `json:"sample_due_denver"`
	RequestedLeadTime *int64           `json:"requested_lead_time"`
	RefFromM88        *string          `json:"ref_from_m88"`
	RefSampleToFty    *string          `json:"ref_sample_to_fty"`
	AdditionalNotes   *string          `json:"additional_notes"`
	KeyDate           *string          `json:"key_date"`
}

// SampleUpdateInput carries header, style and assignment edits. current_stage
// and current_status are engine-owned and not accepted here; a cancel-like
// sample_status still drops the sample through status derivation.
type SampleUpdateInput struct {
	Header     map[string]interface{} `json:"header"`
	Style      map[string]interface{} `json:"style"`
	Assignment *AssignmentInput       `json:"assignment"`
}

type SampleListFilter struct {
	Style        repos.StyleFilter
	SampleType   string
	SampleStatus string
}

// ShippingView is the delivery summary derived from the shipment record; it is
// never stored.
type ShippingView struct {
	SentDate    *string `json:"sent_date"`
	AWBNumber   *string `json:"awb_number"`
	AWBStatus   *string `json:"awb_status"`
	ArrivalWeek *string `json:"arrival_week"`
	Delivered   bool    `json:"delivered"`
}

// RoleOwnerView is one resolved workflow responsibility.
type RoleOwnerView struct {
	RoleKey   string    `json:"role_key"`
	UserID    uuid.UUID `json:"user_id"`
	User      *UserRef  `json:"user,omitempty"`
	EnteredAt time.Time `json:"entered_at"`
}

// SampleFull is the composed read view. Every branch either loads fully or the
// whole call fails; there are no partially populated views.
type SampleFull struct {
	Sample     *types.SampleRequest `json:"sample"`
	Stages     *StagesResult        `json:"stages"`
	RoleOwners []RoleOwnerView      `json:"role_owners"`
	History    *SampleHistory       `json:"history"`
	Shipping   *ShippingView        `json:"shipping"`
}

type SampleService interface {
	Create(ctx context.Context, input SampleCreateInput) (*types.SampleRequest, error)
	Get(ctx context.Context, sampleID uuid.UUID) (*types.SampleRequest, error)
	GetFull(ctx context.Context, sampleID uuid.UUID) (*SampleFull, error)
	List(ctx context.Context, filter SampleListFilter) ([]*types.SampleRequest, error)
	Update(ctx context.Context, sampleID uuid.UUID, input SampleUpdateInput) (*types.SampleRequest, error)
	Delete(ctx context.Context, sampleID uuid.UUID) error
}

type sampleService struct {
	db              *gorm.DB
	log             *logger.Logger
	sampleRepo      repos.SampleRequestRepo
	styleRepo       repos.StyleRepo
	assignmentRepo  repos.TeamAssignmentRepo
	stageRecordRepo repos.StageRecordRepo
	roleOwnerRepo   repos.SampleRoleOwnerRepo
	presenceRepo    repos.SamplePresenceRepo
	stageSvc        StageService
	auditSvc        AuditService
}

func NewSampleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sampleRepo repos.SampleRequestRepo,
	styleRepo repos.StyleRepo,
	assignmentRepo repos.TeamAssignmentRepo,
	stageRecordRepo repos.StageRecordRepo,
	roleOwnerRepo repos.SampleRoleOwnerRepo,
	presenceRepo repos.SamplePresenceRepo,
	stageSvc StageService,
	auditSvc AuditService,
) SampleService {
	return &sampleService{
		db:              db,
		log:             baseLog.With("service", "SampleService"),
		sampleRepo:      sampleRepo,
		styleRepo:       styleRepo,
		assignmentRepo:  assignmentRepo,
		stageRecordRepo: stageRecordRepo,
		roleOwnerRepo:   roleOwnerRepo,
		presenceRepo:    presenceRepo,
		stageSvc:        stageSvc,
		auditSvc:        auditSvc,
	}
}

func (s *sampleService) Create(ctx context.Context, input SampleCreateInput) (*types.SampleRequest, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Authorization("not authenticated")
	}
	if !workflow.CanManageSample(rd.RoleCode) {
		return nil, apierr.Authorization("role %s may not create samples", rd.RoleCode)
	}
	if input.Style.StyleID == nil && input.Style.StyleNumber == "" {
		return nil, apierr.Validation("style_id or an inline style is required")
	}

	leadWeeks, leadType := leadTime(input.RequestedLeadTime, input.KickoffDate, input.SampleDueDenver)
	creator := rd.UserID

	var created *types.SampleRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		styleID, err := s.resolveStyle(ctx, tx, input.Style)
		if err != nil {
			return err
		}

		sample := &types.SampleRequest{
			StyleID:           styleID,
			SampleType:        input.SampleType,
			SampleTypeGroup:   input.SampleTypeGroup,
			KickoffDate:       input.KickoffDate,
			SampleDueDenver:   input.SampleDueDenver,
			RequestedLeadTime: leadWeeks,
			LeadTimeType:      leadType,
			RefFromM88:        input.RefFromM88,
			RefSampleToFty:    input.RefSampleToFty,
			AdditionalNotes:   input.AdditionalNotes,
			KeyDate:           input.KeyDate,
			CurrentStage:      string(workflow.StagePSI),
			CurrentStatus:     workflow.StatusPending,
			CreatedBy:         &creator,
		}
		created, err = s.sampleRepo.Create(ctx, tx, sample)
		if err != nil {
			return apierr.Persistence(fmt.Errorf("create sample: %w", err))
		}

		if !input.Assignment.empty() {
			_, err := s.assignmentRepo.Create(ctx, tx, &types.TeamAssignment{
				SampleID:     created.SampleID,
				PBDUserID:    input.Assignment.PBDUserID,
				TDUserID:     input.Assignment.TDUserID,
				FTYUserID:    input.Assignment.FTYUserID,
				FTYMD2UserID: input.Assignment.FTYMD2UserID,
				MDUserID:     input.Assignment.MDUserID,
				CostingUser:  input.Assignment.CostingUser,
			})
			if err != nil {
				return apierr.Persistence(fmt.Errorf("create team assignment: %w", err))
			}
		}

		// The creator holds the creation responsibility unless the assignment
		// names a PBD member.
		owner := creator
		if input.Assignment != nil && input.Assignment.PBDUserID != nil {
			owner = *input.Assignment.PBDUserID
		}
		if err := s.roleOwnerRepo.Set(ctx, tx, created.SampleID, string(workflow.RoleKeySampleCreation), owner, &creator); err != nil {
			return apierr.Persistence(fmt.Errorf("set creation owner: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, apierr.From(err)
	}

	s.auditSvc.RecordStageEntries(ctx, []*types.StageAuditLog{{
		SampleID:  created.SampleID,
		UserID:    &creator,
		Stage:     string(workflow.StagePSI),
		Action:    types.AuditActionCreate,
		Timestamp: time.Now().UTC(),
	}})

	s.log.Info("sample created", "sample_id", created.SampleID, "style_id", created.StyleID)
	return s.Get(ctx, created.SampleID)
}

func (s *sampleService) Get(ctx context.Context, sampleID uuid.UUID) (*types.SampleRequest, error) {
	sample, err := s.sampleRepo.GetByID(ctx, nil, sampleID)
	if err != nil {
		return nil, apierr.Persistence(fmt.Errorf("load sample: %w", err))
	}
	if sample == nil {
		return nil, apierr.NotFound("sample not found")
	}
	return sample, nil
}

func (s *sampleService) GetFull(ctx context.Context, sampleID uuid.UUID) (*SampleFull, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Authorization("not authenticated")
	}

	full := &SampleFull{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sample, err := s.Get(gctx, sampleID)
		if err != nil {
			return err
		}
		full.Sample = sample
		return nil
	})
	g.Go(func() error {
		stages, err := s.stageSvc.GetStages(gctx, sampleID)
		if err != nil {
			return err
		}
		full.Stages = stages
		return nil
	})
	g.Go(func() error {
		owners, err := s.roleOwnerRepo.ListBySample(gctx, nil, sampleID)
		if err != nil {
			return apierr.Persistence(fmt.Errorf("list role owners: %w", err))
		}
		views := make([]RoleOwnerView, 0, len(owners))
		for _, o := range owners {
			view := RoleOwnerView{RoleKey: o.RoleKey, UserID: o.UserID, EnteredAt: o.EnteredAt}
			if o.User != nil {
				view.User = &UserRef{ID: o.User.ID, Username: o.User.Username, FullName: o.User.FullName}
			}
			views = append(views, view)
		}
		full.RoleOwners = views
		return nil
	})
	g.Go(func() error {
		history, err := s.auditSvc.GetSampleHistory(gctx, sampleID, 100, 0)
		if err != nil {
			return err
		}
		full.History = history
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apierr.From(err)
	}

	full.Shipping = shippingView(full.Sample, full.Stages)
	return full, nil
}

func (s *sampleService) List(ctx context.Context, filter SampleListFilter) ([]*types.SampleRequest, error) {
	sampleFilter := repos.SampleFilter{
		SampleType:   filter.SampleType,
		SampleStatus: filter.SampleStatus,
	}
	if filter.Style.Active() {
		ids, err := s.styleRepo.FilterIDs(ctx, nil, filter.Style)
		if err != nil {
			return nil, apierr.Persistence(fmt.Errorf("filter styles: %w", err))
		}
		if len(ids) == 0 {
			return []*types.SampleRequest{}, nil
		}
		sampleFilter.StyleIDs = ids
	}
	samples, err := s.sampleRepo.List(ctx, nil, sampleFilter)
	if err != nil {
		return nil, apierr.Persistence(fmt.Errorf("list samples: %w", err))
	}
	return samples, nil
}

// headerFields are the sample header keys callers may update. Workflow state
// is absent on purpose.
var headerFields = map[string]bool{
	"sample_type":         true,
	"sample_type_group":   true,
	"sample_status":       true,
	"unfree_status":       true,
	"kickoff_date":        true,
	"sample_due_denver":   true,
	"requested_lead_time": true,
	"lead_time_type":      true,
	"ref_from_m88":        true,
	"ref_sample_to_fty":   true,
	"additional_notes":    true,
	"key_date":            true,
}

var styleFields = map[string]bool{
	"brand_id":         true,
	"season_id":        true,
	"style_number":     true,
	"style_name":       true,
	"division":         true,
	"product_category": true,
	"color":            true,
	"qty":              true,
	"coo":              true,
}

func (s *sampleService) Update(ctx context.Context, sampleID uuid.UUID, input SampleUpdateInput) (*types.SampleRequest, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Authorization("not authenticated")
	}
	if !workflow.CanManageSample(rd.RoleCode) {
		return nil, apierr.Authorization("role %s may not update samples", rd.RoleCode)
	}

	sample, err := s.Get(ctx, sampleID)
	if err != nil {
		return nil, err
	}

	header := map[string]interface{}{}
	for k, v := range input.Header {
		if headerFields[k] {
			header[k] = v
		}
	}
	style := map[string]interface{}{}
	for k, v := range input.Style {
		if styleFields[k] {
			style[k] = v
		}
	}

	actorID := rd.UserID
	now := time.Now().UTC()
	var entries []*types.StageAuditLog
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(header) > 0 {
			// A cancel on the header status field is absorbing regardless of
			// stage.
			if v, ok := header["sample_status"].(string); ok && workflow.CancelLike(v) {
				if sample.CurrentStatus != workflow.StatusDropped {
					header["current_status"] = workflow.StatusDropped
					entries = append(entries, fieldEntry(sampleID, actorID, workflow.NormalizeStage(sample.CurrentStage), types.AuditActionUpdate, "current_status", sample.CurrentStatus, workflow.StatusDropped, now))
				}
			}
			if err := s.sampleRepo.UpdateFields(ctx, tx, sampleID, header); err != nil {
				return apierr.Persistence(fmt.Errorf("update sample header: %w", err))
			}
		}
		if len(style) > 0 {
			if err := s.styleRepo.UpdateFields(ctx, tx, sample.StyleID, style); err != nil {
				return apierr.Persistence(fmt.Errorf("update style: %w", err))
			}
		}
		if input.Assignment != nil {
			if err := s.applyAssignment(ctx, tx, sampleID, input.Assignment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apierr.From(err)
	}

	s.auditSvc.RecordStageEntries(ctx, entries)
	return s.Get(ctx, sampleID)
}

func (s *sampleService) Delete(ctx context.Context, sampleID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return apierr.Authorization("not authenticated")
	}
	if !workflow.IsAdmin(rd.RoleCode) {
		return apierr.Authorization("role %s may not delete samples", rd.RoleCode)
	}
	if _, err := s.Get(ctx, sampleID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.presenceRepo.DeleteBySample(ctx, tx, sampleID); err != nil {
			return apierr.Persistence(fmt.Errorf("delete presence: %w", err))
		}
		if err := s.roleOwnerRepo.DeleteBySample(ctx, tx, sampleID); err != nil {
			return apierr.Persistence(fmt.Errorf("delete role owners: %w", err))
		}
		if err := s.stageRecordRepo.DeleteBySample(ctx, tx, sampleID); err != nil {
			return apierr.Persistence(fmt.Errorf("delete stage records: %w", err))
		}
		if err := s.assignmentRepo.DeleteBySample(ctx, tx, sampleID); err != nil {
			return apierr.Persistence(fmt.Errorf("delete team assignment: %w", err))
		}
		if err := s.sampleRepo.Delete(ctx, tx, sampleID); err != nil {
			return apierr.Persistence(fmt.Errorf("delete sample: %w", err))
		}
		return nil
	})
	if err != nil {
		return apierr.From(err)
	}
	s.log.Info("sample deleted", "sample_id", sampleID)
	return nil
}

func (s *sampleService) resolveStyle(ctx context.Context, tx *gorm.DB, input StyleInput) (uuid.UUID, error) {
	if input.StyleID != nil {
		style, err := s.styleRepo.GetByID(ctx, tx, *input.StyleID)
		if err != nil {
			return uuid.Nil, apierr.Persistence(fmt.Errorf("load style: %w", err))
		}
		if style == nil {
			return uuid.Nil, apierr.NotFound("style not found")
		}
		return style.StyleID, nil
	}
	style, err := s.styleRepo.Create(ctx, tx, &types.Style{
		BrandID:         input.BrandID,
		SeasonID:        input.SeasonID,
		StyleNumber:     input.StyleNumber,
		StyleName:       input.StyleName,
		Division:        input.Division,
		ProductCategory: input.ProductCategory,
		Color:           input.Color,
		Qty:             input.Qty,
		COO:             input.COO,
	})
	if err != nil {
		return uuid.Nil, apierr.Persistence(fmt.Errorf("create style: %w", err))
	}
	return style.StyleID, nil
}

func (s *sampleService) applyAssignment(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID, input *AssignmentInput) error {
	existing, err := s.assignmentRepo.GetBySampleID(ctx, tx, sampleID)
	if err != nil {
		return apierr.Persistence(fmt.Errorf("load team assignment: %w", err))
	}
	if existing == nil {
		if input.empty() {
			return nil
		}
		_, err := s.assignmentRepo.Create(ctx, tx, &types.TeamAssignment{
			SampleID:     sampleID,
			PBDUserID:    input.PBDUserID,
			TDUserID:     input.TDUserID,
			FTYUserID:    input.FTYUserID,
			FTYMD2UserID: input.FTYMD2UserID,
			MDUserID:     input.MDUserID,
			CostingUser:  input.CostingUser,
		})
		if err != nil {
			return apierr.Persistence(fmt.Errorf("create team assignment: %w", err))
		}
		return nil
	}
	updates := map[string]interface{}{
		"pbd_user_id":     input.PBDUserID,
		"td_user_id":      input.TDUserID,
		"fty_user_id":     input.FTYUserID,
		"fty_md2_user_id": input.FTYMD2UserID,
		"md_user_id":      input.MDUserID,
		"costing_user_id": input.CostingUser,
	}
	if err := s.assignmentRepo.UpdateFields(ctx, tx, sampleID, updates); err != nil {
		return apierr.Persistence(fmt.Errorf("update team assignment: %w", err))
	}
	return nil
}

// leadTime resolves the requested lead time in weeks and its class. An
// explicit week count wins; otherwise it is derived from the kickoff and due
// dates. Up to leadTimeRushMaxWeeks the request is a rush.
func leadTime(requestedWeeks *int64, kickoff, due *string) (*int64, *string) {
	weeks := requestedWeeks
	if weeks == nil && kickoff != nil && due != nil {
		start, errA := time.Parse("2006-01-02", *kickoff)
		end, errB := time.Parse("2006-01-02", *due)
		if errA == nil && errB == nil && end.After(start) {
			days := int64(end.Sub(start).Hours() / 24)
			w := (days + 6) / 7
			weeks = &w
		}
	}
	if weeks == nil || *weeks <= 0 {
		return weeks, nil
	}
	class := "STND"
	if *weeks <= leadTimeRushMaxWeeks {
		class = "RUSH"
	}
	return weeks, &class
}

// shippingView derives the delivery summary from the shipment slot of the
// role-filtered stage view; callers who cannot see the stage get nil.
func shippingView(sample *types.SampleRequest, stages *StagesResult) *ShippingView {
	if stages == nil {
		return nil
	}
	slot, ok := stages.Stages[string(workflow.StageShipmentToBrand)]
	if !ok || slot == nil {
		return nil
	}
	view := &ShippingView{
		SentDate:    stringField(slot.Fields, "sent_date"),
		AWBNumber:   stringField(slot.Fields, "awb_number"),
		AWBStatus:   stringField(slot.Fields, "awb_status"),
		ArrivalWeek: stringField(slot.Fields, "arrival_week"),
	}
	if sample != nil {
		view.Delivered = sample.CurrentStatus == workflow.StatusDelivered || sample.CurrentStatus == workflow.StatusCompleted
	}
	return view
}

func stringField(fields map[string]interface{}, key string) *string {
	if fields == nil {
		return nil
	}
	if s, ok := fields[key].(string); ok && s != "" {
		return &s
	}
	return nil
}
