package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/requestdata"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

// Presence contexts. Only the edit contexts carry blocking lock types;
// view-only presence never blocks anyone.
const (
	PresenceContextView       = "view"
	PresenceContextSampleList = "sample_list"
	PresenceContextSampleEdit = "sample_edit"
	PresenceContextStageEdit  = "stage_edit"
)

var presenceContexts = map[string]bool{
	PresenceContextView:       true,
	PresenceContextSampleList: true,
	PresenceContextSampleEdit: true,
	PresenceContextStageEdit:  true,
}

// BlockingLockTypes are the lock types that exclude other editors.
var BlockingLockTypes = []string{"sample_edit", "stage_edit"}

// LockConflict names the user holding a blocking lease.
type LockConflict struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
	RoleCode string    `json:"role_code"`
	LockType string    `json:"lock_type"`
}

// PresenceInfo is one live lease in a listing.
type PresenceInfo struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	RoleCode   string    `json:"role_code"`
	Context    string    `json:"context"`
	LockType   *string   `json:"lock_type"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type HeartbeatResult struct {
	ExpiresAt time.Time
}

type PresenceService interface {
	// Heartbeat refreshes the caller's lease, refusing blocking heartbeats
	// while another user holds a live blocking lock.
	Heartbeat(ctx context.Context, sampleID uuid.UUID, context_, lockType string) (*HeartbeatResult, *LockConflict, error)
	// Release is advisory; a missing release is tolerated via expiry.
	Release(ctx context.Context, sampleID uuid.UUID, context_ string) error
	// FindConflict returns the live blocking lock held by someone other than
	// userID, or nil. Also invoked defensively inside the stage write path.
	FindConflict(ctx context.Context, tx *gorm.DB, sampleID, userID uuid.UUID) (*LockConflict, error)
	// ListActive groups live leases by sample id.
	ListActive(ctx context.Context, sampleIDs []uuid.UUID) (map[string][]PresenceInfo, error)
	// StartReaper deletes expired leases on the given interval until ctx is
	// cancelled. Reads already ignore stale rows; this keeps the table from
	// accumulating them.
	StartReaper(ctx context.Context, interval time.Duration)
}

type presenceService struct {
	db           *gorm.DB
	log          *logger.Logger
	presenceRepo repos.SamplePresenceRepo
	ttl          time.Duration
}

func NewPresenceService(db *gorm.DB, baseLog *logger.Logger, presenceRepo repos.SamplePresenceRepo, ttl time.Duration) PresenceService {
	if ttl <= 0 {
		ttl = 25 * time.Second
	}
	return &presenceService{
		db:           db,
		log:          baseLog.With("service", "PresenceService"),
		presenceRepo: presenceRepo,
		ttl:          ttl,
	}
}

// NormalizeLockType returns the lock type if it is a known blocking type,
// else nil (a non-blocking presence ping).
func NormalizeLockType(lockType string) *string {
	v := strings.ToLower(strings.TrimSpace(lockType))
	for _, t := range BlockingLockTypes {
		if v == t {
			return &v
		}
	}
	return nil
}

// NormalizeContext maps unknown contexts to plain view presence.
func NormalizeContext(context_ string) string {
	v := strings.ToLower(strings.TrimSpace(context_))
	if presenceContexts[v] {
		return v
	}
	return PresenceContextView
}

func (s *presenceService) Heartbeat(ctx context.Context, sampleID uuid.UUID, context_, lockType string) (*HeartbeatResult, *LockConflict, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, nil, apierr.Authorization("not authenticated")
	}
	if sampleID == uuid.Nil {
		return nil, nil, apierr.Validation("sampleId is required")
	}

	normalizedLock := NormalizeLockType(lockType)
	normalizedContext := NormalizeContext(context_)

	if normalizedLock != nil {
		conflict, err := s.FindConflict(ctx, nil, sampleID, rd.UserID)
		if err != nil {
			return nil, nil, err
		}
		if conflict != nil {
			return nil, conflict, nil
		}
	}

	now := time.Now().UTC()
	row := &types.SamplePresence{
		SampleID:   sampleID,
		UserID:     rd.UserID,
		Context:    normalizedContext,
		Username:   rd.Username,
		FullName:   rd.FullName,
		RoleCode:   rd.RoleCode,
		LockType:   normalizedLock,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.presenceRepo.Upsert(ctx, nil, row); err != nil {
		return nil, nil, apierr.Persistence(fmt.Errorf("upsert presence: %w", err))
	}
	return &HeartbeatResult{ExpiresAt: row.ExpiresAt}, nil, nil
}

func (s *presenceService) Release(ctx context.Context, sampleID uuid.UUID, context_ string) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apierr.Authorization("not authenticated")
	}
	if sampleID == uuid.Nil {
		return apierr.Validation("sampleId is required")
	}
	normalized := ""
	if strings.TrimSpace(context_) != "" {
		normalized = NormalizeContext(context_)
	}
	if err := s.presenceRepo.Release(ctx, nil, sampleID, rd.UserID, normalized); err != nil {
		return apierr.Persistence(fmt.Errorf("release presence: %w", err))
	}
	return nil
}

func (s *presenceService) FindConflict(ctx context.Context, tx *gorm.DB, sampleID, userID uuid.UUID) (*LockConflict, error) {
	row, err := s.presenceRepo.FindConflict(ctx, tx, sampleID, userID, BlockingLockTypes, time.Now().UTC())
	if err != nil {
		return nil, apierr.Persistence(fmt.Errorf("find conflicting lock: %w", err))
	}
	if row == nil {
		return nil, nil
	}
	lockType := ""
	if row.LockType != nil {
		lockType = *row.LockType
	}
	return &LockConflict{
		UserID:   row.UserID,
		Username: row.Username,
		FullName: row.FullName,
		RoleCode: row.RoleCode,
		LockType: lockType,
	}, nil
}

func (s *presenceService) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reap(ctx)
			}
		}
	}()
}

func (s *presenceService) reap(ctx context.Context) {
	purged, err := s.presenceRepo.PurgeExpired(ctx, nil, time.Now().UTC())
	if err != nil {
		s.log.Warn("presence purge failed", "error", err)
		return
	}
	if purged > 0 {
		s.log.Info("purged expired presence", "count", purged)
	}
}

func (s *presenceService) ListActive(ctx context.Context, sampleIDs []uuid.UUID) (map[string][]PresenceInfo, error) {
	rows, err := s.presenceRepo.ListActive(ctx, nil, sampleIDs, time.Now().UTC())
	if err != nil {
		return nil, apierr.Persistence(fmt.Errorf("list active presence: %w", err))
	}
	grouped := map[string][]PresenceInfo{}
	for _, row := range rows {
		key := row.SampleID.String()
		grouped[key] = append(grouped[key], PresenceInfo{
			UserID:     row.UserID,
			Username:   row.Username,
			FullName:   row.FullName,
			RoleCode:   row.RoleCode,
			Context:    row.Context,
			LockType:   row.LockType,
			LastSeenAt: row.LastSeenAt,
		})
	}
	return grouped, nil
}
