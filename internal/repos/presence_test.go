package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos/testutil"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

func strPtr(s string) *string { return &s }

func presenceRow(sampleID, userID uuid.UUID, context_ string, lockType *string, ttl time.Duration) *types.SamplePresence {
	now := time.Now().UTC()
	return &types.SamplePresence{
		SampleID:   sampleID,
		UserID:     userID,
		Context:    context_,
		Username:   "user-" + userID.String()[:8],
		FullName:   "Test User",
		RoleCode:   "TD",
		LockType:   lockType,
		LastSeenAt: now,
		ExpiresAt:  now.Add(ttl),
	}
}

func TestSamplePresenceRepo_UpsertRefreshesExistingLease(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewSamplePresenceRepo(db, testutil.Logger(t))
	ctx := context.Background()

	sampleID := uuid.New()
	userID := uuid.New()

	first := presenceRow(sampleID, userID, "stage_edit", strPtr("stage_edit"), 25*time.Second)
	if err := repo.Upsert(ctx, tx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := presenceRow(sampleID, userID, "stage_edit", strPtr("stage_edit"), 50*time.Second)
	if err := repo.Upsert(ctx, tx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := repo.ListActive(ctx, tx, []uuid.UUID{sampleID}, time.Now().UTC())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one lease after refresh, got %d", len(rows))
	}
	if !rows[0].ExpiresAt.After(first.ExpiresAt) {
		t.Fatalf("refresh did not extend expiry: %v <= %v", rows[0].ExpiresAt, first.ExpiresAt)
	}
}

func TestSamplePresenceRepo_FindConflictIgnoresSelfAndNonBlocking(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewSamplePresenceRepo(db, testutil.Logger(t))
	ctx := context.Background()

	sampleID := uuid.New()
	me := uuid.New()
	other := uuid.New()
	blocking := []string{"sample_edit", "stage_edit"}
	now := time.Now().UTC()

	// My own blocking lock never conflicts with me.
	if err := repo.Upsert(ctx, tx, presenceRow(sampleID, me, "stage_edit", strPtr("stage_edit"), 25*time.Second)); err != nil {
		t.Fatalf("upsert own lock: %v", err)
	}
	row, err := repo.FindConflict(ctx, tx, sampleID, me, blocking, now)
	if err != nil {
		t.Fatalf("find conflict: %v", err)
	}
	if row != nil {
		t.Fatalf("own lock reported as conflict")
	}

	// Another user's view-only presence does not block.
	if err := repo.Upsert(ctx, tx, presenceRow(sampleID, other, "view", nil, 25*time.Second)); err != nil {
		t.Fatalf("upsert viewer: %v", err)
	}
	row, err = repo.FindConflict(ctx, tx, sampleID, me, blocking, now)
	if err != nil {
		t.Fatalf("find conflict: %v", err)
	}
	if row != nil {
		t.Fatalf("view presence reported as conflict")
	}

	// Their blocking lock does.
	if err := repo.Upsert(ctx, tx, presenceRow(sampleID, other, "sample_edit", strPtr("sample_edit"), 25*time.Second)); err != nil {
		t.Fatalf("upsert blocking lock: %v", err)
	}
	row, err = repo.FindConflict(ctx, tx, sampleID, me, blocking, now)
	if err != nil {
		t.Fatalf("find conflict: %v", err)
	}
	if row == nil || row.UserID != other {
		t.Fatalf("expected conflict held by %s, got %+v", other, row)
	}
}

func TestSamplePresenceRepo_ExpiredLockDoesNotConflict(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewSamplePresenceRepo(db, testutil.Logger(t))
	ctx := context.Background()

	sampleID := uuid.New()
	holder := uuid.New()
	blocking := []string{"sample_edit", "stage_edit"}

	stale := presenceRow(sampleID, holder, "stage_edit", strPtr("stage_edit"), -time.Second)
	if err := repo.Upsert(ctx, tx, stale); err != nil {
		t.Fatalf("upsert stale lock: %v", err)
	}

	row, err := repo.FindConflict(ctx, tx, sampleID, uuid.New(), blocking, time.Now().UTC())
	if err != nil {
		t.Fatalf("find conflict: %v", err)
	}
	if row != nil {
		t.Fatalf("expired lock still conflicts: %+v", row)
	}
}

func TestSamplePresenceRepo_ReleaseScopedAndFull(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewSamplePresenceRepo(db, testutil.Logger(t))
	ctx := context.Background()

	sampleID := uuid.New()
	userID := uuid.New()
	if err := repo.Upsert(ctx, tx, presenceRow(sampleID, userID, "view", nil, 25*time.Second)); err != nil {
		t.Fatalf("upsert view: %v", err)
	}
	if err := repo.Upsert(ctx, tx, presenceRow(sampleID, userID, "stage_edit", strPtr("stage_edit"), 25*time.Second)); err != nil {
		t.Fatalf("upsert edit: %v", err)
	}

	if err := repo.Release(ctx, tx, sampleID, userID, "stage_edit"); err != nil {
		t.Fatalf("scoped release: %v", err)
	}
	rows, err := repo.ListActive(ctx, tx, []uuid.UUID{sampleID}, time.Now().UTC())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(rows) != 1 || rows[0].Context != "view" {
		t.Fatalf("expected only the view lease to survive, got %d rows", len(rows))
	}

	if err := repo.Release(ctx, tx, sampleID, userID, ""); err != nil {
		t.Fatalf("full release: %v", err)
	}
	rows, err = repo.ListActive(ctx, tx, []uuid.UUID{sampleID}, time.Now().UTC())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no leases after full release, got %d", len(rows))
	}
}

func TestSamplePresenceRepo_PurgeExpired(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewSamplePresenceRepo(db, testutil.Logger(t))
	ctx := context.Background()

	sampleID := uuid.New()
	if err := repo.Upsert(ctx, tx, presenceRow(sampleID, uuid.New(), "view", nil, -time.Minute)); err != nil {
		t.Fatalf("upsert expired: %v", err)
	}
	if err := repo.Upsert(ctx, tx, presenceRow(sampleID, uuid.New(), "view", nil, time.Minute)); err != nil {
		t.Fatalf("upsert live: %v", err)
	}

	purged, err := repo.PurgeExpired(ctx, tx, time.Now().UTC())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged < 1 {
		t.Fatalf("expected at least one purged row, got %d", purged)
	}
	rows, err := repo.ListActive(ctx, tx, []uuid.UUID{sampleID}, time.Now().UTC())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one surviving lease, got %d", len(rows))
	}
}
