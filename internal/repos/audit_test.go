package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos/testutil"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/types"
)

func TestStageAuditRepo_AppendAndListNewestFirst(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewStageAuditRepo(db, testutil.Logger(t))
	ctx := context.Background()

	sampleID := uuid.New()
	userID := uuid.New()
	field := "sent_date"
	newValue := "2026-01-05"
	base := time.Now().UTC().Add(-time.Minute)

	entries := []*types.StageAuditLog{
		{SampleID: sampleID, UserID: &userID, Stage: "psi", Action: types.AuditActionCreate, Timestamp: base},
		{SampleID: sampleID, UserID: &userID, Stage: "psi", Action: types.AuditActionUpdate, FieldChanged: &field, NewValue: &newValue, Timestamp: base.Add(time.Second)},
	}
	if err := repo.Append(ctx, tx, entries); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows, err := repo.ListBySample(ctx, tx, sampleID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].FieldChanged == nil || *rows[0].FieldChanged != field {
		t.Fatalf("rows not newest first: %+v", rows[0])
	}
	if rows[1].FieldChanged != nil {
		t.Fatalf("whole-record entry should carry nil field_changed: %+v", rows[1])
	}
}

func TestStageAuditRepo_AppendEmptyIsNoop(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewStageAuditRepo(db, testutil.Logger(t))

	if err := repo.Append(context.Background(), tx, nil); err != nil {
		t.Fatalf("append nil: %v", err)
	}
}
