package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"ip-tracking-api/models"
)

func TestGormStoreUpdateSubmissionReportsConflict(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `submissions` SET .*`version`=version \\+ 1.* WHERE submission_id = \\? AND version = \\? AND delete_at IS NULL"),
			anyArgs: true,
			result:  scriptedResult{rowsAffected: 0},
		},
	}
	db, state := newScriptedGormDB(t, steps)
	store := NewGormStore(db)

	sub := &models.Submission{SubmissionID: 7, Status: models.SubmissionStatusInReview, Version: 3}
	err := store.UpdateSubmission(context.Background(), sub, 3)
	if err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if sub.Version != 3 {
		t.Fatalf("version must stay at 3 on conflict, got %d", sub.Version)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unexpected remaining steps: %v", err)
	}
}

func TestGormStoreUpdateSubmissionBumpsVersion(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `submissions` SET "),
			anyArgs: true,
			result:  scriptedResult{rowsAffected: 1},
		},
	}
	db, state := newScriptedGormDB(t, steps)
	store := NewGormStore(db)

	sub := &models.Submission{SubmissionID: 7, Status: models.SubmissionStatusInReview, Version: 3}
	if err := store.UpdateSubmission(context.Background(), sub, 3); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if sub.Version != 4 {
		t.Fatalf("expected version 4, got %d", sub.Version)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unexpected remaining steps: %v", err)
	}
}

func TestGormStoreAppendHistoryDuplicateLoadsExistingRow(t *testing.T) {
	createdAt := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `tracking_history` .*ON DUPLICATE KEY UPDATE"),
			anyArgs: true,
			result:  scriptedResult{rowsAffected: 0},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `tracking_history` WHERE fact_key = \\?"),
			anyArgs: true,
			columns: []string{"history_id", "submission_id", "status", "event_type", "fact_key", "created_at"},
			rows: [][]driver.Value{{
				int64(41), int64(7), "submitted", models.TrackingEventStatusChange, "fact-1", createdAt,
			}},
		},
	}
	db, state := newScriptedGormDB(t, steps)
	store := NewGormStore(db)

	row := &models.TrackingHistory{SubmissionID: 7, Status: "in_review", FactKey: "fact-1"}
	inserted, err := store.AppendHistory(context.Background(), row)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate to be skipped")
	}
	if row.HistoryID != 41 || row.Status != "submitted" {
		t.Fatalf("expected existing row to be returned, got %+v", row)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unexpected remaining steps: %v", err)
	}
}

func TestGormStoreRunInTxLocksAndRollsBack(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `submissions` WHERE submission_id = \\? AND delete_at IS NULL .*FOR UPDATE"),
			anyArgs: true,
			columns: []string{"submission_id"},
			rows:    [][]driver.Value{},
		},
	}
	db, state := newScriptedGormDB(t, steps)
	store := NewGormStore(db)

	err := store.RunInTx(context.Background(), func(tx Store) error {
		_, err := tx.GetSubmission(context.Background(), 9)
		return err
	})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if state.rollbacks != 1 || state.commits != 0 {
		t.Fatalf("expected one rollback, got commits=%d rollbacks=%d", state.commits, state.rollbacks)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unexpected remaining steps: %v", err)
	}
}

func TestGormStoreEnqueueReconciliationRejectsDuplicateKey(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT count\\(\\*\\) FROM `stage_reconciliation_jobs` WHERE fact_key = \\?"),
			args:    []driver.Value{"stage-3-abc"},
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	}
	db, state := newScriptedGormDB(t, steps)
	store := NewGormStore(db)

	err := store.EnqueueReconciliation(context.Background(), &models.StageReconciliationJob{StageID: 3, FactKey: "stage-3-abc"})
	if err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unexpected remaining steps: %v", err)
	}
}
