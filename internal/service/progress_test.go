package service

import (
	"errors"
	"testing"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/progress"
)

func TestProgressLatestAndReset(t *testing.T) {
	f := newSessionFixture(t)
	svc := NewProgressService(f.svc, f.store)
	ctx := asUser("u1")

	if _, err := svc.Latest(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	f.store.UpsertProgress(ctx, progress.Key{UserID: "u1", StageID: "stage-2", ModuleID: "fee-monster", TaskID: "education"})
	rec, err := svc.Latest(ctx, "u1")
	if err != nil || rec.ModuleID != "fee-monster" {
		t.Fatalf("Latest: %+v %v", rec, err)
	}

	if err := svc.Reset(ctx, "u1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := svc.Latest(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after reset, got %v", err)
	}
}

func TestProgressRequiresUser(t *testing.T) {
	f := newSessionFixture(t)
	svc := NewProgressService(f.svc, f.store)

	if _, err := svc.Latest(asUser(""), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := svc.Reset(asUser(""), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestProgressSnapshot(t *testing.T) {
	f := newSessionFixture(t)
	svc := NewProgressService(f.svc, f.store)
	ctx := asUser("u1")

	if snap := svc.Snapshot(ctx, ""); snap != (progress.Snapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
	v, _ := f.svc.Mount(ctx, "stage-1", "asset-identification")
	f.svc.Toggle(ctx, v.ID, "stage-intro")
	f.svc.Toggle(ctx, v.ID, "connect-yuh")
	if snap := svc.Snapshot(ctx, ""); snap != (progress.Snapshot{TotalTasks: 5, CompletedTasks: 2}) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
