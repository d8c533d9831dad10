package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fletchck/fletchck/internal/domain"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := domain.Result{
			Time:    base.Add(time.Duration(i) * time.Minute),
			Success: i != 1,
			Status:  domain.StatusPassing,
			Message: "run",
		}
		if err := s.Append(ctx, "mail", rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Append(ctx, "web", domain.Result{Time: base, Status: domain.StatusFailing}); err != nil {
		t.Fatalf("append: %v", err)
	}

	recs, err := s.Recent(ctx, "mail", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	// newest first
	if !recs[0].Time.After(recs[1].Time) {
		t.Fatalf("order wrong: %v before %v", recs[0].Time, recs[1].Time)
	}
	if recs[1].Success {
		t.Fatalf("middle record should be a failure")
	}

	other, err := s.Recent(ctx, "web", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(other) != 1 || other[0].Status != domain.StatusFailing {
		t.Fatalf("web records wrong: %+v", other)
	}
}

func TestStore_RecentUnknownCheckEmpty(t *testing.T) {
	s := openTest(t)
	recs, err := s.Recent(context.Background(), "ghost", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %+v", recs)
	}
}

func TestStore_Prune(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	s.Append(ctx, "mail", domain.Result{Time: old, Status: domain.StatusPassing})
	s.Append(ctx, "mail", domain.Result{Time: recent, Status: domain.StatusPassing})

	if err := s.Prune(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("prune: %v", err)
	}
	recs, err := s.Recent(ctx, "mail", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 1 || !recs[0].Time.Equal(recent) {
		t.Fatalf("prune kept wrong rows: %+v", recs)
	}
}
