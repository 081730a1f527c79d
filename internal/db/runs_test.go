package db

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/banshee-data/movement.report/internal/kinematics"
	"github.com/banshee-data/movement.report/internal/movement"
)

func summariesFor(t *testing.T, db *DB, matchID string, threshold float64) []movement.Summary {
	t.Helper()
	m, err := db.LoadMatch(context.Background(), matchID)
	if err != nil {
		t.Fatalf("LoadMatch failed: %v", err)
	}
	derived := kinematics.Derive(m.Samples)
	var out []movement.Summary
	for _, e := range m.Roster.Entities() {
		s, err := movement.Summarize(derived, e.ID, threshold)
		if err != nil {
			t.Fatalf("Summarize(%s) failed: %v", e.ID, err)
		}
		out = append(out, s)
	}
	return out
}

func TestRecordRunAndLatestSummaries(t *testing.T) {
	db, clock := newTestDB(t)
	ctx := context.Background()

	if err := db.ImportMatch(ctx, testMatch("m"), "m.csv"); err != nil {
		t.Fatalf("ImportMatch failed: %v", err)
	}

	first, err := db.RecordRun(ctx, "m", 7, summariesFor(t, db, "m", 7))
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if _, err := uuid.Parse(first.RunID); err != nil {
		t.Errorf("run id %q is not a uuid: %v", first.RunID, err)
	}

	clock.Advance(time.Minute)
	want := summariesFor(t, db, "m", 5)
	second, err := db.RecordRun(ctx, "m", 5, want)
	if err != nil {
		t.Fatalf("second RecordRun failed: %v", err)
	}
	if second.RunID == first.RunID {
		t.Error("run ids must be unique")
	}

	run, got, err := db.LatestSummaries(ctx, "m")
	if err != nil {
		t.Fatalf("LatestSummaries failed: %v", err)
	}
	if run.RunID != second.RunID || run.SprintThreshold != 5 {
		t.Errorf("latest run = %+v, want %+v", run, second)
	}
	if !run.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", run.CreatedAt, second.CreatedAt)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summaries differ (-want +got):\n%s", diff)
	}
}

func TestRecordRun_NilPeakSpeed(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	if err := db.ImportMatch(ctx, testMatch("m"), "m.csv"); err != nil {
		t.Fatalf("ImportMatch failed: %v", err)
	}
	in := []movement.Summary{{EntityID: "solo", Samples: 1, SprintThreshold: 7, MeanPosition: movement.Point{X: 1, Y: 2}}}
	if _, err := db.RecordRun(ctx, "m", 7, in); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	_, got, err := db.LatestSummaries(ctx, "m")
	if err != nil {
		t.Fatalf("LatestSummaries failed: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("summaries differ (-want +got):\n%s", diff)
	}
}

func TestRecordRun_UnknownMatch(t *testing.T) {
	db, _ := newTestDB(t)
	if _, err := db.RecordRun(context.Background(), "ghost", 7, nil); err == nil {
		t.Error("expected foreign key error for unknown match")
	}
}

func TestLatestSummaries_NoRuns(t *testing.T) {
	db, _ := newTestDB(t)
	_, _, err := db.LatestSummaries(context.Background(), "m")
	if !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}
}

func TestAttachAdminRoutes(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.ImportMatch(context.Background(), testMatch("m"), "m.csv"); err != nil {
		t.Fatalf("ImportMatch failed: %v", err)
	}

	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code == http.StatusNotFound {
		t.Fatal("Route /debug/backup should be registered, got 404")
	}
	// tsweb may refuse debug access depending on the caller.
	if rec.Code != http.StatusOK {
		t.Skipf("debug access refused with %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "backup-") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}

	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("backup is not gzip: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !strings.HasPrefix(string(data), "SQLite format 3") {
		t.Errorf("backup does not look like a SQLite file")
	}
}
