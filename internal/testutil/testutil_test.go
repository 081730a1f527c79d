package testutil

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/movement.report/internal/tracking"
)

func TestAt(t *testing.T) {
	t.Parallel()

	if got := At(1.5).Sub(Epoch); got != 1500*time.Millisecond {
		t.Errorf("At(1.5) - Epoch = %v, want 1.5s", got)
	}
}

func TestLine(t *testing.T) {
	t.Parallel()

	samples := Line("7", 4, 2.5)
	if len(samples) != 4 {
		t.Fatalf("len = %d, want 4", len(samples))
	}
	last := samples[3]
	if last.X != 7.5 || last.Y != 0 || last.EntityID != "7" {
		t.Errorf("unexpected last sample: %+v", last)
	}
}

func TestMatchCSV(t *testing.T) {
	t.Parallel()

	out := MatchCSV([]tracking.Sample{SP("9", 0, 1, -2)})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != CSVHeader {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "9,Player 9,9,Home,CF,2024-03-09T15:00:00Z,1,-2,true") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest("GET", "/api/matches")
	if req.Method != "GET" {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.URL.Path != "/api/matches" {
		t.Errorf("path = %s, want /api/matches", req.URL.Path)
	}
}
