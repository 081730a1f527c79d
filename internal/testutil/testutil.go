// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the sample builders and match fixtures used by
// the kinematics, movement, report and API tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/movement.report/internal/tracking"
)

// Epoch is the kick-off instant used by fixtures.
var Epoch = time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

// At returns Epoch plus secs seconds.
func At(secs float64) time.Time {
	return Epoch.Add(time.Duration(secs * float64(time.Second)))
}

// S builds a sample for entity at secs seconds after kick-off.
func S(entity string, secs, x, y float64) tracking.Sample {
	return tracking.Sample{EntityID: entity, Timestamp: At(secs), X: x, Y: y}
}

// SP builds a sample with the possession flag set.
func SP(entity string, secs, x, y float64) tracking.Sample {
	s := S(entity, secs, x, y)
	s.Possession = true
	return s
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Line builds samples for one entity moving along the x axis at a constant
// speed (units/second), one sample per second starting at t=0, x=0.
func Line(entity string, n int, speed float64) []tracking.Sample {
	out := make([]tracking.Sample, n)
	for i := range out {
		out[i] = S(entity, float64(i), float64(i)*speed, 0)
	}
	return out
}

// CSVHeader is the full column set of a match export.
const CSVHeader = "player_id_tracking,short_name,number,team_name,player_role.acronym,timestamp,x,y,ball_carrier"

// MatchCSV renders samples as a match export. Roster columns are derived
// from the entity id so fixtures stay readable.
func MatchCSV(samples []tracking.Sample) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	b.WriteByte('\n')
	for _, s := range samples {
		fmt.Fprintf(&b, "%s,Player %s,%s,Home,CF,%s,%g,%g,%t\n",
			s.EntityID, s.EntityID, s.EntityID,
			s.Timestamp.Format(time.RFC3339Nano), s.X, s.Y, s.Possession)
	}
	return b.String()
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
