package tracking

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column names of the match export.
const (
	ColEntityID   = "player_id_tracking"
	ColShortName  = "short_name"
	ColNumber     = "number"
	ColTeam       = "team_name"
	ColRole       = "player_role.acronym"
	ColTimestamp  = "timestamp"
	ColX          = "x"
	ColY          = "y"
	ColPossession = "ball_carrier"
)

// RequiredColumns must be present in every export.
var RequiredColumns = []string{ColEntityID, ColTimestamp, ColX, ColY, ColPossession}

// matchEpoch anchors timestamps that are expressed as offsets from kick-off.
var matchEpoch = time.Unix(0, 0).UTC()

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// header maps column names to their position in a record.
type header map[string]int

func newHeader(names []string) (header, error) {
	h := make(header, len(names))
	for i, n := range names {
		n = strings.TrimSpace(strings.TrimPrefix(n, "\uFEFF"))
		if _, dup := h[n]; !dup {
			h[n] = i
		}
	}
	for _, req := range RequiredColumns {
		if _, ok := h[req]; !ok {
			return nil, &MissingFieldError{Field: req}
		}
	}
	return h, nil
}

func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ReadCSV parses a match export. Rows are returned in file order; the roster
// lists entities in order of first appearance. A missing required column is
// reported as *MissingFieldError before any row is read.
func ReadCSV(r io.Reader) (*Match, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false
	cr.FieldsPerRecord = -1

	names, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MissingFieldError{Field: ColEntityID}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := newHeader(names)
	if err != nil {
		return nil, err
	}

	m := &Match{Roster: NewRoster()}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		s, err := parseSample(h, rec, line)
		if err != nil {
			return nil, err
		}
		m.Samples = append(m.Samples, s)
		m.Roster.Add(Entity{
			ID:        s.EntityID,
			ShortName: h.get(rec, ColShortName),
			Number:    normaliseNumber(h.get(rec, ColNumber)),
			Team:      h.get(rec, ColTeam),
			Role:      h.get(rec, ColRole),
		})
	}
	return m, nil
}

func parseSample(h header, rec []string, line int) (Sample, error) {
	var s Sample

	s.EntityID = normaliseNumber(h.get(rec, ColEntityID))
	if s.EntityID == "" {
		return s, &ParseError{Line: line, Column: ColEntityID, Err: errors.New("empty entity id")}
	}

	raw := h.get(rec, ColTimestamp)
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return s, &ParseError{Line: line, Column: ColTimestamp, Value: raw, Err: err}
	}
	s.Timestamp = ts

	for _, c := range []struct {
		col string
		dst *float64
	}{{ColX, &s.X}, {ColY, &s.Y}} {
		raw := h.get(rec, c.col)
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = errors.New("not a finite number")
		}
		if err != nil {
			return s, &ParseError{Line: line, Column: c.col, Value: raw, Err: err}
		}
		*c.dst = v
	}

	raw = h.get(rec, ColPossession)
	p, err := ParsePossession(raw)
	if err != nil {
		return s, &ParseError{Line: line, Column: ColPossession, Value: raw, Err: err}
	}
	s.Possession = p
	return s, nil
}

// ParseTimestamp accepts absolute timestamps (RFC 3339 or
// "YYYY-MM-DD hh:mm:ss.fff"), clock offsets from kick-off ("hh:mm:ss.fff"
// or "mm:ss.fff") and decimal seconds from kick-off.
func ParseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if strings.Contains(raw, ":") {
		d, err := parseClock(raw)
		if err != nil {
			return time.Time{}, err
		}
		return matchEpoch.Add(d), nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
	}
	return matchEpoch.Add(time.Duration(math.Round(secs * float64(time.Second)))), nil
}

func parseClock(raw string) (time.Duration, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("unrecognised clock %q", raw)
	}
	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || secs < 0 || secs >= 60 {
		return 0, fmt.Errorf("bad seconds in %q", raw)
	}
	total := secs
	mult := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		v, err := strconv.Atoi(parts[i])
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad clock field in %q", raw)
		}
		total += float64(v) * mult
		mult *= 60
	}
	return time.Duration(math.Round(total * float64(time.Second))), nil
}

// ParsePossession reads the ball-carrier flag. Empty means false.
func ParsePossession(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "", "false", "0", "no", "f", "n", "nan":
		return false, nil
	case "true", "1", "yes", "t", "y":
		return true, nil
	}
	return false, fmt.Errorf("unrecognised boolean %q", raw)
}

// normaliseNumber turns "9.0" (pandas float export of an int column) into "9".
func normaliseNumber(raw string) string {
	if strings.HasSuffix(raw, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(raw, ".0")); err == nil {
			return strings.TrimSuffix(raw, ".0")
		}
	}
	return raw
}
