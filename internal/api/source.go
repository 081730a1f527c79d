package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/banshee-data/movement.report/internal/db"
	"github.com/banshee-data/movement.report/internal/movement"
	"github.com/banshee-data/movement.report/internal/tracking"
)

// MatchSource provides matches to the server. *db.DB satisfies it, as does
// DirSource for serving CSV exports straight from disk.
type MatchSource interface {
	ListMatches(ctx context.Context) ([]db.MatchInfo, error)
	LoadMatch(ctx context.Context, matchID string) (*tracking.Match, error)
}

// RunStore records analysis runs. Optional; without one the runs endpoints
// answer 501.
type RunStore interface {
	RecordRun(ctx context.Context, matchID string, threshold float64, summaries []movement.Summary) (*db.Run, error)
	LatestSummaries(ctx context.Context, matchID string) (*db.Run, []movement.Summary, error)
}

// DirSource serves every *.csv file in Dir as a match named after the file.
type DirSource struct {
	Dir    string
	Loader *tracking.Loader
}

// NewDirSource returns a DirSource reading through loader (nil means a
// memoizing loader over the OS filesystem).
func NewDirSource(dir string, loader *tracking.Loader) *DirSource {
	if loader == nil {
		loader = tracking.NewLoader(nil, true)
	}
	return &DirSource{Dir: dir, Loader: loader}
}

// exports lists the CSV files in the directory, matching the extension in
// any case. Entries come back sorted by file name.
func (s *DirSource) exports() ([]fs.DirEntry, error) {
	entries, err := s.Loader.FS.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListMatches lists the CSV exports in the directory, sorted by name.
func (s *DirSource) ListMatches(ctx context.Context) ([]db.MatchInfo, error) {
	entries, err := s.exports()
	if err != nil {
		return nil, err
	}
	out := []db.MatchInfo{}
	for _, e := range entries {
		mi := db.MatchInfo{MatchID: tracking.MatchIDFromPath(e.Name()), Source: e.Name()}
		if info, err := e.Info(); err == nil {
			mi.ImportedAt = info.ModTime().UTC()
		}
		out = append(out, mi)
	}
	slices.SortFunc(out, func(a, b db.MatchInfo) int { return strings.Compare(a.MatchID, b.MatchID) })
	return out, nil
}

// LoadMatch loads the export listed under matchID, whatever the case of its
// .csv extension.
func (s *DirSource) LoadMatch(ctx context.Context, matchID string) (*tracking.Match, error) {
	if matchID == "" || strings.ContainsAny(matchID, `/\`) || strings.Contains(matchID, "..") {
		return nil, fmt.Errorf("%w: %s", db.ErrMatchNotFound, matchID)
	}
	entries, err := s.exports()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if tracking.MatchIDFromPath(e.Name()) != matchID {
			continue
		}
		m, err := s.Loader.Load(filepath.Join(s.Dir, e.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		return m, err
	}
	return nil, fmt.Errorf("%w: %s", db.ErrMatchNotFound, matchID)
}
