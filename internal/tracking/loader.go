package tracking

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/movement.report/internal/fsutil"
	"github.com/banshee-data/movement.report/internal/monitoring"
)

// Loader reads match exports from a filesystem. When Memoize is set, a file
// whose path, size and modification time are unchanged is parsed only once;
// callers get a fresh copy of the samples on every call so cached data
// cannot be corrupted by downstream code.
type Loader struct {
	FS      fsutil.FileSystem
	Memoize bool

	mu    sync.Mutex
	cache map[string]cachedMatch
}

type cachedMatch struct {
	size    int64
	modTime time.Time
	match   *Match
}

// NewLoader returns a loader over fsys (nil means the OS filesystem).
func NewLoader(fsys fsutil.FileSystem, memoize bool) *Loader {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Loader{FS: fsys, Memoize: memoize, cache: make(map[string]cachedMatch)}
}

// Load parses the CSV export at path. The match ID defaults to the file
// name without extension.
func (l *Loader) Load(path string) (*Match, error) {
	info, err := l.FS.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat match export: %w", err)
	}

	if l.Memoize {
		l.mu.Lock()
		c, ok := l.cache[path]
		l.mu.Unlock()
		if ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
			return cloneMatch(c.match), nil
		}
	}

	f, err := l.FS.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open match export: %w", err)
	}
	defer f.Close()

	m, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.ID = MatchIDFromPath(path)
	monitoring.Logf("loaded match %s: %d samples, %d entities", m.ID, len(m.Samples), m.Roster.Len())

	if l.Memoize {
		l.mu.Lock()
		l.cache[path] = cachedMatch{size: info.Size(), modTime: info.ModTime(), match: m}
		l.mu.Unlock()
		return cloneMatch(m), nil
	}
	return m, nil
}

// MatchIDFromPath derives a match identifier from an export file name.
func MatchIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cloneMatch(m *Match) *Match {
	samples := make([]Sample, len(m.Samples))
	copy(samples, m.Samples)
	roster := NewRoster()
	for _, e := range m.Roster.Entities() {
		roster.Add(e)
	}
	return &Match{ID: m.ID, Samples: samples, Roster: roster}
}
