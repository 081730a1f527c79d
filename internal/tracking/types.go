package tracking

import (
	"fmt"
	"time"
)

// Sample is one observed position of one entity at one instant.
// X and Y are planar coordinates with the origin at the centre of the
// field, expressed in the configured length unit.
type Sample struct {
	EntityID   string
	Timestamp  time.Time
	X          float64
	Y          float64
	Possession bool // entity is the ball carrier at this instant
}

// Entity describes a tracked participant. Only ID is guaranteed; the
// remaining fields are filled when the export carries roster columns.
type Entity struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name,omitempty"`
	Number    string `json:"number,omitempty"`
	Team      string `json:"team,omitempty"`
	Role      string `json:"role,omitempty"`
}

// DisplayName renders the entity the way the dashboard selector shows it,
// e.g. "J. Smith (#9) - CF". Missing parts are left out.
func (e Entity) DisplayName() string {
	name := e.ShortName
	if name == "" {
		name = e.ID
	}
	if e.Number != "" {
		name = fmt.Sprintf("%s (#%s)", name, e.Number)
	}
	if e.Role != "" {
		name = fmt.Sprintf("%s - %s", name, e.Role)
	}
	return name
}

// Roster holds the entities of a match in order of first appearance.
type Roster struct {
	entities []Entity
	index    map[string]int
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{index: make(map[string]int)}
}

// Add registers e if its ID has not been seen yet. Later rows for the same
// ID fill in roster fields that were empty on earlier rows.
func (r *Roster) Add(e Entity) {
	if i, ok := r.index[e.ID]; ok {
		cur := &r.entities[i]
		if cur.ShortName == "" {
			cur.ShortName = e.ShortName
		}
		if cur.Number == "" {
			cur.Number = e.Number
		}
		if cur.Team == "" {
			cur.Team = e.Team
		}
		if cur.Role == "" {
			cur.Role = e.Role
		}
		return
	}
	r.index[e.ID] = len(r.entities)
	r.entities = append(r.entities, e)
}

// Get returns the entity with the given id.
func (r *Roster) Get(id string) (Entity, bool) {
	i, ok := r.index[id]
	if !ok {
		return Entity{}, false
	}
	return r.entities[i], true
}

// Entities returns a copy of the roster in first-appearance order.
func (r *Roster) Entities() []Entity {
	out := make([]Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

// Len returns the number of entities.
func (r *Roster) Len() int { return len(r.entities) }

// Match is a finite, fully loaded tracking export for one match.
type Match struct {
	ID      string
	Samples []Sample
	Roster  *Roster
}

// EntitySamples returns the samples of one entity in input order.
func (m *Match) EntitySamples(entityID string) []Sample {
	var out []Sample
	for _, s := range m.Samples {
		if s.EntityID == entityID {
			out = append(out, s)
		}
	}
	return out
}
