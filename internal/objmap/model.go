package objmap

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/track"
)

// ErrNotFound is returned by lookups for keys absent from the map. The
// HTTP layer maps it to 404.
var ErrNotFound = errors.New("object not found")

// Map is a finalized object map. It is immutable after construction and
// safe for arbitrary concurrent readers without locking.
type Map struct {
	records map[string]*Record
	keys    []string
}

// FromRecords assembles a Map from keyed records, fixing up each
// record's Key field from its map key. Loaders (JSON, SQLite) and Build
// all funnel through here.
func FromRecords(records map[string]*Record) *Map {
	keys := make([]string, 0, len(records))
	for k, r := range records {
		r.Key = k
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Map{records: records, keys: keys}
}

// Len returns the number of objects.
func (m *Map) Len() int { return len(m.records) }

// Keys returns all object keys in sorted order. The returned slice is a
// copy.
func (m *Map) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Records returns all records in key order.
func (m *Map) Records() []*Record {
	out := make([]*Record, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.records[k])
	}
	return out
}

// Get returns the record for key, or an error wrapping ErrNotFound. It
// never returns a default record for a missing key.
func (m *Map) Get(key string) (*Record, error) {
	r, ok := m.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return r, nil
}

// ByLabel returns every record whose label matches, case-insensitively
// and ignoring surrounding whitespace, in key order. A label with no
// objects yields an empty slice, not an error.
func (m *Map) ByLabel(label string) []*Record {
	want := strings.ToLower(strings.TrimSpace(label))
	var out []*Record
	for _, k := range m.keys {
		r := m.records[k]
		if strings.ToLower(strings.TrimSpace(r.Label)) == want {
			out = append(out, r)
		}
	}
	return out
}

// Distance returns the Euclidean distance in meters between the centers
// of two objects. Either key missing yields ErrNotFound.
func (m *Map) Distance(keyA, keyB string) (float64, error) {
	a, err := m.Get(keyA)
	if err != nil {
		return 0, err
	}
	b, err := m.Get(keyB)
	if err != nil {
		return 0, err
	}
	return a.Center.DistanceTo(b.Center), nil
}

// FindMatching answers "is this fresh observation one of the mapped
// objects": it runs the pairwise same-object check against every record
// and returns the best-scoring match. Center may be nil when the caller
// has no geometry. Returns ErrNotFound when nothing passes the gates.
func (m *Map) FindMatching(label string, embedding []float32, center *geom.Vec3, p track.Params) (*Record, error) {
	query := track.Candidate{Label: label, Embedding: embedding, Center: center}

	var best *Record
	bestScore := 0.0
	for _, k := range m.keys {
		r := m.records[k]
		c := r.Center
		d := track.SameObject(query, track.Candidate{
			Label:     r.Label,
			Embedding: r.Embedding,
			Center:    &c,
		}, p)
		if !d.Same {
			continue
		}
		score := d.Sim
		if d.Dist >= 0 {
			score -= p.DistancePenalty * d.Dist
		}
		// Strict > with key-ordered iteration keeps ties deterministic.
		if best == nil || score > bestScore {
			best = r
			bestScore = score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no object matches label %q", ErrNotFound, label)
	}
	return best, nil
}
