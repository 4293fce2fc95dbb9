// Package stream holds the per-registered-stream state the manager
// and diff engine operate on: the owned Reader, the unrolled schema
// halves, the destination table, subscriptions, and the prev/curr
// fingerprint dictionaries a snapshot diffs against.
package stream

import (
	"github.com/c360/inputcore/filterevent"
	"github.com/c360/inputcore/fingerprint"
	"github.com/c360/inputcore/hostval"
	"github.com/c360/inputcore/reader"
	"github.com/c360/inputcore/schema"
)

// Entry is one row's record in a prev/curr dictionary: the
// destination table's own key for the row's index, plus the
// fingerprint of the row's value half at the time it was last seen.
type Entry struct {
	IdxKey         hostval.IdxKey
	ValFingerprint fingerprint.Key
}

// Stream is the state kept for one registered reader/destination
// pairing. IdxCount/ValCount are leaf counts of the two unrolled
// schemas; their sum must equal the length of every row a Reader
// emits for this stream.
type Stream struct {
	ID     string
	Reader reader.Reader

	IdxCount int
	ValCount int
	IdxType  schema.RecordType
	ValType  schema.RecordType

	Dst hostval.Table

	// WantRecord controls, when ValCount == 1, whether the value half
	// is wrapped in a one-field record or assigned bare. When
	// ValCount > 1 it is forced true at construction.
	WantRecord bool

	Events  []string
	Filters []filterevent.Filter

	Prev map[fingerprint.Key]Entry
	Curr map[fingerprint.Key]Entry
}

// New builds a Stream in its steady-state-before-first-snapshot form:
// empty Curr, empty Prev, no subscriptions. WantRecord is forced true
// whenever valCount > 1.
func New(id string, rd reader.Reader, idxCount, valCount int, idxType, valType schema.RecordType, dst hostval.Table, wantRecord bool) *Stream {
	if valCount > 1 {
		wantRecord = true
	}
	return &Stream{
		ID:         id,
		Reader:     rd,
		IdxCount:   idxCount,
		ValCount:   valCount,
		IdxType:    idxType,
		ValType:    valType,
		Dst:        dst,
		WantRecord: wantRecord,
		Prev:       make(map[fingerprint.Key]Entry),
		Curr:       make(map[fingerprint.Key]Entry),
	}
}

// RegisterEvent appends name to Events. Registering the same name more
// than once is allowed and is not deduplicated: each registration adds
// its own subscription, so a row change dispatches name once per
// registration.
func (s *Stream) RegisterEvent(name string) {
	s.Events = append(s.Events, name)
}

// UnregisterEvent removes the first occurrence of name from Events.
// Reports whether anything was removed.
func (s *Stream) UnregisterEvent(name string) bool {
	for i, n := range s.Events {
		if n == name {
			s.Events = append(s.Events[:i], s.Events[i+1:]...)
			return true
		}
	}
	return false
}

// AddFilter appends f to Filters. Filter names should be unique but
// duplicates are tolerated.
func (s *Stream) AddFilter(f filterevent.Filter) {
	s.Filters = append(s.Filters, f)
}

// RemoveFilter removes the first filter named name. Reports whether
// anything was removed.
func (s *Stream) RemoveFilter(name string) bool {
	for i, f := range s.Filters {
		if f.Name == name {
			s.Filters = append(s.Filters[:i], s.Filters[i+1:]...)
			return true
		}
	}
	return false
}

// SwapSnapshots discards Prev, promotes Curr to Prev, and installs a
// fresh empty Curr: the end-of-snapshot transition a stream goes
// through once its Reader has reported every row in the new
// snapshot.
func (s *Stream) SwapSnapshots() {
	s.Prev = s.Curr
	s.Curr = make(map[fingerprint.Key]Entry)
}
