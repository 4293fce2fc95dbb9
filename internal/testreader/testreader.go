// Package testreader is an in-memory Reader used by manager tests and
// by cmd/inputcore-demo: a production-shaped Reader that
// plays back pre-programmed snapshots instead of parsing a real
// source. It exists only to drive the manager end to end without a
// real parsing backend.
package testreader

import (
	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/reader"
	"github.com/c360/inputcore/schema"
)

// Reader plays back a queue of snapshots, one per Update call. Each
// snapshot is a slice of rows; Update sends every row in order then
// ends the snapshot. Once the queue is exhausted, Update still
// succeeds but sends an empty snapshot, matching a source that is
// caught up with no new rows.
type Reader struct {
	id     string
	cb     reader.Callback
	source string

	snapshots [][][]cell.Cell
	next      int

	initFields []schema.FieldSpec
	failInit   bool
	failUpdate bool
	finished   bool
}

// New returns a Factory that constructs a Reader bound to id/cb, for
// registration in a reader.Registry.
func New(source string) reader.Factory {
	return func(id string, cb reader.Callback) (reader.Reader, error) {
		return &Reader{id: id, cb: cb, source: source}, nil
	}
}

// NewSeeded is New, except the constructed Reader's snapshot queue is
// pre-loaded with snapshots, in order. Useful when a test needs the
// very first Update a manager.CreateReader call triggers to already
// have rows queued, since that Update runs synchronously inside
// CreateReader before the caller gets any other chance to reach the
// Reader instance.
func NewSeeded(source string, snapshots ...[][]cell.Cell) reader.Factory {
	return func(id string, cb reader.Callback) (reader.Reader, error) {
		return &Reader{id: id, cb: cb, source: source, snapshots: snapshots}, nil
	}
}

// NewCaptured is New, except it stashes the constructed *Reader into
// *out as soon as the Factory runs, for tests that need to call
// QueueSnapshot/FailNextInit/FailNextUpdate on the instance a
// reader.Registry ends up holding — the factory closure is the only
// place that instance is ever created, so capturing it there is the
// only way to reach it from outside this package.
func NewCaptured(source string, out **Reader) reader.Factory {
	return func(id string, cb reader.Callback) (reader.Reader, error) {
		r := &Reader{id: id, cb: cb, source: source}
		*out = r
		return r, nil
	}
}

// QueueSnapshot appends a snapshot of rows to be emitted on a future
// Update call, in FIFO order.
func (r *Reader) QueueSnapshot(rows [][]cell.Cell) {
	r.snapshots = append(r.snapshots, rows)
}

// FailNextInit makes the next Init call report failure, for exercising
// the CreateReader path that handles a Reader's Init returning false.
func (r *Reader) FailNextInit() { r.failInit = true }

// FailNextUpdate makes the next Update call report failure without
// sending any rows, for exercising the first-Update failure path.
func (r *Reader) FailNextUpdate() { r.failUpdate = true }

func (r *Reader) Init(source string, totalFields, idxFields int, fields []schema.FieldSpec) bool {
	if r.failInit {
		r.failInit = false
		return false
	}
	r.initFields = fields
	return true
}

func (r *Reader) Update() bool {
	if r.failUpdate {
		r.failUpdate = false
		return false
	}

	var rows [][]cell.Cell
	if r.next < len(r.snapshots) {
		rows = r.snapshots[r.next]
		r.next++
	}

	for _, row := range rows {
		if err := r.cb.SendEntry(r.id, row); err != nil {
			return false
		}
	}
	if err := r.cb.EndCurrentSend(r.id); err != nil {
		return false
	}
	return true
}

func (r *Reader) Finish() { r.finished = true }

func (r *Reader) Source() string { return r.source }

// Finished reports whether Finish has been called, for test assertions.
func (r *Reader) Finished() bool { return r.finished }
