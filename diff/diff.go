// Package diff implements the snapshot-diff engine: SendEntry and
// EndCurrentSend, which turn a Reader's stream of rows into
// Added/Changed/Removed deltas against a stream's previous snapshot.
package diff

import (
	"fmt"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/codec"
	"github.com/c360/inputcore/errors"
	"github.com/c360/inputcore/filterevent"
	"github.com/c360/inputcore/fingerprint"
	"github.com/c360/inputcore/hostval"
	"github.com/c360/inputcore/stream"
)

// Outcome classifies what SendEntry actually did with a row, so a
// caller like manager can drive per-outcome metrics without re-deriving
// them from the diff engine's internal fingerprint bookkeeping.
// EndCurrentSend reports its removal walk as a RemovalSummary instead.
type Outcome int

const (
	// OutcomeUnchanged means the row's value fingerprint matched its
	// previous snapshot; nothing was touched.
	OutcomeUnchanged Outcome = iota
	// OutcomeNew means the row was absent from the previous snapshot and
	// survived the filter pipeline.
	OutcomeNew
	// OutcomeChanged means the row's value changed and survived the
	// filter pipeline.
	OutcomeChanged
	// OutcomeVetoedNew means a New row was vetoed by a filter.
	OutcomeVetoedNew
	// OutcomeVetoedChanged means a Changed row was vetoed by a filter,
	// leaving the row's old state in place.
	OutcomeVetoedChanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "Unchanged"
	case OutcomeNew:
		return "New"
	case OutcomeChanged:
		return "Changed"
	case OutcomeVetoedNew:
		return "VetoedNew"
	case OutcomeVetoedChanged:
		return "VetoedChanged"
	default:
		return "Unknown"
	}
}

// SendEntry processes one row a Reader emitted during the current
// snapshot against s, applying the filter pipeline and, if the change
// survives, mutating s.Dst and s.Curr. It returns the Outcome the row
// landed on, any event names that failed to dispatch (reported, not
// fatal), and a hard error for invariant violations that are fatal to
// the operation (row length mismatch, a changed row missing from the
// destination table, cursor mismatches in the codec walk).
func SendEntry(store hostval.Store, dispatcher hostval.Dispatcher, s *stream.Stream, row []cell.Cell) (Outcome, []filterevent.FailedDispatch, error) {
	if len(row) != s.IdxCount+s.ValCount {
		return OutcomeUnchanged, nil, errors.WrapFatal(
			fmt.Errorf("row has %d cells, stream %q expects %d (%d idx + %d val)",
				len(row), s.ID, s.IdxCount+s.ValCount, s.IdxCount, s.ValCount),
			"diff", "SendEntry", "row length invariant",
		)
	}

	idxCells := row[:s.IdxCount]
	valCells := row[s.IdxCount:]

	idxFp := fingerprint.Fingerprint(idxCells)
	valFp := fingerprint.Fingerprint(valCells)

	prevEntry, found := s.Prev[idxFp]
	if found && prevEntry.ValFingerprint == valFp {
		// Unchanged: move straight through to curr.
		delete(s.Prev, idxFp)
		s.Curr[idxFp] = prevEntry
		return OutcomeUnchanged, nil, nil
	}

	tag := hostval.EventNew
	var oldValue hostval.Value
	if found {
		tag = hostval.EventChanged
		delete(s.Prev, idxFp)
		v, ok := s.Dst.Lookup(prevEntry.IdxKey)
		if !ok {
			return OutcomeUnchanged, nil, errors.WrapFatal(
				fmt.Errorf("changed row for stream %q has no prior value in destination table", s.ID),
				"diff", "SendEntry", "changed-row invariant",
			)
		}
		oldValue = v
	}

	indexValue, err := codec.RowToIndex(store, idxCells, s.IdxCount, s.IdxType)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	newValue, err := BuildValue(store, s, row, valCells)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	if !filterevent.Run(store, s.Filters, tag, indexValue, newValue) {
		vetoed := OutcomeVetoedNew
		if tag == hostval.EventChanged {
			// Re-insert the entry removed above unchanged, keeping old state.
			s.Curr[idxFp] = prevEntry
			vetoed = OutcomeVetoedChanged
		}
		// On new, there is nothing pending to drop: dst/curr were never touched.
		return vetoed, nil, nil
	}

	idxKey, err := s.Dst.HashIndex(indexValue)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}
	if err := s.Dst.Assign(idxKey, indexValue, newValue); err != nil {
		return OutcomeUnchanged, nil, err
	}
	s.Curr[idxFp] = stream.Entry{IdxKey: idxKey, ValFingerprint: valFp}

	dispatchValue := newValue
	outcome := OutcomeNew
	if tag == hostval.EventChanged {
		dispatchValue = oldValue
		outcome = OutcomeChanged
	}

	var failed []filterevent.FailedDispatch
	if len(s.Events) > 0 {
		failed = filterevent.Dispatch(dispatcher, s.Events, tag, indexValue, dispatchValue)
	}
	return outcome, failed, nil
}

// BuildValue assembles the value half of a row per the want_record
// rule: a bare single Cell when val_count == 1 and the stream doesn't
// want a record, otherwise a record walk over the full row starting at
// the index/value boundary.
func BuildValue(store hostval.Store, s *stream.Stream, row []cell.Cell, valCells []cell.Cell) (hostval.Value, error) {
	if s.ValCount == 1 && !s.WantRecord {
		return codec.CellToHostValue(store, valCells[0], nil)
	}

	v, pos, err := codec.RowToRecord(store, row, s.ValType, s.IdxCount)
	if err != nil {
		return nil, err
	}
	if pos != len(row) {
		return nil, errors.WrapFatal(
			fmt.Errorf("value walk for stream %q consumed %d cells, expected %d", s.ID, pos-s.IdxCount, s.ValCount),
			"diff", "BuildValue", "cursor agreement",
		)
	}
	return v, nil
}

// RemovalSummary counts how EndCurrentSend disposed of the rows left
// over in s.Prev at the end of a snapshot.
type RemovalSummary struct {
	Removed int
	Vetoed  int
}

// EndCurrentSend finalizes the current snapshot: every row still in
// s.Prev did not reappear in this snapshot and is a removal candidate.
// Filters run with tag Removed and may veto, keeping the row alive
// into the next snapshot's prev. Survivors are deleted from s.Dst and
// fan out Removed events. Finally s.Prev is discarded, s.Curr is
// promoted to s.Prev, and a fresh empty Curr replaces it.
//
// The walk collects s.Prev's keys before mutating anything — a
// two-pass "collect then act" in place of an iterator that would have
// to tolerate the dictionary changing under it.
func EndCurrentSend(store hostval.Store, dispatcher hostval.Dispatcher, s *stream.Stream) (RemovalSummary, []filterevent.FailedDispatch, error) {
	keys := make([]fingerprint.Key, 0, len(s.Prev))
	for k := range s.Prev {
		keys = append(keys, k)
	}

	var summary RemovalSummary
	var allFailed []filterevent.FailedDispatch

	for _, k := range keys {
		entry := s.Prev[k]

		needLookup := len(s.Events) > 0 || len(s.Filters) > 0
		var index, value hostval.Value
		if needLookup {
			idx, ok := s.Dst.RecoverIndex(entry.IdxKey)
			if !ok {
				return summary, allFailed, errors.WrapFatal(
					fmt.Errorf("stream %q: idx_key not recoverable from destination table on removal", s.ID),
					"diff", "EndCurrentSend", "index recovery invariant",
				)
			}
			val, ok := s.Dst.Lookup(entry.IdxKey)
			if !ok {
				return summary, allFailed, errors.WrapFatal(
					fmt.Errorf("stream %q: value not found in destination table on removal", s.ID),
					"diff", "EndCurrentSend", "value lookup invariant",
				)
			}
			index, value = idx, val
		}

		if !filterevent.Run(store, s.Filters, hostval.EventRemoved, index, value) {
			s.Curr[k] = entry
			summary.Vetoed++
			continue
		}

		s.Dst.Delete(entry.IdxKey)
		summary.Removed++

		if len(s.Events) > 0 {
			failed := filterevent.Dispatch(dispatcher, s.Events, hostval.EventRemoved, index, value)
			allFailed = append(allFailed, failed...)
		}
	}

	s.SwapSnapshots()
	return summary, allFailed, nil
}
