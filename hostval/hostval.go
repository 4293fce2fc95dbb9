// Package hostval defines the seam between the input manager core and
// the host scripting runtime's dynamic value system, event registry and
// destination tables: the host's value system and event dispatcher are
// external collaborators referenced only through the interfaces here,
// never a concrete host value type. The manager only ever holds Value,
// an opaque handle a Store produced and that a Table or Dispatcher
// consumes.
//
// Ownership: constructing a Value transfers ownership to whoever holds
// it next (a Table slot, an event/predicate argument list).
// Store.Retain is called exactly once per predicate call for each of
// its index and value arguments, mirroring the host's reference
// counting; the holder is responsible for eventually releasing it,
// which is the host runtime's concern, not this package's. Event
// dispatch does not call Store.Retain.
package hostval

import (
	"errors"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/schema"
)

// ErrUnknownEvent is returned by Dispatcher.Dispatch when name has no
// registered handler. It is reported then skipped, never fatal to the
// snapshot.
var ErrUnknownEvent = errors.New("unknown event name")

// Value is an opaque handle to a host-runtime value. The manager never
// inspects it directly; it only passes Values between a Store, a Table,
// and predicate/event calls.
type Value any

// IdxKey is an opaque, comparable key a Table derives from an index
// Value via HashIndex. It is what stream.Entry stores so a removed row
// can be recovered from (and deleted out of) the destination table
// without holding a reference to the index Value itself.
type IdxKey any

// Store constructs host values from Cells. It is the codec's only
// dependency on the host runtime, backing the
// CellToHostValue/RowToRecord/RowToIndex family of conversions.
type Store interface {
	NewBool(v bool) Value
	NewInt(v int64) Value
	NewCount(v uint64) Value
	NewCounter(v uint64) Value
	NewPort(v uint64) Value
	NewDouble(v float64) Value
	NewTime(v float64) Value
	NewInterval(v float64) Value
	NewString(v string) Value
	NewEnum(v string) (Value, error)
	NewAddr(v cell.Addr) Value
	NewSubnet(v cell.Subnet) Value

	// NewSet and NewVector build a container Value over already
	// converted elements of a uniform elemKind.
	NewSet(elemKind cell.Kind, elems []Value) (Value, error)
	NewVector(elemKind cell.Kind, elems []Value) (Value, error)

	// NewRecord builds a record Value of rt from its already-converted
	// field values, in rt's own (pre-flattening) declaration order.
	NewRecord(rt schema.RecordType, fields []Value) (Value, error)

	// NewIndexList builds the composite index Value RowToIndex produces
	// when a stream's index has more than one top-level field: an
	// ordered list standing in for the host's multi-column table index,
	// distinct from NewRecord because it is never looked up by field
	// name.
	NewIndexList(values []Value) (Value, error)

	// Retain registers an additional holder of v, mirroring the host's
	// reference counting. Called once per predicate call; the recipient
	// releases it, not this package. Event dispatch does not call it.
	Retain(v Value)
}

// Table is the destination table the manager keeps in sync with a
// stream's current snapshot.
type Table interface {
	// HashIndex computes the table's own key for an index Value. This
	// is the idx_key a stream.Entry stores so a row can later be
	// recovered and deleted without re-converting Cells.
	HashIndex(idx Value) (IdxKey, error)

	// Assign stores idx/val under key, overwriting any existing entry.
	Assign(key IdxKey, idx, val Value) error

	// Lookup returns the value currently stored under key, if any.
	Lookup(key IdxKey) (Value, bool)

	// RecoverIndex returns the index Value that was originally hashed
	// to key, for rebuilding event payloads and filter arguments when
	// only the key survived into this snapshot's dictionaries.
	RecoverIndex(key IdxKey) (Value, bool)

	// Delete removes the entry stored under key. Reports whether a row
	// was actually removed.
	Delete(key IdxKey) bool

	// Clear empties the table.
	Clear()
}

// EventTag names which of the three event kinds a filter or dispatch is
// firing for.
type EventTag int

const (
	// EventNew fires when a row was not present in the previous snapshot.
	EventNew EventTag = iota
	// EventChanged fires when a row's value fingerprint changed.
	EventChanged
	// EventRemoved fires when a row present in the previous snapshot did
	// not reappear in the current one.
	EventRemoved
)

func (t EventTag) String() string {
	switch t {
	case EventNew:
		return "New"
	case EventChanged:
		return "Changed"
	case EventRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

// Predicate is a host filter function: false vetoes the pending change.
// Predicates are trusted: any panic they raise propagates to the
// caller of the manager operation that triggered it, uncaught.
type Predicate func(tag EventTag, index, value Value) bool

// Dispatcher is the host's global event manager.
type Dispatcher interface {
	// Dispatch fans an event out to a registered handler name. It
	// returns ErrUnknownEvent if name is not registered; the caller
	// reports and skips, and the snapshot proceeds.
	Dispatch(name string, tag EventTag, index, value Value) error
}
