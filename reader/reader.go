// Package reader defines the Reader interface the manager drives, and
// the static reader registry CreateReader resolves a reader-kind
// enumerator against.
package reader

import (
	"fmt"
	"sync"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/errors"
	"github.com/c360/inputcore/schema"
)

// Reader is the interface a concrete reader implementation (an
// ASCII/CSV reader, say) satisfies; the manager never constructs rows
// itself, only drives this interface.
type Reader interface {
	// Init prepares the reader to read source, given the flattened
	// field schema the stream was registered with: total_fields is
	// idx_fields+val_fields, and fields has exactly that many entries
	// in index-then-value order.
	Init(source string, totalFields, idxFields int, fields []schema.FieldSpec) bool

	// Update requests a new snapshot. While it runs, the reader calls
	// back into the manager's SendEntry/EndCurrentSend; Update itself
	// only reports whether the request was accepted.
	Update() bool

	// Finish releases the reader's resources. Idempotent.
	Finish()

	// Source names what this reader is reading, for error reports.
	Source() string
}

// Callback is the manager-facing surface a Reader reports rows and
// snapshot boundaries through during Update. A Factory receives one
// bound to the stream id it is being constructed for.
type Callback interface {
	SendEntry(id string, row []cell.Cell) error
	EndCurrentSend(id string) error
}

// Kind names a reader implementation in the static registry, e.g.
// "ascii" or "raw". It is the value a ReaderDescription.Reader field
// carries to select which Factory CreateReader resolves.
type Kind string

// Factory constructs a fresh Reader instance bound to one stream id,
// given the Callback it reports through.
type Factory func(id string, cb Callback) (Reader, error)

// Entry is one row of the static reader registry: a kind, a
// human-readable name, an optional one-shot package-level Init, and
// the Factory CreateReader calls per stream.
type Entry struct {
	Kind Kind
	Name string

	// Init runs at most once across the registry's lifetime, the first
	// time this Kind is resolved. A nil Init is treated as already
	// successful. Its result (success or the error) is memoized:
	// subsequent CreateReader calls for this Kind never call it again.
	Init func() error

	Factory Factory

	mu       sync.Mutex
	initDone bool
	initErr  error
}

// Registry is the static table of reader kinds a manager resolves
// CreateReader's description.reader field against: a Go map with an
// explicit Register call, rather than a fixed-size array, so new kinds
// can be registered at init time from anywhere in a binary.
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]*Entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Kind]*Entry)}
}

// Register adds e to the registry. Registering the same Kind twice is
// a programming error and replaces the earlier entry, mirroring how a
// static C array would simply have had its row redefined.
func (r *Registry) Register(e *Entry) error {
	if e == nil || e.Kind == "" || e.Factory == nil {
		return errors.WrapInvalid(
			fmt.Errorf("reader registry entry must have a kind and a factory"),
			"reader", "Register", "entry validation",
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Kind] = e
	return nil
}

// Resolve finds the entry for kind, runs its one-shot Init if it
// hasn't run (or failed) yet, and calls its Factory for id, handing it
// cb. A kind absent from the table fails with "unknown reader kind"; a
// previously failed Init fails every subsequent call without invoking
// Init again.
func (r *Registry) Resolve(kind Kind, id string, cb Callback) (Reader, error) {
	r.mu.RLock()
	e, ok := r.entries[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown reader kind %q", kind),
			"reader", "Resolve", "kind lookup",
		)
	}

	e.mu.Lock()
	if !e.initDone {
		if e.Init != nil {
			e.initErr = e.Init()
		}
		e.initDone = true
	}
	err := e.initErr
	e.mu.Unlock()

	if err != nil {
		return nil, errors.WrapTransient(err, "reader", "Resolve", fmt.Sprintf("init %q", kind))
	}

	rd, err := e.Factory(id, cb)
	if err != nil {
		return nil, errors.WrapTransient(err, "reader", "Resolve", fmt.Sprintf("factory %q", kind))
	}
	return rd, nil
}
