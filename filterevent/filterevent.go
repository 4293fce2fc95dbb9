// Package filterevent implements the predicate veto pipeline and event
// fan-out the snapshot-diff engine runs for every pending change.
package filterevent

import (
	"github.com/c360/inputcore/hostval"
)

// Filter is a named predicate filter, evaluated in registration order.
// A Filter with a nil Predicate is tolerated at runtime and simply
// skipped, but manager.AddFilter rejects registering one in the first
// place, so a nil Predicate should only ever reach here via a filter
// built by hand outside the manager.
type Filter struct {
	Name      string
	Predicate hostval.Predicate
}

// Run evaluates filters in order against (tag, index, value) and
// reports whether the change survives (true) or was vetoed by some
// filter returning false (false). Before each predicate call it
// retains index and value once via store, since the predicate
// consumes its arguments and the reference count has to reflect that.
// Evaluation stops at the first veto; later filters are not consulted.
func Run(store hostval.Store, filters []Filter, tag hostval.EventTag, index, value hostval.Value) bool {
	for _, f := range filters {
		if f.Predicate == nil {
			continue
		}
		store.Retain(index)
		store.Retain(value)
		if !f.Predicate(tag, index, value) {
			return false
		}
	}
	return true
}

// FailedDispatch records one event name that Dispatch could not
// deliver because it has no registered handler.
type FailedDispatch struct {
	Name string
	Err  error
}

// Dispatch fans (tag, index, value) out to every name in names, in
// order, via d. An unknown name is recorded in the returned slice
// rather than aborting the rest of the fan-out: reported, then
// skipped, and the snapshot proceeds. Every other dispatch error is
// also collected rather than stopping the fan-out, since event
// delivery is fire-and-forget.
func Dispatch(d hostval.Dispatcher, names []string, tag hostval.EventTag, index, value hostval.Value) []FailedDispatch {
	var failed []FailedDispatch
	for _, name := range names {
		if err := d.Dispatch(name, tag, index, value); err != nil {
			failed = append(failed, FailedDispatch{Name: name, Err: err})
		}
	}
	return failed
}
