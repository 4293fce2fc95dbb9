package manager

import (
	"testing"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/filterevent"
	"github.com/c360/inputcore/hostval"
	"github.com/c360/inputcore/internal/testhost"
	"github.com/c360/inputcore/internal/testreader"
	"github.com/c360/inputcore/reader"
	"github.com/c360/inputcore/schema"
	"github.com/stretchr/testify/require"
)

const kindMem reader.Kind = "mem"

func addrIdxType() schema.RecordType {
	return testhost.Record{FieldsValue: []schema.Field{testhost.Leaf("host", cell.KindAddr)}}
}

func countValType() schema.RecordType {
	return testhost.Record{FieldsValue: []schema.Field{testhost.Leaf("count", cell.KindCount)}}
}

func newRegistry(t *testing.T, factory reader.Factory) *reader.Registry {
	t.Helper()
	r := reader.NewRegistry()
	require.NoError(t, r.Register(&reader.Entry{Kind: kindMem, Name: "in-memory", Factory: factory}))
	return r
}

func TestCreateReader_RegistersStreamAndRunsFirstSnapshot(t *testing.T) {
	addr := cell.Addr{10, 0, 0, 1}
	row := []cell.Cell{cell.NewAddr(addr), cell.NewCount(1)}

	registry := newRegistry(t, testreader.NewSeeded("mem:s1", [][]cell.Cell{row}))
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher("ev")
	m := New(registry, store, disp, nil, nil)

	err := m.CreateReader("s1", ReaderDescription{
		Reader:      kindMem,
		Source:      "mem:s1",
		Idx:         addrIdxType(),
		Val:         countValType(),
		Destination: dst,
		WantRecord:  false,
	})
	require.NoError(t, err)

	key, err := dst.HashIndex(addr)
	require.NoError(t, err)
	v, ok := dst.Lookup(key)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
}

func TestCreateReader_DuplicateLiveIDRejected(t *testing.T) {
	registry := newRegistry(t, testreader.NewSeeded("mem:s1"))
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher()
	m := New(registry, store, disp, nil, nil)

	desc := ReaderDescription{Reader: kindMem, Source: "mem:s1", Idx: addrIdxType(), Val: countValType(), Destination: dst}
	require.NoError(t, m.CreateReader("s1", desc))
	require.Error(t, m.CreateReader("s1", desc))
}

func TestCreateReader_UnknownKindFails(t *testing.T) {
	registry := reader.NewRegistry()
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher()
	m := New(registry, store, disp, nil, nil)

	err := m.CreateReader("s1", ReaderDescription{Reader: "nope", Idx: addrIdxType(), Val: countValType(), Destination: dst})
	require.Error(t, err)
}

func TestCreateReader_FailedInitRemovesPartialStream(t *testing.T) {
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher()

	// FailNextInit must be armed on the Reader instance before
	// manager.CreateReader's own call to Init runs, but that instance
	// doesn't exist until the Factory is called from inside CreateReader
	// itself — so the arming happens in the Factory closure, right after
	// construction and before the Factory returns.
	var rd *testreader.Reader
	calls := 0
	registry := reader.NewRegistry()
	require.NoError(t, registry.Register(&reader.Entry{
		Kind: kindMem,
		Name: "in-memory",
		Factory: func(id string, cb reader.Callback) (reader.Reader, error) {
			r, err := testreader.NewCaptured("mem:s1", &rd)(id, cb)
			if err != nil {
				return nil, err
			}
			calls++
			if calls == 1 {
				rd.FailNextInit()
			}
			return r, nil
		},
	}))
	m := New(registry, store, disp, nil, nil)

	err := m.CreateReader("s1", ReaderDescription{Reader: kindMem, Source: "mem:s1", Idx: addrIdxType(), Val: countValType(), Destination: dst})
	require.Error(t, err)
	require.True(t, rd.Finished())

	// The stream must not be live: a second CreateReader for the same id
	// must succeed, not be rejected as a duplicate.
	require.NoError(t, m.CreateReader("s1", ReaderDescription{Reader: kindMem, Source: "mem:s1", Idx: addrIdxType(), Val: countValType(), Destination: dst}))
}

func TestRemoveReader_IdempotentAgainstUnknownID(t *testing.T) {
	registry := newRegistry(t, testreader.NewSeeded("mem:s1"))
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher()
	m := New(registry, store, disp, nil, nil)

	require.False(t, m.RemoveReader("nope"))

	require.NoError(t, m.CreateReader("s1", ReaderDescription{Reader: kindMem, Source: "mem:s1", Idx: addrIdxType(), Val: countValType(), Destination: dst}))
	require.True(t, m.RemoveReader("s1"))
	require.False(t, m.RemoveReader("s1"))
}

func TestForceUpdate_DrivesSubsequentSnapshot(t *testing.T) {
	var rd *testreader.Reader
	registry := newRegistry(t, testreader.NewCaptured("mem:s1", &rd))
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher("ev")
	m := New(registry, store, disp, nil, nil)

	require.NoError(t, m.CreateReader("s1", ReaderDescription{Reader: kindMem, Source: "mem:s1", Idx: addrIdxType(), Val: countValType(), Destination: dst}))
	require.True(t, m.RegisterEvent("s1", "ev"))

	addr := cell.Addr{10, 0, 0, 1}
	row := []cell.Cell{cell.NewAddr(addr), cell.NewCount(1)}
	rd.QueueSnapshot([][]cell.Cell{row})

	require.True(t, m.ForceUpdate("s1"))

	key, err := dst.HashIndex(addr)
	require.NoError(t, err)
	_, ok := dst.Lookup(key)
	require.True(t, ok)

	require.False(t, m.ForceUpdate("nope"))
}

func TestAddFilter_RejectsNilPredicate(t *testing.T) {
	registry := newRegistry(t, testreader.NewSeeded("mem:s1"))
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher()
	m := New(registry, store, disp, nil, nil)
	require.NoError(t, m.CreateReader("s1", ReaderDescription{Reader: kindMem, Source: "mem:s1", Idx: addrIdxType(), Val: countValType(), Destination: dst}))

	err := m.AddFilter("s1", filterevent.Filter{Name: "no-op"})
	require.Error(t, err)

	err = m.AddFilter("s1", filterevent.Filter{
		Name:      "veto-all",
		Predicate: func(hostval.EventTag, hostval.Value, hostval.Value) bool { return false },
	})
	require.NoError(t, err)
}

func TestPutDeleteClear(t *testing.T) {
	registry := newRegistry(t, testreader.NewSeeded("mem:s1"))
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher()
	m := New(registry, store, disp, nil, nil)
	require.NoError(t, m.CreateReader("s1", ReaderDescription{Reader: kindMem, Source: "mem:s1", Idx: addrIdxType(), Val: countValType(), Destination: dst}))

	addr := cell.Addr{192, 168, 0, 1}
	row := []cell.Cell{cell.NewAddr(addr), cell.NewCount(5)}
	require.NoError(t, m.Put("s1", row))

	key, err := dst.HashIndex(addr)
	require.NoError(t, err)
	v, ok := dst.Lookup(key)
	require.True(t, ok)
	require.Equal(t, uint64(5), v)

	removed, err := m.Delete("s1", row)
	require.NoError(t, err)
	require.True(t, removed)
	_, ok = dst.Lookup(key)
	require.False(t, ok)

	require.NoError(t, m.Put("s1", row))
	require.NoError(t, m.Clear("s1"))
	require.Equal(t, 0, dst.Len())
}

// recordingMetrics is a hand-rolled Metrics fake, in the style of
// internal/testhost's other fakes, used to assert the manager drives
// outcome-specific counters rather than a generic "something happened"
// signal.
type recordingMetrics struct {
	newCount, changedCount, removedCount    int
	vetoedNew, vetoedChanged, vetoedRemoved int
	liveStreams                             int
}

func (rm *recordingMetrics) ObserveNew(string)     { rm.newCount++ }
func (rm *recordingMetrics) ObserveChanged(string) { rm.changedCount++ }
func (rm *recordingMetrics) ObserveRemoved(string) { rm.removedCount++ }
func (rm *recordingMetrics) ObserveVetoed(_ string, tag hostval.EventTag) {
	switch tag {
	case hostval.EventNew:
		rm.vetoedNew++
	case hostval.EventChanged:
		rm.vetoedChanged++
	case hostval.EventRemoved:
		rm.vetoedRemoved++
	}
}
func (rm *recordingMetrics) SetLiveStreams(n int) { rm.liveStreams = n }

func TestMetrics_ObservesEachOutcome(t *testing.T) {
	var rd *testreader.Reader
	registry := newRegistry(t, testreader.NewCaptured("mem:s1", &rd))
	store := testhost.NewStore()
	dst := testhost.NewTable()
	disp := testhost.NewDispatcher()
	rm := &recordingMetrics{}
	m := New(registry, store, disp, nil, rm)

	require.NoError(t, m.CreateReader("s1", ReaderDescription{Reader: kindMem, Source: "mem:s1", Idx: addrIdxType(), Val: countValType(), Destination: dst}))
	require.Equal(t, 1, rm.liveStreams)

	addrA := cell.Addr{10, 0, 0, 1}
	rowA1 := []cell.Cell{cell.NewAddr(addrA), cell.NewCount(1)}
	rowA2 := []cell.Cell{cell.NewAddr(addrA), cell.NewCount(2)}

	rd.QueueSnapshot([][]cell.Cell{rowA1})
	require.True(t, m.ForceUpdate("s1"))
	require.Equal(t, 1, rm.newCount)

	rd.QueueSnapshot([][]cell.Cell{rowA2})
	require.True(t, m.ForceUpdate("s1"))
	require.Equal(t, 1, rm.changedCount)

	var vetoTag hostval.EventTag
	require.NoError(t, m.AddFilter("s1", filterevent.Filter{
		Name: "veto-a",
		Predicate: func(tag hostval.EventTag, _, _ hostval.Value) bool {
			vetoTag = tag
			return false
		},
	}))

	rowA3 := []cell.Cell{cell.NewAddr(addrA), cell.NewCount(3)}
	rd.QueueSnapshot([][]cell.Cell{rowA3})
	require.True(t, m.ForceUpdate("s1"))
	require.Equal(t, hostval.EventChanged, vetoTag)
	require.Equal(t, 1, rm.vetoedChanged)
	require.Equal(t, 1, rm.changedCount) // unchanged from before: the vetoed change doesn't count as Changed

	rd.QueueSnapshot(nil)
	require.True(t, m.ForceUpdate("s1"))
	require.Equal(t, hostval.EventRemoved, vetoTag)
	require.Equal(t, 1, rm.vetoedRemoved)
	require.Equal(t, 0, rm.removedCount) // the veto kept addrA alive instead of removing it

	require.True(t, m.RemoveFilter("s1", "veto-a"))
	rd.QueueSnapshot(nil)
	require.True(t, m.ForceUpdate("s1"))
	require.Equal(t, 1, rm.removedCount)

	require.True(t, m.RemoveReader("s1"))
	require.Equal(t, 0, rm.liveStreams)
}
