package reader

import (
	"errors"
	"testing"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/schema"
	"github.com/stretchr/testify/require"
)

type fakeReader struct{ source string }

func (f *fakeReader) Init(string, int, int, []schema.FieldSpec) bool { return true }
func (f *fakeReader) Update() bool                                   { return true }
func (f *fakeReader) Finish()                                        {}
func (f *fakeReader) Source() string                                 { return f.source }

type nopCallback struct{}

func (nopCallback) SendEntry(string, []cell.Cell) error { return nil }
func (nopCallback) EndCurrentSend(string) error         { return nil }

func TestRegistry_ResolveUnknownKindFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("nope", "s1", nopCallback{})
	require.Error(t, err)
}

func TestRegistry_ResolveCallsFactory(t *testing.T) {
	r := NewRegistry()
	calls := 0
	require.NoError(t, r.Register(&Entry{
		Kind: "raw",
		Name: "raw reader",
		Factory: func(id string, cb Callback) (Reader, error) {
			calls++
			return &fakeReader{source: "mem:" + id}, nil
		},
	}))

	rd, err := r.Resolve("raw", "s1", nopCallback{})
	require.NoError(t, err)
	require.Equal(t, "mem:s1", rd.Source())
	require.Equal(t, 1, calls)

	_, err = r.Resolve("raw", "s2", nopCallback{})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRegistry_InitRunsOnceAndIsMemoized(t *testing.T) {
	r := NewRegistry()
	initCalls := 0
	require.NoError(t, r.Register(&Entry{
		Kind: "once",
		Name: "once reader",
		Init: func() error {
			initCalls++
			return nil
		},
		Factory: func(id string, cb Callback) (Reader, error) { return &fakeReader{}, nil },
	}))

	_, err := r.Resolve("once", "s1", nopCallback{})
	require.NoError(t, err)
	_, err = r.Resolve("once", "s2", nopCallback{})
	require.NoError(t, err)
	require.Equal(t, 1, initCalls)
}

func TestRegistry_FailedInitMemoizedAsFailure(t *testing.T) {
	r := NewRegistry()
	initCalls := 0
	require.NoError(t, r.Register(&Entry{
		Kind: "broken",
		Name: "broken reader",
		Init: func() error {
			initCalls++
			return errors.New("boom")
		},
		Factory: func(id string, cb Callback) (Reader, error) { return &fakeReader{}, nil },
	}))

	_, err := r.Resolve("broken", "s1", nopCallback{})
	require.Error(t, err)
	_, err = r.Resolve("broken", "s2", nopCallback{})
	require.Error(t, err)
	require.Equal(t, 1, initCalls)
}

func TestRegistry_RegisterRejectsIncompleteEntry(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.Register(&Entry{Kind: "x"}))
	require.Error(t, r.Register(&Entry{Factory: func(string, Callback) (Reader, error) { return nil, nil }}))
}
