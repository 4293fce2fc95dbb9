// Package manager is the public facade of the input core: it wires a
// reader registry, a host value store and dispatcher, and a table of
// live streams together behind CreateReader/RemoveReader/ForceUpdate,
// RegisterEvent/UnregisterEvent, AddFilter/RemoveFilter, and
// Put/Delete/Clear, and is itself the reader.Callback a Reader's Update
// call reports rows and snapshot boundaries through.
package manager

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/codec"
	"github.com/c360/inputcore/diff"
	"github.com/c360/inputcore/errors"
	"github.com/c360/inputcore/filterevent"
	"github.com/c360/inputcore/hostval"
	"github.com/c360/inputcore/reader"
	"github.com/c360/inputcore/schema"
	"github.com/c360/inputcore/stream"
)

// ReaderDescription describes one stream to register: a reader kind
// to resolve against the registry, the source string its Reader
// receives, the index/value host record types to unroll into a flat
// schema, the destination table the manager keeps in sync, and
// whether a single value field is wrapped in a one-field record.
type ReaderDescription struct {
	Reader      reader.Kind
	Source      string
	Idx         schema.RecordType
	Val         schema.RecordType
	Destination hostval.Table
	WantRecord  bool
}

// Manager is the public facade. It owns the live stream table and is
// the sole writer of it; every exported method takes its lock for the
// duration of the map access, then releases it before touching a
// Reader or the host runtime, since a Reader's Update may call back
// into SendEntry/EndCurrentSend on the same goroutine: callers are
// expected to be single-threaded and cooperative, never calling into
// the same Manager concurrently.
type Manager struct {
	registry   *reader.Registry
	store      hostval.Store
	dispatcher hostval.Dispatcher
	logger     *Logger
	metrics    Metrics

	mu      sync.Mutex
	streams map[string]*stream.Stream
}

// New builds a Manager around registry, store and dispatcher. A nil
// logger falls back to a slog.Default()-backed Logger; a nil metrics
// falls back to NopMetrics.
func New(registry *reader.Registry, store hostval.Store, dispatcher hostval.Dispatcher, logger *Logger, metrics Metrics) *Manager {
	if logger == nil {
		logger = NewLogger(nil)
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Manager{
		registry:   registry,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		streams:    make(map[string]*stream.Stream),
	}
}

func (m *Manager) lookup(id string) *stream.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streams[id]
}

func (m *Manager) setLiveStreamsLocked() {
	m.metrics.SetLiveStreams(len(m.streams))
}

// CreateReader unrolls idx/val into flat schemas, resolves the reader
// kind, builds and registers the Stream, then runs the Reader's
// Init followed immediately by its first Update. The stream is
// registered in the live table before Init/Update run, since
// SendEntry/EndCurrentSend (called back from inside Update) look
// streams up by id. A live id already registered is rejected rather
// than silently clobbered. Init or first-Update failure removes the
// partially built stream before returning, leaving state as if
// CreateReader had never been called.
func (m *Manager) CreateReader(id string, desc ReaderDescription) error {
	m.mu.Lock()
	if _, live := m.streams[id]; live {
		m.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("stream %q is already registered", id),
			"manager", "CreateReader", "duplicate id",
		)
	}
	m.mu.Unlock()

	idxSchema, err := schema.UnrollRecordType(desc.Idx)
	if err != nil {
		return errors.WrapInvalid(err, "manager", "CreateReader", "unroll idx")
	}
	valSchema, err := schema.UnrollRecordType(desc.Val)
	if err != nil {
		return errors.WrapInvalid(err, "manager", "CreateReader", "unroll val")
	}

	rd, err := m.registry.Resolve(desc.Reader, id, m)
	if err != nil {
		return err
	}

	s := stream.New(id, rd, idxSchema.Len(), valSchema.Len(), desc.Idx, desc.Val, desc.Destination, desc.WantRecord)

	m.mu.Lock()
	m.streams[id] = s
	m.setLiveStreamsLocked()
	m.mu.Unlock()

	fields := make([]schema.FieldSpec, 0, idxSchema.Len()+valSchema.Len())
	fields = append(fields, idxSchema.Fields...)
	fields = append(fields, valSchema.Fields...)

	if !rd.Init(desc.Source, len(fields), idxSchema.Len(), fields) {
		rd.Finish()
		m.removeStream(id)
		err := errors.WrapTransient(
			fmt.Errorf("reader init failed for stream %q", id),
			"manager", "CreateReader", "reader.Init",
		)
		m.logger.LogError("reader init failed", err, "stream", id, "source", desc.Source)
		return err
	}

	gen := generationID()
	if !rd.Update() {
		rd.Finish()
		m.removeStream(id)
		err := errors.WrapTransient(
			fmt.Errorf("reader first update failed for stream %q, source %q", id, rd.Source()),
			"manager", "CreateReader", "reader.Update",
		)
		m.logger.LogError("reader first update failed", err, "stream", id, "source", rd.Source(), "generation", gen)
		return err
	}

	m.logger.Info("stream created", "stream", id, "source", rd.Source(), "generation", gen)
	return nil
}

func (m *Manager) removeStream(id string) {
	m.mu.Lock()
	delete(m.streams, id)
	m.setLiveStreamsLocked()
	m.mu.Unlock()
}

// RemoveReader calls the stream's Reader.Finish, then drops it from
// the live table. Idempotent against an unknown id: returns false
// rather than panicking.
func (m *Manager) RemoveReader(id string) bool {
	m.mu.Lock()
	s, ok := m.streams[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.streams, id)
	m.setLiveStreamsLocked()
	m.mu.Unlock()

	if s.Reader != nil {
		s.Reader.Finish()
	}
	m.logger.Info("stream removed", "stream", id)
	return true
}

// ForceUpdate synchronously asks the stream's Reader for another
// snapshot. Reports false for an unknown id or a
// Reader that reports failure. Every call mints a fresh generation id
// and attaches it to ForceUpdate's own completion/failure log line; the
// SendEntry/EndCurrentSend log lines the Reader's callbacks produce
// during this Update do not carry it.
func (m *Manager) ForceUpdate(id string) bool {
	s := m.lookup(id)
	if s == nil {
		return false
	}
	gen := generationID()
	if !s.Reader.Update() {
		m.logger.Warn("force update failed", "stream", id, "source", s.Reader.Source(), "generation", gen)
		return false
	}
	m.logger.Info("force update completed", "stream", id, "generation", gen)
	return true
}

// RegisterEvent subscribes name to id's stream. Reports false for an
// unknown id.
func (m *Manager) RegisterEvent(id, name string) bool {
	s := m.lookup(id)
	if s == nil {
		return false
	}
	s.RegisterEvent(name)
	return true
}

// UnregisterEvent removes the first subscription of name from id's
// stream. Reports whether anything was removed, false also for an
// unknown id.
func (m *Manager) UnregisterEvent(id, name string) bool {
	s := m.lookup(id)
	if s == nil {
		return false
	}
	return s.UnregisterEvent(name)
}

// AddFilter appends f to id's stream. A nil Predicate is rejected here
// rather than tolerated: this is the registration boundary's own
// answer to "what does a filter without a predicate mean", even though
// filterevent.Run still tolerates one at runtime for a Filter built by
// hand outside the manager.
func (m *Manager) AddFilter(id string, f filterevent.Filter) error {
	if f.Predicate == nil {
		return errors.WrapInvalid(
			fmt.Errorf("filter %q has no predicate", f.Name),
			"manager", "AddFilter", "predicate required",
		)
	}
	s := m.lookup(id)
	if s == nil {
		return errors.WrapInvalid(
			fmt.Errorf("unknown stream %q", id),
			"manager", "AddFilter", "stream lookup",
		)
	}
	s.AddFilter(f)
	return nil
}

// RemoveFilter removes the first filter named name from id's stream.
// Reports whether anything was removed, false also for an unknown id.
func (m *Manager) RemoveFilter(id, name string) bool {
	s := m.lookup(id)
	if s == nil {
		return false
	}
	return s.RemoveFilter(name)
}

// Put writes row directly into id's destination table without diff
// tracking: it neither touches prev/curr nor runs
// filters or dispatches events. The next snapshot's diff is computed
// purely from what the Reader emits, so a Put'd row survives only
// until the next EndCurrentSend decides otherwise.
func (m *Manager) Put(id string, row []cell.Cell) error {
	s := m.lookup(id)
	if s == nil {
		return errors.WrapInvalid(fmt.Errorf("unknown stream %q", id), "manager", "Put", "stream lookup")
	}
	if len(row) != s.IdxCount+s.ValCount {
		return errors.WrapFatal(
			fmt.Errorf("row has %d cells, stream %q expects %d (%d idx + %d val)",
				len(row), id, s.IdxCount+s.ValCount, s.IdxCount, s.ValCount),
			"manager", "Put", "row length invariant",
		)
	}

	idxCells := row[:s.IdxCount]
	valCells := row[s.IdxCount:]

	indexValue, err := codec.RowToIndex(m.store, idxCells, s.IdxCount, s.IdxType)
	if err != nil {
		return err
	}
	value, err := diff.BuildValue(m.store, s, row, valCells)
	if err != nil {
		return err
	}
	idxKey, err := s.Dst.HashIndex(indexValue)
	if err != nil {
		return err
	}
	return s.Dst.Assign(idxKey, indexValue, value)
}

// Delete converts row's index half and removes the matching entry
// from id's destination table, reporting whether anything was removed.
// It does not touch prev/curr.
func (m *Manager) Delete(id string, row []cell.Cell) (bool, error) {
	s := m.lookup(id)
	if s == nil {
		return false, errors.WrapInvalid(fmt.Errorf("unknown stream %q", id), "manager", "Delete", "stream lookup")
	}
	if len(row) < s.IdxCount {
		return false, errors.WrapFatal(
			fmt.Errorf("row has %d cells, stream %q expects at least %d idx cells", len(row), id, s.IdxCount),
			"manager", "Delete", "row length invariant",
		)
	}

	indexValue, err := codec.RowToIndex(m.store, row[:s.IdxCount], s.IdxCount, s.IdxType)
	if err != nil {
		return false, err
	}
	idxKey, err := s.Dst.HashIndex(indexValue)
	if err != nil {
		return false, err
	}
	return s.Dst.Delete(idxKey), nil
}

// Clear empties id's destination table.
func (m *Manager) Clear(id string) error {
	s := m.lookup(id)
	if s == nil {
		return errors.WrapInvalid(fmt.Errorf("unknown stream %q", id), "manager", "Clear", "stream lookup")
	}
	s.Dst.Clear()
	return nil
}

// SendEntry satisfies reader.Callback: it is the per-row half of the
// snapshot-diff engine a Reader calls back into during Update. It
// looks the stream up by id, delegates to diff.SendEntry, records the
// outcome in Metrics, and logs every event name diff.SendEntry failed
// to dispatch together with the Reader's own Source() — reported, not
// fatal.
func (m *Manager) SendEntry(id string, row []cell.Cell) error {
	s := m.lookup(id)
	if s == nil {
		return errors.WrapFatal(fmt.Errorf("unknown stream %q", id), "manager", "SendEntry", "stream lookup")
	}

	outcome, failed, err := diff.SendEntry(m.store, m.dispatcher, s, row)
	if err != nil {
		m.logger.LogError("send entry failed", err, "stream", id, "source", s.Reader.Source())
		return err
	}

	switch outcome {
	case diff.OutcomeNew:
		m.metrics.ObserveNew(id)
	case diff.OutcomeChanged:
		m.metrics.ObserveChanged(id)
	case diff.OutcomeVetoedNew, diff.OutcomeVetoedChanged:
		tag := hostval.EventNew
		if outcome == diff.OutcomeVetoedChanged {
			tag = hostval.EventChanged
		}
		m.metrics.ObserveVetoed(id, tag)
	}

	m.logFailedDispatches(id, s, failed)
	return nil
}

// EndCurrentSend satisfies reader.Callback: it is the end-of-snapshot
// half a Reader calls back into at the close of Update, delegating to
// diff.EndCurrentSend and recording the removal/veto counts in
// Metrics.
func (m *Manager) EndCurrentSend(id string) error {
	s := m.lookup(id)
	if s == nil {
		return errors.WrapFatal(fmt.Errorf("unknown stream %q", id), "manager", "EndCurrentSend", "stream lookup")
	}

	summary, failed, err := diff.EndCurrentSend(m.store, m.dispatcher, s)
	if err != nil {
		m.logger.LogError("end current send failed", err, "stream", id, "source", s.Reader.Source())
		return err
	}

	for i := 0; i < summary.Removed; i++ {
		m.metrics.ObserveRemoved(id)
	}
	for i := 0; i < summary.Vetoed; i++ {
		m.metrics.ObserveVetoed(id, hostval.EventRemoved)
	}

	m.logFailedDispatches(id, s, failed)
	return nil
}

func (m *Manager) logFailedDispatches(id string, s *stream.Stream, failed []filterevent.FailedDispatch) {
	for _, f := range failed {
		m.logger.Warn("event dispatch failed", "stream", id, "source", s.Reader.Source(), "event", f.Name, "error", f.Err)
	}
}

// generationID mints a per-snapshot correlation id for log-tracing.
// CreateReader and ForceUpdate each mint one per Reader.Update call and
// attach it to the log lines they write themselves about that Update.
// The id is not passed to SendEntry/EndCurrentSend, so their log lines
// do not include it.
func generationID() uuid.UUID {
	return uuid.New()
}
