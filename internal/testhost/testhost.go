// Package testhost is a hand-rolled fake of the host runtime's value
// store, destination table and event dispatcher, built only for tests
// and the demo command — the production seam is hostval.Store /
// hostval.Table / hostval.Dispatcher, satisfied here the same way
// component/test_helpers.go hand-rolls a SimpleMockComponent instead of
// pulling in a mocking framework for a structurally simple fake.
package testhost

import (
	"fmt"
	"reflect"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/hostval"
	"github.com/c360/inputcore/schema"
)

// SetValue is the concrete Value a Store produces for a Cell of
// cell.KindSet.
type SetValue struct {
	ElemKind cell.Kind
	Elems    []hostval.Value
}

// VectorValue is the concrete Value a Store produces for a Cell of
// cell.KindVector.
type VectorValue struct {
	ElemKind cell.Kind
	Elems    []hostval.Value
}

// RecordValue is the concrete Value a Store produces for a record.
type RecordValue struct {
	Type   schema.RecordType
	Fields []hostval.Value
}

// IndexListValue is the concrete Value a Store produces for a
// multi-field table index.
type IndexListValue struct {
	Values []hostval.Value
}

// Store is an in-process hostval.Store backed by plain Go values.
type Store struct {
	refs map[any]int
}

// NewStore returns a ready-to-use Store.
func NewStore() *Store { return &Store{refs: make(map[any]int)} }

func (s *Store) NewBool(v bool) hostval.Value          { return v }
func (s *Store) NewInt(v int64) hostval.Value          { return v }
func (s *Store) NewCount(v uint64) hostval.Value       { return v }
func (s *Store) NewCounter(v uint64) hostval.Value     { return v }
func (s *Store) NewPort(v uint64) hostval.Value        { return v }
func (s *Store) NewDouble(v float64) hostval.Value     { return v }
func (s *Store) NewTime(v float64) hostval.Value       { return v }
func (s *Store) NewInterval(v float64) hostval.Value   { return v }
func (s *Store) NewString(v string) hostval.Value      { return v }
func (s *Store) NewAddr(v cell.Addr) hostval.Value     { return v }
func (s *Store) NewSubnet(v cell.Subnet) hostval.Value { return v }

func (s *Store) NewEnum(v string) (hostval.Value, error) {
	return v, nil
}

func (s *Store) NewSet(elemKind cell.Kind, elems []hostval.Value) (hostval.Value, error) {
	return SetValue{ElemKind: elemKind, Elems: elems}, nil
}

func (s *Store) NewVector(elemKind cell.Kind, elems []hostval.Value) (hostval.Value, error) {
	return VectorValue{ElemKind: elemKind, Elems: elems}, nil
}

func (s *Store) NewRecord(rt schema.RecordType, fields []hostval.Value) (hostval.Value, error) {
	return RecordValue{Type: rt, Fields: fields}, nil
}

func (s *Store) NewIndexList(values []hostval.Value) (hostval.Value, error) {
	return IndexListValue{Values: values}, nil
}

// CellFromValue inverts CellToHostValue: given a Value this Store
// produced and the Kind it was produced for, it rebuilds the Cell that
// value came from. It exists only so tests can assert a value codec
// round trip without the production code ever needing the reverse
// direction itself.
func (s *Store) CellFromValue(v hostval.Value, kind cell.Kind) (cell.Cell, error) {
	switch kind {
	case cell.KindBool:
		b, ok := v.(bool)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want bool, got %T", v)
		}
		return cell.NewBool(b), nil
	case cell.KindInt:
		n, ok := v.(int64)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want int64, got %T", v)
		}
		return cell.NewInt(n), nil
	case cell.KindCount:
		n, ok := v.(uint64)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want uint64, got %T", v)
		}
		return cell.NewCount(n), nil
	case cell.KindCounter:
		n, ok := v.(uint64)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want uint64, got %T", v)
		}
		return cell.NewCounter(n), nil
	case cell.KindPort:
		n, ok := v.(uint64)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want uint64, got %T", v)
		}
		return cell.NewPort(n), nil
	case cell.KindDouble:
		f, ok := v.(float64)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want float64, got %T", v)
		}
		return cell.NewDouble(f), nil
	case cell.KindTime:
		f, ok := v.(float64)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want float64, got %T", v)
		}
		return cell.NewTime(f), nil
	case cell.KindInterval:
		f, ok := v.(float64)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want float64, got %T", v)
		}
		return cell.NewInterval(f), nil
	case cell.KindString:
		str, ok := v.(string)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want string, got %T", v)
		}
		return cell.NewString(str), nil
	case cell.KindEnum:
		str, ok := v.(string)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want string, got %T", v)
		}
		return cell.NewEnum(str), nil
	case cell.KindAddr:
		a, ok := v.(cell.Addr)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want cell.Addr, got %T", v)
		}
		return cell.NewAddr(a), nil
	case cell.KindSubnet:
		sn, ok := v.(cell.Subnet)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want cell.Subnet, got %T", v)
		}
		return cell.NewSubnet(sn), nil
	case cell.KindSet:
		sv, ok := v.(SetValue)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want SetValue, got %T", v)
		}
		elems, err := s.cellsFromElements(sv.ElemKind, sv.Elems)
		if err != nil {
			return cell.Cell{}, err
		}
		return cell.NewSet(sv.ElemKind, elems), nil
	case cell.KindVector:
		vv, ok := v.(VectorValue)
		if !ok {
			return cell.Cell{}, fmt.Errorf("CellFromValue: want VectorValue, got %T", v)
		}
		elems, err := s.cellsFromElements(vv.ElemKind, vv.Elems)
		if err != nil {
			return cell.Cell{}, err
		}
		return cell.NewVector(vv.ElemKind, elems), nil
	default:
		return cell.Cell{}, fmt.Errorf("CellFromValue: unhandled kind %s", kind)
	}
}

func (s *Store) cellsFromElements(elemKind cell.Kind, values []hostval.Value) ([]cell.Cell, error) {
	out := make([]cell.Cell, len(values))
	for i, v := range values {
		c, err := s.CellFromValue(v, elemKind)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Retain increments a per-value reference count, purely for tests that
// want to assert the manager retained a value the expected number of
// times. It never releases anything; a real host does that.
func (s *Store) Retain(v hostval.Value) {
	s.refs[normalizeKey(v)]++
}

// RefCount reports how many times v was retained.
func (s *Store) RefCount(v hostval.Value) int {
	return s.refs[normalizeKey(v)]
}

func normalizeKey(v hostval.Value) any {
	return fmt.Sprintf("%#v", v)
}

// Table is an in-process hostval.Table backed by one map keyed by a
// string hash of the index Value; each entry holds both the index and
// the value.
type Table struct {
	entries map[hostval.IdxKey]tableEntry
}

type tableEntry struct {
	idx hostval.Value
	val hostval.Value
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[hostval.IdxKey]tableEntry)}
}

func (t *Table) HashIndex(idx hostval.Value) (hostval.IdxKey, error) {
	return hostval.IdxKey(fmt.Sprintf("%#v", idx)), nil
}

func (t *Table) Assign(key hostval.IdxKey, idx, val hostval.Value) error {
	t.entries[key] = tableEntry{idx: idx, val: val}
	return nil
}

func (t *Table) Lookup(key hostval.IdxKey) (hostval.Value, bool) {
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return e.val, true
}

func (t *Table) RecoverIndex(key hostval.IdxKey) (hostval.Value, bool) {
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return e.idx, true
}

func (t *Table) Delete(key hostval.IdxKey) bool {
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

func (t *Table) Clear() {
	t.entries = make(map[hostval.IdxKey]tableEntry)
}

// Len reports how many rows are currently stored, for test assertions.
func (t *Table) Len() int { return len(t.entries) }

// Keys returns a snapshot of the currently stored keys, for test
// assertions that don't want to depend on map iteration order directly.
func (t *Table) Keys() []hostval.IdxKey {
	out := make([]hostval.IdxKey, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	return out
}

// Equal reports whether two host values are deeply equal, the
// comparison tests use in place of a real host runtime's own value
// equality.
func Equal(a, b hostval.Value) bool {
	return reflect.DeepEqual(a, b)
}

// Dispatcher is an in-process hostval.Dispatcher that records every
// dispatched event instead of delivering it anywhere, so tests can
// assert on fan-out order and payloads.
type Dispatcher struct {
	registered map[string]bool
	Events     []DispatchedEvent
}

// DispatchedEvent is one recorded call to Dispatcher.Dispatch.
type DispatchedEvent struct {
	Name  string
	Tag   hostval.EventTag
	Index hostval.Value
	Value hostval.Value
}

// NewDispatcher returns a Dispatcher that accepts dispatches only for
// the given registered event names, mirroring a host event registry.
func NewDispatcher(registered ...string) *Dispatcher {
	d := &Dispatcher{registered: make(map[string]bool)}
	for _, name := range registered {
		d.registered[name] = true
	}
	return d
}

func (d *Dispatcher) Dispatch(name string, tag hostval.EventTag, index, value hostval.Value) error {
	if !d.registered[name] {
		return hostval.ErrUnknownEvent
	}
	d.Events = append(d.Events, DispatchedEvent{Name: name, Tag: tag, Index: index, Value: value})
	return nil
}

// Record is a minimal schema.RecordType for tests: a named, ordered
// list of fields, standing in for a host record type.
type Record struct {
	Name        string
	FieldsValue []schema.Field
}

// Fields implements schema.RecordType.
func (r Record) Fields() []schema.Field { return r.FieldsValue }

// Leaf builds a non-record schema.Field for an atomic kind.
func Leaf(name string, kind cell.Kind) schema.Field {
	return schema.Field{Name: name, Kind: kind}
}

// ContainerLeaf builds a non-record schema.Field for a Set/Vector kind
// with the given element kind.
func ContainerLeaf(name string, kind, inner cell.Kind) schema.Field {
	return schema.Field{Name: name, Kind: kind, InnerKind: inner}
}

// NestedField builds a schema.Field that recurses into a nested record.
func NestedField(name string, rt schema.RecordType) schema.Field {
	return schema.Field{Name: name, Record: rt}
}
