// Package codec marshals the flat Cells a Reader produces into the
// nested host values the destination table and events carry: the
// record-building step between a row of Cells and the host value(s)
// the manager hands off to a Table or Dispatcher.
package codec

import (
	"fmt"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/errors"
	"github.com/c360/inputcore/hostval"
	"github.com/c360/inputcore/schema"
)

// CellToHostValue converts a single Cell into a host Value via store.
// If want is non-nil, c.Kind must equal *want or the conversion fails;
// RowToRecord and RowToIndex always pass the schema's declared kind so
// a Reader that emits the wrong Cell kind for a leaf is caught here
// rather than surfacing as a confusing failure deeper in the host.
func CellToHostValue(store hostval.Store, c cell.Cell, want *cell.Kind) (hostval.Value, error) {
	if want != nil && c.Kind != *want {
		return nil, errors.WrapInvalid(
			fmt.Errorf("cell kind %s does not match schema kind %s", c.Kind, *want),
			"codec", "CellToHostValue", "kind check",
		)
	}

	switch c.Kind {
	case cell.KindBool:
		return store.NewBool(c.Bool), nil
	case cell.KindInt:
		return store.NewInt(c.Int), nil
	case cell.KindCount:
		return store.NewCount(c.Count), nil
	case cell.KindCounter:
		return store.NewCounter(c.Count), nil
	case cell.KindPort:
		return store.NewPort(c.Count), nil
	case cell.KindDouble:
		return store.NewDouble(c.Double), nil
	case cell.KindTime:
		return store.NewTime(c.Double), nil
	case cell.KindInterval:
		return store.NewInterval(c.Double), nil
	case cell.KindString:
		return store.NewString(c.Str), nil
	case cell.KindEnum:
		return store.NewEnum(c.Str)
	case cell.KindAddr:
		return store.NewAddr(c.Addr), nil
	case cell.KindSubnet:
		return store.NewSubnet(c.Subnet), nil
	case cell.KindSet:
		elems, err := convertElements(store, c.InnerKind, c.Set)
		if err != nil {
			return nil, err
		}
		return store.NewSet(c.InnerKind, elems)
	case cell.KindVector:
		// Converts from c.Vector, never c.Set: Cell keeps Set and Vector
		// as distinct fields so a vector built from the wrong container
		// can't silently serialize the wrong elements.
		elems, err := convertElements(store, c.InnerKind, c.Vector)
		if err != nil {
			return nil, err
		}
		return store.NewVector(c.InnerKind, elems)
	default:
		return nil, errors.WrapFatal(
			fmt.Errorf("unhandled cell kind %s", c.Kind),
			"codec", "CellToHostValue", "kind switch",
		)
	}
}

func convertElements(store hostval.Store, innerKind cell.Kind, cells []cell.Cell) ([]hostval.Value, error) {
	out := make([]hostval.Value, len(cells))
	for i := range cells {
		if cells[i].Kind != innerKind {
			return nil, errors.WrapFatal(
				fmt.Errorf("container element %d has kind %s, inner kind is %s", i, cells[i].Kind, innerKind),
				"codec", "convertElements", "uniform element kind invariant",
			)
		}
		v, err := CellToHostValue(store, cells[i], &innerKind)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// RowToRecord consumes row starting at pos, building rt's nested
// record Value in rt's own declaration order, and returns the value
// along with the position just past the last Cell it consumed. A
// nested record field recurses; a leaf field consumes exactly one
// Cell. This is the inverse of the flattening walk that unrolled rt
// into a flat schema in the first place.
func RowToRecord(store hostval.Store, row []cell.Cell, rt schema.RecordType, pos int) (hostval.Value, int, error) {
	fields := rt.Fields()
	values := make([]hostval.Value, len(fields))

	for i, f := range fields {
		if f.Record != nil {
			v, newPos, err := RowToRecord(store, row, f.Record, pos)
			if err != nil {
				return nil, pos, err
			}
			values[i] = v
			pos = newPos
			continue
		}

		if pos >= len(row) {
			return nil, pos, errors.WrapFatal(
				fmt.Errorf("row has %d cells, field %q needs one at position %d", len(row), f.Name, pos),
				"codec", "RowToRecord", "cursor bounds",
			)
		}

		v, err := CellToHostValue(store, row[pos], &f.Kind)
		if err != nil {
			return nil, pos, err
		}
		values[i] = v
		pos++
	}

	v, err := store.NewRecord(rt, values)
	if err != nil {
		return nil, pos, err
	}
	return v, pos, nil
}

// RowToIndex builds the index half of a row's host representation.
// When idxType has exactly one top-level leaf field and idxCount is 1,
// the result is that field's bare Value — a single-column table index
// is not wrapped in a list. Otherwise RowToIndex walks idxType's
// fields the same way RowToRecord does, recursing into nested records,
// and collects the per-field Values into an ordered list via
// store.NewIndexList. Either way, the walk must consume exactly
// idxCount Cells or the row doesn't match the schema it was built
// against.
func RowToIndex(store hostval.Store, row []cell.Cell, idxCount int, idxType schema.RecordType) (hostval.Value, error) {
	fields := idxType.Fields()

	if idxCount == 1 && len(fields) == 1 && fields[0].Record == nil {
		if len(row) < 1 {
			return nil, errors.WrapFatal(
				fmt.Errorf("row is empty, index field %q needs one cell", fields[0].Name),
				"codec", "RowToIndex", "cursor bounds",
			)
		}
		return CellToHostValue(store, row[0], &fields[0].Kind)
	}

	values := make([]hostval.Value, 0, len(fields))
	pos := 0
	for _, f := range fields {
		if f.Record != nil {
			v, newPos, err := RowToRecord(store, row, f.Record, pos)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			pos = newPos
			continue
		}

		if pos >= len(row) {
			return nil, errors.WrapFatal(
				fmt.Errorf("row has %d cells, index field %q needs one at position %d", len(row), f.Name, pos),
				"codec", "RowToIndex", "cursor bounds",
			)
		}

		v, err := CellToHostValue(store, row[pos], &f.Kind)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		pos++
	}

	if pos != idxCount {
		return nil, errors.WrapFatal(
			fmt.Errorf("index walk consumed %d cells, schema declares idx_count %d", pos, idxCount),
			"codec", "RowToIndex", "cursor/idx_count agreement",
		)
	}

	return store.NewIndexList(values)
}
