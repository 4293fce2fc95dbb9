// Package schema derives a flat, positional Schema from a host record
// type by recursively unrolling its fields in declaration order, the
// way component/schema_tags.go walks a Go struct's tags to build a
// component.ConfigSchema — except the source of truth here is the host
// runtime's own record type, not a struct tag, since the record type is
// owned by the host and reached only through the RecordType interface.
package schema

import (
	"fmt"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/errors"
)

// Field describes one declared field of a host record type, as handed
// back by the host runtime. Exactly one of the following is true for a
// Field: it is itself a nested record (Record != nil), or it is a leaf
// holding a Cell of Kind, whose InnerKind/InnerIsRecord describe the
// element type when Kind is a container.
type Field struct {
	Name string

	// Record is non-nil when this field is itself a nested record; the
	// walk recurses into it instead of treating it as a leaf.
	Record RecordType

	// Kind is the leaf's Cell kind. Meaningless when Record != nil.
	Kind cell.Kind

	// InnerKind/InnerIsRecord describe the element type when Kind is
	// cell.KindSet or cell.KindVector. InnerIsRecord set means the
	// container holds nested records, which UnrollRecordType rejects.
	InnerKind     cell.Kind
	InnerIsRecord bool
}

// RecordType is the minimal view the schema package needs of a host
// record type: its own declared fields, in order. The host runtime's
// actual record/type system lives outside this module; this interface
// is the seam an integration implements over it.
type RecordType interface {
	Fields() []Field
}

// FieldSpec is one flattened leaf of an unrolled record type: a dotted
// name, its Cell kind, and — for Set/Vector leaves — the element kind.
// This is exactly what a Reader's Init receives to describe the fields
// it must produce Cells for.
type FieldSpec struct {
	Name         string
	Kind         cell.Kind
	InnerKind    cell.Kind
	HasInnerKind bool
}

// Schema is the ordered sequence of leaves produced by unrolling a
// record type. Len() is the number of Cells a row contributes for this
// half (index or value) of a stream.
type Schema struct {
	Fields []FieldSpec
}

// Len returns the number of Cells a row must supply for this schema.
func (s Schema) Len() int { return len(s.Fields) }

// IsCompatible reports whether a leaf's kind (and, for containers, its
// element kind) is one the codec can marshal: any atomic kind on its
// own, or a Set/Vector whose InnerKind is itself atomic. A container
// whose element type is itself a record is never compatible — record
// flattening only happens at the top level of a RecordType walk.
func IsCompatible(kind cell.Kind, innerKind cell.Kind, innerIsRecord bool) bool {
	switch kind {
	case cell.KindSet, cell.KindVector:
		return !innerIsRecord && innerKind.IsAtomic()
	default:
		return kind.IsAtomic()
	}
}

// UnrollRecordType walks rt's fields in declaration order, recursing
// into nested records with a dot-joined name prefix, and returns the
// flattened Schema of leaves. Every visited leaf is checked against
// IsCompatible; the first incompatible leaf fails the whole unroll.
func UnrollRecordType(rt RecordType) (Schema, error) {
	var out Schema
	if err := unroll(rt, "", &out); err != nil {
		return Schema{}, err
	}
	return out, nil
}

func unroll(rt RecordType, prefix string, out *Schema) error {
	for _, f := range rt.Fields() {
		name := f.Name
		if prefix != "" {
			name = prefix + "." + name
		}

		if f.Record != nil {
			if err := unroll(f.Record, name, out); err != nil {
				return err
			}
			continue
		}

		if !IsCompatible(f.Kind, f.InnerKind, f.InnerIsRecord) {
			return errors.WrapInvalid(
				fmt.Errorf("field %q has incompatible kind %s", name, f.Kind),
				"schema", "UnrollRecordType", "compatibility check",
			)
		}

		spec := FieldSpec{Name: name, Kind: f.Kind}
		if f.Kind == cell.KindSet || f.Kind == cell.KindVector {
			spec.InnerKind = f.InnerKind
			spec.HasInnerKind = true
		}
		out.Fields = append(out.Fields, spec)
	}
	return nil
}
