// Package cell defines Cell, the tagged-union value the input manager
// exchanges with a Reader: a flat, language-agnostic wire type for one
// atomic or compound field of one row.
//
// Cell is a plain struct rather than an interface or host-runtime value.
// This is a deliberate departure from the scripting runtime this core
// sits behind: readers and the codec should never need to touch a
// reference-counted host value, only this sum type.
package cell

import "fmt"

// Kind identifies which field of a Cell is populated, and for Set/Vector
// which Kind its elements hold.
type Kind int

// The full set of atomic and compound kinds a Cell may carry.
const (
	KindBool Kind = iota
	KindInt
	KindCount
	KindCounter
	KindPort
	KindSubnet
	KindAddr
	KindDouble
	KindTime
	KindInterval
	KindEnum
	KindString
	KindSet
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindCount:
		return "count"
	case KindCounter:
		return "counter"
	case KindPort:
		return "port"
	case KindSubnet:
		return "subnet"
	case KindAddr:
		return "addr"
	case KindDouble:
		return "double"
	case KindTime:
		return "time"
	case KindInterval:
		return "interval"
	case KindEnum:
		return "enum"
	case KindString:
		return "string"
	case KindSet:
		return "set"
	case KindVector:
		return "vector"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsAtomic reports whether k is one of the non-container kinds.
func (k Kind) IsAtomic() bool {
	return k != KindSet && k != KindVector
}

// Addr is a 128-bit address stored as four 32-bit words; an IPv4
// address is carried in the low-order word with the upper three words
// zero.
type Addr [4]uint32

// Subnet is a network prefix: a width (0-128) plus the four-word network
// address (already masked to that width by whoever built the Cell).
type Subnet struct {
	Width   uint8
	Network Addr
}

// Cell is a tagged union over one row field. Exactly the fields implied
// by Kind are meaningful; all others are zero value.
type Cell struct {
	Kind Kind

	// InnerKind is meaningful only when Kind is KindSet or KindVector.
	// It names the element Kind, and is set even for an empty container
	// so the codec never has to guess an element type.
	InnerKind Kind

	Bool   bool
	Int    int64
	Count  uint64
	Double float64 // also carries Time and Interval
	Str    string  // also carries Enum
	Addr   Addr
	Subnet Subnet

	Set    []Cell
	Vector []Cell
}

// NewBool constructs a Cell of KindBool.
func NewBool(v bool) Cell { return Cell{Kind: KindBool, Bool: v} }

// NewInt constructs a Cell of KindInt.
func NewInt(v int64) Cell { return Cell{Kind: KindInt, Int: v} }

// NewCount constructs a Cell of KindCount.
func NewCount(v uint64) Cell { return Cell{Kind: KindCount, Count: v} }

// NewCounter constructs a Cell of KindCounter.
func NewCounter(v uint64) Cell { return Cell{Kind: KindCounter, Count: v} }

// NewPort constructs a Cell of KindPort.
func NewPort(v uint64) Cell { return Cell{Kind: KindPort, Count: v} }

// NewDouble constructs a Cell of KindDouble.
func NewDouble(v float64) Cell { return Cell{Kind: KindDouble, Double: v} }

// NewTime constructs a Cell of KindTime.
func NewTime(v float64) Cell { return Cell{Kind: KindTime, Double: v} }

// NewInterval constructs a Cell of KindInterval.
func NewInterval(v float64) Cell { return Cell{Kind: KindInterval, Double: v} }

// NewString constructs a Cell of KindString.
func NewString(v string) Cell { return Cell{Kind: KindString, Str: v} }

// NewEnum constructs a Cell of KindEnum.
func NewEnum(v string) Cell { return Cell{Kind: KindEnum, Str: v} }

// NewAddr constructs a Cell of KindAddr.
func NewAddr(v Addr) Cell { return Cell{Kind: KindAddr, Addr: v} }

// NewSubnet constructs a Cell of KindSubnet.
func NewSubnet(v Subnet) Cell { return Cell{Kind: KindSubnet, Subnet: v} }

// NewSet constructs a Cell of KindSet over elements of innerKind.
// elems may be empty; innerKind is still recorded so the element type
// survives a round trip through the codec and fingerprint.
func NewSet(innerKind Kind, elems []Cell) Cell {
	return Cell{Kind: KindSet, InnerKind: innerKind, Set: elems}
}

// NewVector constructs a Cell of KindVector over elements of innerKind.
func NewVector(innerKind Kind, elems []Cell) Cell {
	return Cell{Kind: KindVector, InnerKind: innerKind, Vector: elems}
}
