package value

import (
	"haxby/internal/bytecode"
	"haxby/internal/shape"
)

// CodeObject is an immutable compiled function body plus metadata
// (spec.md §3.5), produced by the module loader from a
// bytecode.CompiledCodeObject.
type CodeObject struct {
	Name          string
	Body          []bytecode.Instruction
	RequiredArgc  int
	DefaultArgc   int
	Variadic      bool
	FrameSize     int
	SourcePointer bytecode.SourcePointer
	LineTable     []bytecode.LineEntry

	// AttrCaches and CaseCaches are the inline-cache and enum-case-
	// resolution sidecars of spec.md §4.5, one slot per instruction,
	// addressed by instruction index. Allocated by the loader alongside
	// Body so every instruction address has a home cache cell regardless
	// of whether that instruction ever uses one.
	AttrCaches []AttrCache
	CaseCaches []CaseCache
}

// AttrCache is the sidecar a ReadAttributeSymbol/WriteAttributeSymbol site
// carries: the shape/slot pair from the last successful lookup, a miss
// counter, and whether the site has gone megamorphic (spec.md §4.5, §9
// "Shape explosion").
type AttrCache struct {
	Valid  bool
	Shape  *shape.Shape
	Slot   shape.SlotID
	Misses int
	Frozen bool
}

// MonomorphicMissLimit is the threshold past which an attribute cache site
// stops rewriting and is treated as permanently megamorphic (spec.md §4.5,
// §9).
const MonomorphicMissLimit = 16

// CaseCache is the NewEnumVal sidecar: the case index resolved from a
// case-name constant the last time this instruction ran, avoiding a linear
// scan of the enum's case list on every construction (spec.md §4.5).
type CaseCache struct {
	Valid bool
	Index int
}

func (*CodeObject) Kind() Kind { return KindCodeObject }

// LineFor returns the source line active at the given instruction index
// within Body (indices, not byte offsets, since the loader pre-decodes).
func (c *CodeObject) LineFor(instIndex int) int {
	if instIndex < 0 || instIndex >= len(c.Body) {
		return 0
	}
	offset := c.Body[instIndex].Offset
	line := 0
	for _, e := range c.LineTable {
		if e.Offset > offset {
			break
		}
		line = e.Line
	}
	return line
}

// FunctionAttribs are the bits BuildFunction's u8 operand carries
// (spec.md §4.5 BuildFunction): what kind of member this function is, used
// when auto-binding a receiver on attribute read.
type FunctionAttribs uint8

const (
	AttrMethodOfType FunctionAttribs = 1 << iota
	AttrMethodOfInstance
	AttrVariadic
)

func (a FunctionAttribs) Has(bit FunctionAttribs) bool { return a&bit != 0 }

// Function is a closure: a CodeObject plus the up-level environment
// captured at BuildFunction time (spec.md §4.5).
type Function struct {
	Name     string
	Code     *CodeObject
	Uplevels []Value
	Attribs  FunctionAttribs
	// Module is the defining module, held as a plain pointer (Go's GC
	// reclaims the module/function cycle). A call's frame resolves
	// ReadNamed/WriteNamed/Import against it directly, so it keeps pointing
	// at the original module even if the registry later replaces or evicts
	// that path.
	Module *Module
}

func (*Function) Kind() Kind { return KindFunction }

// BoundFunction pairs a receiver with a callee (a *Function or a
// *NativeFunction), produced automatically when a method is read off an
// object (spec.md §4.5 ReadAttribute).
type BoundFunction struct {
	Receiver Value
	Callee   Value
}

func (*BoundFunction) Kind() Kind { return KindBoundFunction }

// NativeFunction is a built-in or native-extension function implemented in
// Go rather than compiled bytecode (spec.md §6.3's built-in function
// contract). It satisfies the same Call-opcode arity contract as Function
// (spec.md §4.6).
type NativeFunction struct {
	Name         string
	RequiredArgc int
	DefaultArgc  int
	Variadic     bool
	// Invoke receives exactly the arguments the call site supplied, already
	// arity-checked by the execution loop, and an optional bound receiver
	// (nil if the function was not bound). It returns either a result
	// value, a program exception to throw, or a hard VM error.
	Invoke func(recv Value, args []Value) (result Value, thrown Value, err error)
}

func (*NativeFunction) Kind() Kind { return KindFunction }

// Arity is implemented by both Function and NativeFunction so the
// execution loop can validate Call(argc) uniformly (spec.md §4.6).
type Arity interface {
	ArityBounds() (required, def int, variadic bool)
}

func (f *Function) ArityBounds() (int, int, bool) {
	return f.Code.RequiredArgc, f.Code.DefaultArgc, f.Attribs.Has(AttrVariadic)
}

func (f *NativeFunction) ArityBounds() (int, int, bool) {
	return f.RequiredArgc, f.DefaultArgc, f.Variadic
}
