package symbol

// wellKnownNames is the fixed prefix of names interned by every Interner at
// construction (spec.md §3.1, §4.1). Order matters: it fixes the numeric
// value of every well-known Symbol below, so never reorder or delete an
// entry — only append.
var wellKnownNames = []string{
	// operator protocol (spec.md §4.7)
	"_op_impl_add", "_op_impl_radd",
	"_op_impl_sub", "_op_impl_rsub",
	"_op_impl_mul", "_op_impl_rmul",
	"_op_impl_div", "_op_impl_rdiv",
	"_op_impl_rem", "_op_impl_rrem",
	"_op_impl_shl", "_op_impl_rshl",
	"_op_impl_shr", "_op_impl_rshr",
	"_op_impl_bwand", "_op_impl_rbwand",
	"_op_impl_bwor", "_op_impl_rbwor",
	"_op_impl_xor", "_op_impl_rxor",
	"_op_impl_lt", "_op_impl_gt",
	"_op_impl_lteq", "_op_impl_gteq",
	"_op_impl_equals",
	"_op_impl_neg",
	"_op_impl_call",
	"_op_impl_read_index",
	"_op_impl_write_index",

	// common attributes (spec.md §3.1, §3.8)
	"msg",
	"backtrace",
	"__impl",
	"next",
	"expected",
	"actual",
}

const (
	OpImplAdd Symbol = iota
	OpImplRAdd
	OpImplSub
	OpImplRSub
	OpImplMul
	OpImplRMul
	OpImplDiv
	OpImplRDiv
	OpImplRem
	OpImplRRem
	OpImplShl
	OpImplRShl
	OpImplShr
	OpImplRShr
	OpImplBwAnd
	OpImplRBwAnd
	OpImplBwOr
	OpImplRBwOr
	OpImplXor
	OpImplRXor
	OpImplLt
	OpImplGt
	OpImplLtEq
	OpImplGtEq
	OpImplEquals
	OpImplNeg
	OpImplCall
	OpImplReadIndex
	OpImplWriteIndex

	AttrMsg
	AttrBacktrace
	AttrImpl
	AttrNext
	AttrExpected
	AttrActual
)
