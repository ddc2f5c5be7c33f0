package vm

import (
	"errors"

	"haxby/internal/bytecode"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// opSymbols maps an arithmetic/compare opcode to its forward and reverse
// operator-protocol symbols (spec.md §4.7).
var opSymbols = map[bytecode.OpCode][2]symbol.Symbol{
	bytecode.Add:              {symbol.OpImplAdd, symbol.OpImplRAdd},
	bytecode.Sub:              {symbol.OpImplSub, symbol.OpImplRSub},
	bytecode.Mul:              {symbol.OpImplMul, symbol.OpImplRMul},
	bytecode.Div:              {symbol.OpImplDiv, symbol.OpImplRDiv},
	bytecode.Rem:              {symbol.OpImplRem, symbol.OpImplRRem},
	bytecode.ShiftLeft:        {symbol.OpImplShl, symbol.OpImplRShl},
	bytecode.ShiftRight:       {symbol.OpImplShr, symbol.OpImplRShr},
	bytecode.BitwiseAnd:       {symbol.OpImplBwAnd, symbol.OpImplRBwAnd},
	bytecode.BitwiseOr:        {symbol.OpImplBwOr, symbol.OpImplRBwOr},
	bytecode.Xor:              {symbol.OpImplXor, symbol.OpImplRXor},
	bytecode.GreaterThan:      {symbol.OpImplGt, symbol.OpImplLt},
	bytecode.LessThan:         {symbol.OpImplLt, symbol.OpImplGt},
	bytecode.GreaterThanEqual: {symbol.OpImplGtEq, symbol.OpImplLtEq},
	bytecode.LessThanEqual:    {symbol.OpImplLtEq, symbol.OpImplGtEq},
}

// binaryOp implements Add/Sub/Mul/Div/Rem/ShiftLeft/ShiftRight/BitwiseAnd/
// BitwiseOr/Xor (spec.md §4.5, §4.7): a numeric fast path for Int/Float
// pairs, falling back to the operator protocol (forward method, then the
// reverse fallback on the right operand) for anything else. Returns a
// non-nil exc when the result is a program exception to throw rather than
// a hard VM error.
func (vm *VM) binaryOp(f *Frame, op bytecode.OpCode) (exc value.Value, err error) {
	b, ok1 := f.pop()
	a, ok2 := f.pop()
	if !ok1 || !ok2 {
		return nil, vm.emptyStack(f)
	}

	if v, ok, zerr := numericBinary(op, a, b); ok {
		if zerr != nil {
			return vm.builtins.NewRuntimeError("DivisionByZero", nil), nil
		}
		f.push(v)
		return nil, nil
	}

	syms := opSymbols[op]
	result, thrown, derr := vm.dispatchOperator(a, b, syms[0], syms[1])
	if derr != nil {
		return nil, derr
	}
	if thrown != nil {
		return thrown, nil
	}
	f.push(result)
	return nil, nil
}

// dispatchOperator implements spec.md §4.7's full protocol: try
// a._op_impl_<op>(b); if it declines (returns the Unimplemented sentinel),
// try b._op_impl_r<op>(a); if that also declines, the operation has failed.
func (vm *VM) dispatchOperator(a, b value.Value, fwd, rev symbol.Symbol) (value.Value, value.Value, error) {
	if fn, found := vm.lookupAttribute(a, fwd); found && !vm.builtins.IsUnimplemented(fn) {
		result, thrown, err := vm.invoke(fn, a, []value.Value{b})
		if err != nil {
			return nil, nil, err
		}
		if thrown != nil {
			return nil, thrown, nil
		}
		if !vm.builtins.IsUnimplemented(result) {
			return result, nil, nil
		}
	}
	if fn, found := vm.lookupAttribute(b, rev); found && !vm.builtins.IsUnimplemented(fn) {
		result, thrown, err := vm.invoke(fn, b, []value.Value{a})
		if err != nil {
			return nil, nil, err
		}
		if thrown != nil {
			return nil, thrown, nil
		}
		if !vm.builtins.IsUnimplemented(result) {
			return result, nil, nil
		}
	}
	return nil, vm.builtins.NewRuntimeError("UnexpectedType", nil), nil
}

// numericBinary implements the Int/Float fast path, widening Int to Float
// when the operands mix (spec.md §8). ok is false when neither operand is
// numeric, so the caller should fall back to the operator protocol; zerr
// is set when a numeric division/remainder by zero was attempted.
func numericBinary(op bytecode.OpCode, a, b value.Value) (result value.Value, ok bool, zerr error) {
	ai, aIsInt := a.(value.Int)
	bi, bIsInt := b.(value.Int)
	if aIsInt && bIsInt {
		switch op {
		case bytecode.Add:
			return ai + bi, true, nil
		case bytecode.Sub:
			return ai - bi, true, nil
		case bytecode.Mul:
			return ai * bi, true, nil
		case bytecode.Div:
			if bi == 0 {
				return nil, true, errDivByZero
			}
			return ai / bi, true, nil
		case bytecode.Rem:
			if bi == 0 {
				return nil, true, errDivByZero
			}
			return ai % bi, true, nil
		case bytecode.ShiftLeft:
			return ai << uint64(bi), true, nil
		case bytecode.ShiftRight:
			return ai >> uint64(bi), true, nil
		case bytecode.BitwiseAnd:
			return ai & bi, true, nil
		case bytecode.BitwiseOr:
			return ai | bi, true, nil
		case bytecode.Xor:
			return ai ^ bi, true, nil
		case bytecode.GreaterThan:
			return value.Bool(ai > bi), true, nil
		case bytecode.LessThan:
			return value.Bool(ai < bi), true, nil
		case bytecode.GreaterThanEqual:
			return value.Bool(ai >= bi), true, nil
		case bytecode.LessThanEqual:
			return value.Bool(ai <= bi), true, nil
		}
		return nil, false, nil
	}

	af, aIsFloat := asFloat(a)
	bf, bIsFloat := asFloat(b)
	if (aIsInt || aIsFloat) && (bIsInt || bIsFloat) {
		switch op {
		case bytecode.Add:
			return value.Float(af + bf), true, nil
		case bytecode.Sub:
			return value.Float(af - bf), true, nil
		case bytecode.Mul:
			return value.Float(af * bf), true, nil
		case bytecode.Div:
			if bf == 0 {
				return nil, true, errDivByZero
			}
			return value.Float(af / bf), true, nil
		case bytecode.GreaterThan:
			return value.Bool(af > bf), true, nil
		case bytecode.LessThan:
			return value.Bool(af < bf), true, nil
		case bytecode.GreaterThanEqual:
			return value.Bool(af >= bf), true, nil
		case bytecode.LessThanEqual:
			return value.Bool(af <= bf), true, nil
		}
		return nil, false, nil
	}
	return nil, false, nil
}

func asFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	default:
		return 0, false
	}
}

var errDivByZero = errors.New("division by zero")

// unaryNeg implements Neg (spec.md §4.5, §4.7).
func (vm *VM) unaryNeg(f *Frame) (value.Value, error) {
	a, ok := f.pop()
	if !ok {
		return nil, vm.emptyStack(f)
	}
	switch n := a.(type) {
	case value.Int:
		f.push(-n)
		return nil, nil
	case value.Float:
		f.push(-n)
		return nil, nil
	}
	fn, found := vm.lookupAttribute(a, symbol.OpImplNeg)
	if !found || vm.builtins.IsUnimplemented(fn) {
		return vm.builtins.NewRuntimeError("UnexpectedType", nil), nil
	}
	result, thrown, err := vm.invoke(fn, a, nil)
	if err != nil {
		return nil, err
	}
	if thrown != nil {
		return thrown, nil
	}
	f.push(result)
	return nil, nil
}

// equalOp implements Equal (spec.md §4.5, §4.7): the `_op_impl_equals`
// protocol method first, falling back to value.StructuralEqual when neither
// operand implements or declines it.
func (vm *VM) equalOp(f *Frame) (value.Value, error) {
	b, ok1 := f.pop()
	a, ok2 := f.pop()
	if !ok1 || !ok2 {
		return nil, vm.emptyStack(f)
	}
	if fn, found := vm.lookupAttribute(a, symbol.OpImplEquals); found && !vm.builtins.IsUnimplemented(fn) {
		result, thrown, err := vm.invoke(fn, a, []value.Value{b})
		if err != nil {
			return nil, err
		}
		if thrown != nil {
			return thrown, nil
		}
		if !vm.builtins.IsUnimplemented(result) {
			f.push(result)
			return nil, nil
		}
	}
	f.push(value.Bool(value.StructuralEqual(a, b)))
	return nil, nil
}

// compareOp implements GreaterThan/LessThan/GreaterThanEqual/LessThanEqual
// (spec.md §4.5, §4.7): numeric fast path, else the ordering protocol
// method on the left operand (e.g. `_op_impl_lt` for LessThan), falling
// back to the crossed method on the right operand (`_op_impl_gt`) when the
// left declines, exactly like dispatchOperator.
func (vm *VM) compareOp(f *Frame, op bytecode.OpCode) (value.Value, error) {
	b, ok1 := f.pop()
	a, ok2 := f.pop()
	if !ok1 || !ok2 {
		return nil, vm.emptyStack(f)
	}
	if v, ok, zerr := numericBinary(op, a, b); ok && zerr == nil {
		f.push(v)
		return nil, nil
	}
	syms := opSymbols[op]
	result, thrown, err := vm.dispatchOperator(a, b, syms[0], syms[1])
	if err != nil {
		return nil, err
	}
	if thrown != nil {
		return thrown, nil
	}
	f.push(result)
	return nil, nil
}
