// Package builtins registers the well-known types of spec.md §2 item 8 and
// §6.4 (Any, Module, Unit, Unimplemented, Maybe, Result, Int, String,
// RuntimeError, Bool, Float, List, Type) into a process-global namespace,
// and provides the runtime-value singletons of §6.5.
package builtins

import (
	"haxby/internal/bytecode"
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// Catalogue holds every built-in type and singleton value a freshly
// constructed VM needs before it can run any bytecode.
type Catalogue struct {
	Any       *value.TypeValue
	ModuleTy  *value.TypeValue
	Type      *value.TypeValue

	Int    *value.TypeValue
	Float  *value.TypeValue
	Bool   *value.TypeValue
	String *value.TypeValue
	List   *value.TypeValue

	Unit          *value.TypeValue
	UnitValue     *value.EnumValue
	Unimplemented *value.TypeValue
	unimplStruct  *value.Struct
	UnimplValue   *value.Object

	Maybe     *value.TypeValue
	maybeEnum *value.Enum
	MaybeNone *value.EnumValue

	Result     *value.TypeValue
	resultEnum *value.Enum

	RuntimeError     *value.TypeValue
	runtimeErrorEnum *value.Enum

	argcMismatchStruct *value.Struct
	expectedSym        symbol.Symbol
	actualSym          symbol.Symbol
}

// byTypeID indexes the built-in types by the stable id of spec.md §6.4, for
// PushBuiltinTy.
type byTypeID [13]*value.TypeValue

// New constructs the catalogue. syms and reg are the owning VM's interner
// and shapes registry, since built-in member tables are shape-indexed
// boxes like every other member table (spec.md §3.4).
func New(syms *symbol.Interner, reg *shape.Registry) *Catalogue {
	c := &Catalogue{}

	c.Any = nativeType(reg, "Any", value.TVAny)
	c.ModuleTy = nativeType(reg, "Module", value.TVModule)
	c.Type = nativeType(reg, "Type", value.TVBuiltinNative)

	c.Int = nativeType(reg, "Int", value.TVBuiltinNative)
	c.Float = nativeType(reg, "Float", value.TVBuiltinNative)
	c.Bool = nativeType(reg, "Bool", value.TVBuiltinNative)
	c.String = nativeType(reg, "String", value.TVBuiltinNative)
	c.List = nativeType(reg, "List", value.TVBuiltinNative)

	c.unimplStruct = &value.Struct{Name: "Unimplemented", Members: value.Box{Shape: reg.Empty()}}
	c.Unimplemented = &value.TypeValue{TVKind: value.TVStruct, Struct: c.unimplStruct, Name: "Unimplemented"}
	c.UnimplValue = &value.Object{Struct: c.unimplStruct, Attrs: value.Box{Shape: reg.Empty()}}

	c.maybeEnum = &value.Enum{
		Name:    "Maybe",
		Members: value.Box{Shape: reg.Empty()},
		Cases: []value.EnumCase{
			{Name: "Some", NameSym: mustIntern(syms, "Some")},
			{Name: "None", NameSym: mustIntern(syms, "None")},
		},
	}
	c.Maybe = &value.TypeValue{TVKind: value.TVEnum, Enum: c.maybeEnum, Name: "Maybe"}
	c.MaybeNone = &value.EnumValue{Enum: c.maybeEnum, CaseIndex: 1}

	c.resultEnum = &value.Enum{
		Name:    "Result",
		Members: value.Box{Shape: reg.Empty()},
		Cases: []value.EnumCase{
			{Name: "Ok", NameSym: mustIntern(syms, "Ok")},
			{Name: "Err", NameSym: mustIntern(syms, "Err")},
		},
	}
	c.Result = &value.TypeValue{TVKind: value.TVEnum, Enum: c.resultEnum, Name: "Result"}

	c.runtimeErrorEnum = &value.Enum{
		Name:    "RuntimeError",
		Members: value.Box{Shape: reg.Empty()},
		Cases: []value.EnumCase{
			{Name: "DivisionByZero", NameSym: mustIntern(syms, "DivisionByZero")},
			{Name: "EnumWithoutPayload", NameSym: mustIntern(syms, "EnumWithoutPayload")},
			{Name: "IndexOutOfBounds", NameSym: mustIntern(syms, "IndexOutOfBounds")},
			{Name: "MismatchedArgumentCount", NameSym: mustIntern(syms, "MismatchedArgumentCount")},
			{Name: "NoSuchCase", NameSym: mustIntern(syms, "NoSuchCase")},
			{Name: "NoSuchIdentifier", NameSym: mustIntern(syms, "NoSuchIdentifier")},
			{Name: "OperationFailed", NameSym: mustIntern(syms, "OperationFailed")},
			{Name: "UnexpectedType", NameSym: mustIntern(syms, "UnexpectedType")},
			{Name: "AssertFailed", NameSym: mustIntern(syms, "AssertFailed")},
			{Name: "CircularImport", NameSym: mustIntern(syms, "CircularImport")},
		},
	}
	c.RuntimeError = &value.TypeValue{TVKind: value.TVEnum, Enum: c.runtimeErrorEnum, Name: "RuntimeError"}

	c.argcMismatchStruct = &value.Struct{Name: "ArgcMismatch", Members: value.Box{Shape: reg.Empty()}}
	c.expectedSym = symbol.AttrExpected
	c.actualSym = symbol.AttrActual

	c.Unit = &value.TypeValue{TVKind: value.TVEnum, Enum: &value.Enum{
		Name:    "Unit",
		Members: value.Box{Shape: reg.Empty()},
		Cases:   []value.EnumCase{{Name: "unit", NameSym: mustIntern(syms, "unit")}},
	}, Name: "Unit"}
	c.UnitValue = &value.EnumValue{Enum: c.Unit.Enum, CaseIndex: 0}

	return c
}

func nativeType(reg *shape.Registry, name string, kind value.TypeValueKind) *value.TypeValue {
	return &value.TypeValue{
		TVKind:  kind,
		Name:    name,
		Builtin: &value.BuiltinType{Name: name, Members: value.Box{Shape: reg.Empty()}},
	}
}

func mustIntern(syms *symbol.Interner, name string) symbol.Symbol {
	s, err := syms.Intern(name)
	if err != nil {
		panic(err)
	}
	return s
}

// ByID resolves a PushBuiltinTy operand (spec.md §6.4) to its TypeValue.
func (c *Catalogue) ByID(id bytecode.BuiltinTypeID) *value.TypeValue {
	switch id {
	case bytecode.TyAny:
		return c.Any
	case bytecode.TyModule:
		return c.ModuleTy
	case bytecode.TyUnit:
		return c.Unit
	case bytecode.TyUnimplemented:
		return c.Unimplemented
	case bytecode.TyMaybe:
		return c.Maybe
	case bytecode.TyResult:
		return c.Result
	case bytecode.TyInt:
		return c.Int
	case bytecode.TyString:
		return c.String
	case bytecode.TyRuntimeError:
		return c.RuntimeError
	case bytecode.TyBool:
		return c.Bool
	case bytecode.TyFloat:
		return c.Float
	case bytecode.TyList:
		return c.List
	case bytecode.TyType:
		return c.Type
	default:
		return nil
	}
}

// RuntimeValue resolves a PushRuntimeValue operand (spec.md §6.5).
func (c *Catalogue) RuntimeValue(id bytecode.RuntimeValueID) value.Value {
	switch id {
	case bytecode.RVFalse:
		return value.Bool(false)
	case bytecode.RVTrue:
		return value.Bool(true)
	case bytecode.RVUnit:
		return c.UnitValue
	case bytecode.RVMaybeNone:
		return c.MaybeNone
	default:
		return nil
	}
}

// IsUnimplemented performs the type-identity check spec.md §9 describes:
// distinguishing the Unimplemented sentinel from an ordinary struct value
// by comparing against the registered built-in, not by any field.
func (c *Catalogue) IsUnimplemented(v value.Value) bool {
	obj, ok := v.(*value.Object)
	return ok && obj.Struct == c.unimplStruct
}

// NewRuntimeError constructs a RuntimeError.<caseName> exception value,
// with payload if the case carries one (spec.md §7 item 2).
func (c *Catalogue) NewRuntimeError(caseName string, payload value.Value) *value.EnumValue {
	for i, cs := range c.runtimeErrorEnum.Cases {
		if cs.Name == caseName {
			return &value.EnumValue{Enum: c.runtimeErrorEnum, CaseIndex: i, Payload: payload}
		}
	}
	panic("builtins: unknown RuntimeError case " + caseName)
}

// NewArgcMismatch builds the ArgcMismatch{expected, actual} payload the
// MismatchedArgumentCount RuntimeError case carries (spec.md §7 item 2).
func (c *Catalogue) NewArgcMismatch(reg *shape.Registry, expected, actual int) *value.Object {
	obj := &value.Object{Struct: c.argcMismatchStruct, Attrs: value.Box{Shape: reg.Empty()}}
	obj.Attrs.Set(reg, c.expectedSym, value.Int(expected))
	obj.Attrs.Set(reg, c.actualSym, value.Int(actual))
	return obj
}

// NewOk / NewErr build Result.Ok(x) / Result.Err(e) values for the try
// protocol (spec.md §4.5 TryUnwrapProtocol, §8).
func (c *Catalogue) NewOk(x value.Value) *value.EnumValue {
	return &value.EnumValue{Enum: c.resultEnum, CaseIndex: 0, Payload: x}
}

func (c *Catalogue) NewErr(e value.Value) *value.EnumValue {
	return &value.EnumValue{Enum: c.resultEnum, CaseIndex: 1, Payload: e}
}

// NewSome builds Maybe.Some(x); Maybe.None is the shared MaybeNone value.
func (c *Catalogue) NewSome(x value.Value) *value.EnumValue {
	return &value.EnumValue{Enum: c.maybeEnum, CaseIndex: 0, Payload: x}
}

// IsResult reports whether ev is an instance of the Result enum, and if so
// whether it's the Ok case, for TryUnwrapProtocol (spec.md §4.5).
func (c *Catalogue) IsResult(v value.Value) (ev *value.EnumValue, isOk bool, ok bool) {
	e, isEnum := v.(*value.EnumValue)
	if !isEnum || e.Enum != c.resultEnum {
		return nil, false, false
	}
	return e, e.CaseIndex == 0, true
}
