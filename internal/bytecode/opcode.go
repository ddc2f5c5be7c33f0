// Package bytecode decodes the little-endian, byte-addressed instruction
// stream described in spec.md §4.3 and §6.1. It knows nothing about runtime
// values; it only turns bytes into typed Instructions.
package bytecode

// OpCode is the one-byte instruction tag.
type OpCode byte

const (
	// stack
	Nop OpCode = iota
	Push
	Push0
	Push1
	PushTrue
	PushFalse
	PushBuiltinTy
	PushRuntimeValue
	Pop
	Dup
	Swap
	Copy

	// arithmetic / logic
	Add
	Sub
	Mul
	Div
	Rem
	Neg
	ShiftLeft
	ShiftRight
	BitwiseAnd
	BitwiseOr
	Xor
	LogicalAnd
	LogicalOr
	Not

	// compare
	Equal
	GreaterThan
	LessThan
	GreaterThanEqual
	LessThanEqual
	Isa

	// locals / named
	ReadLocal
	WriteLocal
	TypedefLocal
	ReadNamed
	WriteNamed
	TypedefNamed
	ReadUplevel
	StoreUplevel

	// indexing
	ReadIndex
	WriteIndex

	// attributes
	ReadAttribute
	WriteAttribute
	ReadAttributeSymbol
	WriteAttributeSymbol

	// control
	Jump
	JumpTrue
	JumpFalse
	JumpIfArgSupplied
	Call
	Return
	ReturnUnit
	TryEnter
	TryExit
	Throw
	Assert
	Halt

	// construction
	BuildList
	BuildFunction
	BuildStruct
	BuildEnum
	BuildMixin
	BindMethod
	BindCase
	IncludeMixin
	NewEnumVal
	EnumCheckIsCase
	EnumTryExtractPayload
	TryUnwrapProtocol

	// modules
	Import
	LiftModule
	LoadDylib

	opCodeCount
)

var opNames = [opCodeCount]string{
	Nop: "Nop", Push: "Push", Push0: "Push0", Push1: "Push1",
	PushTrue: "PushTrue", PushFalse: "PushFalse", PushBuiltinTy: "PushBuiltinTy",
	PushRuntimeValue: "PushRuntimeValue", Pop: "Pop", Dup: "Dup", Swap: "Swap", Copy: "Copy",
	Add: "Add", Sub: "Sub", Mul: "Mul", Div: "Div", Rem: "Rem", Neg: "Neg",
	ShiftLeft: "ShiftLeft", ShiftRight: "ShiftRight", BitwiseAnd: "BitwiseAnd",
	BitwiseOr: "BitwiseOr", Xor: "Xor", LogicalAnd: "LogicalAnd", LogicalOr: "LogicalOr", Not: "Not",
	Equal: "Equal", GreaterThan: "GreaterThan", LessThan: "LessThan",
	GreaterThanEqual: "GreaterThanEqual", LessThanEqual: "LessThanEqual", Isa: "Isa",
	ReadLocal: "ReadLocal", WriteLocal: "WriteLocal", TypedefLocal: "TypedefLocal",
	ReadNamed: "ReadNamed", WriteNamed: "WriteNamed", TypedefNamed: "TypedefNamed",
	ReadUplevel: "ReadUplevel", StoreUplevel: "StoreUplevel",
	ReadIndex: "ReadIndex", WriteIndex: "WriteIndex",
	ReadAttribute: "ReadAttribute", WriteAttribute: "WriteAttribute",
	ReadAttributeSymbol: "ReadAttributeSymbol", WriteAttributeSymbol: "WriteAttributeSymbol",
	Jump: "Jump", JumpTrue: "JumpTrue", JumpFalse: "JumpFalse",
	JumpIfArgSupplied: "JumpIfArgSupplied", Call: "Call", Return: "Return",
	ReturnUnit: "ReturnUnit", TryEnter: "TryEnter", TryExit: "TryExit",
	Throw: "Throw", Assert: "Assert", Halt: "Halt",
	BuildList: "BuildList", BuildFunction: "BuildFunction", BuildStruct: "BuildStruct",
	BuildEnum: "BuildEnum", BuildMixin: "BuildMixin", BindMethod: "BindMethod",
	BindCase: "BindCase", IncludeMixin: "IncludeMixin", NewEnumVal: "NewEnumVal",
	EnumCheckIsCase: "EnumCheckIsCase", EnumTryExtractPayload: "EnumTryExtractPayload",
	TryUnwrapProtocol: "TryUnwrapProtocol",
	Import:            "Import", LiftModule: "LiftModule", LoadDylib: "LoadDylib",
}

func (op OpCode) String() string {
	if op < opCodeCount {
		if n := opNames[op]; n != "" {
			return n
		}
	}
	return "UnknownOpCode"
}

func (op OpCode) Valid() bool { return op < opCodeCount }

// OperandWidth describes the fixed-width encoding of each opcode's operand,
// per spec.md §4.3 ("1-byte tag optionally followed by fixed-width operands").
type OperandWidth int

const (
	WidthNone OperandWidth = iota
	WidthU8
	WidthU16
	WidthU32
	// WidthU8U16 is used by JumpIfArgSupplied(u8, u16): two operands.
	WidthU8U16
)

var operandWidths = [opCodeCount]OperandWidth{
	Push: WidthU16, PushBuiltinTy: WidthU8, PushRuntimeValue: WidthU8,
	Copy: WidthU8,
	ReadLocal: WidthU8, WriteLocal: WidthU8, TypedefLocal: WidthU8,
	ReadNamed: WidthU16, WriteNamed: WidthU16, TypedefNamed: WidthU16,
	ReadUplevel: WidthU8, StoreUplevel: WidthU8,
	ReadAttribute: WidthU16, WriteAttribute: WidthU16,
	ReadAttributeSymbol: WidthU32, WriteAttributeSymbol: WidthU32,
	Jump: WidthU16, JumpTrue: WidthU16, JumpFalse: WidthU16,
	JumpIfArgSupplied: WidthU8U16,
	Call:              WidthU8,
	TryEnter:          WidthU16,
	Assert:            WidthU16,
	BuildList:         WidthU32,
	BuildFunction:     WidthU8,
	BindMethod:        WidthU8U16,
	BindCase:          WidthU8U16,
	NewEnumVal:        WidthU8U16,
	EnumCheckIsCase:   WidthU16,
	TryUnwrapProtocol: WidthU8,
	Import:            WidthU16,
	LoadDylib:         WidthU16,
}

func (op OpCode) OperandWidth() OperandWidth {
	if op < opCodeCount {
		return operandWidths[op]
	}
	return WidthNone
}

// TryUnwrapProtocol modes (the u8 operand).
const (
	ModePropagateError uint8 = iota
	ModeAssertError
	ModeFlagToCaller
)

// Built-in type ids referenced by PushBuiltinTy, spec.md §6.4.
type BuiltinTypeID uint8

const (
	TyAny BuiltinTypeID = iota
	TyModule
	TyUnit
	TyUnimplemented
	TyMaybe
	TyResult
	TyInt
	TyString
	TyRuntimeError
	TyBool
	TyFloat
	TyList
	TyType
)

// Built-in runtime value ids referenced by PushRuntimeValue, spec.md §6.5.
type RuntimeValueID uint8

const (
	RVFalse RuntimeValueID = iota
	RVTrue
	RVUnit
	RVMaybeNone
)
