// Package vmerr implements VmError, the uncatchable failure channel of
// spec.md §7 (programmatic VM faults). The other channel, the catchable
// RuntimeError exception enum, is built in package builtins. Its shape is
// generalized from the teacher's internal/errors package (SentraError,
// ErrorType, SourceLocation, StackFrame).
package vmerr

import (
	"fmt"
	"strings"

	"haxby/internal/bytecode"
)

// Reason enumerates the VM-fault kinds of spec.md §7 item 1.
type Reason string

const (
	ReasonTruncatedBytecode     Reason = "TruncatedBytecode"
	ReasonUnknownOpcode         Reason = "UnknownOpcode"
	ReasonEmptyStack            Reason = "EmptyStack"
	ReasonNoSuchModuleConstant  Reason = "NoSuchModuleConstant"
	ReasonTooManySymbols        Reason = "TooManySymbols"
	ReasonInvalidMainSignature  Reason = "InvalidMainSignature"
	ReasonCircularImport        Reason = "CircularImport"
	ReasonUplevelOutOfRange     Reason = "UplevelOutOfRange"
	ReasonImportNotAvailable    Reason = "ImportNotAvailable"
)

// VmError is a diagnostic fault of the VM itself: not catchable by the
// program (spec.md §7). It terminates execution.
type VmError struct {
	Reason     Reason
	Message    string
	Source     *bytecode.SourcePointer
	Backtrace  []bytecode.SourcePointer
}

func (e *VmError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Reason))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Source != nil {
		fmt.Fprintf(&sb, " (at %s:%d)", e.Source.Buffer, e.Source.Line)
	}
	for _, fr := range e.Backtrace {
		fmt.Fprintf(&sb, "\n  at %s:%d", fr.Buffer, fr.Line)
	}
	return sb.String()
}

// NewVmError builds a VmError with no source pointer yet attached; the VM
// attaches one as the error surfaces through AtSource.
func NewVmError(reason Reason, format string, args ...interface{}) *VmError {
	return &VmError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AtSource returns a copy of e annotated with where it occurred, the
// uncatchable-fault analogue of a RuntimeErrorException's backtrace entry.
func (e *VmError) AtSource(sp bytecode.SourcePointer) *VmError {
	cp := *e
	cp.Source = &sp
	return &cp
}
