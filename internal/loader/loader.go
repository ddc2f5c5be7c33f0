// Package loader implements spec.md §4.4: turning a compiled module (an
// opaque constant pool plus an entry code object, produced by the
// out-of-scope compiler) into a runtime module ready to execute.
package loader

import (
	"fmt"

	"haxby/internal/bytecode"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// Error wraps a loader failure with the module path for context.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("loader: %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Load materializes a bytecode.CompiledModule into a *value.Module,
// interning every attribute-name constant referenced by ReadAttribute /
// WriteAttribute along the way (spec.md §4.4 steps 1-2). The returned
// module's named-value table is empty; running its Entry code object
// through the execution loop populates it (step 3).
func Load(cm *bytecode.CompiledModule, syms *symbol.Interner, moduleID string) (*value.Module, error) {
	mod := value.NewModule(cm.Path, moduleID)

	consts := make([]value.Value, len(cm.Constants))
	codeObjs := make([]*value.CodeObject, len(cm.Constants)) // parallel, nil unless ConstCodeObject

	// Pass 1: materialize primitive constants and allocate (but do not yet
	// decode the body of) every code object, so forward references between
	// nested code objects in the same pool resolve.
	for i, c := range cm.Constants {
		switch c.Kind {
		case bytecode.ConstInteger:
			consts[i] = value.Int(c.Integer)
		case bytecode.ConstFloat:
			consts[i] = value.Float(c.Float)
		case bytecode.ConstString:
			consts[i] = value.Str(c.String)
		case bytecode.ConstCodeObject:
			co := &value.CodeObject{
				Name:          c.Code.Name,
				RequiredArgc:  c.Code.RequiredArgc,
				DefaultArgc:   c.Code.DefaultArgc,
				Variadic:      c.Code.Variadic,
				FrameSize:     c.Code.FrameSize,
				SourcePointer: c.Code.SourcePointer,
				LineTable:     c.Code.LineTable,
			}
			codeObjs[i] = co
			consts[i] = co
		default:
			return nil, &Error{Path: cm.Path, Err: fmt.Errorf("unknown constant kind %d at index %d", c.Kind, i)}
		}
	}

	// Pass 2: decode and rewrite each code object's body.
	decode := func(compiled *bytecode.CompiledCodeObject, dst *value.CodeObject) error {
		insts, err := bytecode.DecodeAll(compiled.Body)
		if err != nil {
			return err
		}
		if err := rewriteAttributeOps(insts, consts, syms); err != nil {
			return err
		}
		dst.Body = insts
		dst.AttrCaches = make([]value.AttrCache, len(insts))
		dst.CaseCaches = make([]value.CaseCache, len(insts))
		return nil
	}

	for i, c := range cm.Constants {
		if c.Kind != bytecode.ConstCodeObject {
			continue
		}
		if err := decode(c.Code, codeObjs[i]); err != nil {
			return nil, &Error{Path: cm.Path, Err: err}
		}
	}

	entry := &value.CodeObject{
		Name:          cm.Entry.Name,
		RequiredArgc:  cm.Entry.RequiredArgc,
		DefaultArgc:   cm.Entry.DefaultArgc,
		Variadic:      cm.Entry.Variadic,
		FrameSize:     cm.Entry.FrameSize,
		SourcePointer: cm.Entry.SourcePointer,
		LineTable:     cm.Entry.LineTable,
	}
	if err := decode(cm.Entry, entry); err != nil {
		return nil, &Error{Path: cm.Path, Err: err}
	}

	mod.Consts = consts
	mod.Entry = entry
	return mod, nil
}

// rewriteAttributeOps implements spec.md §4.4 step 2: every
// ReadAttribute(const-idx)/WriteAttribute(const-idx) is lowered in place to
// ReadAttributeSymbol(symbol)/WriteAttributeSymbol(symbol) by interning the
// referenced string constant. A ReadAttributeSymbol/WriteAttributeSymbol
// already present in the input is rejected: those are VM-internal only.
func rewriteAttributeOps(insts []bytecode.Instruction, consts []value.Value, syms *symbol.Interner) error {
	for i := range insts {
		inst := &insts[i]
		switch inst.Op {
		case bytecode.ReadAttributeSymbol, bytecode.WriteAttributeSymbol:
			return fmt.Errorf("%s at offset %d is VM-internal and may not appear in compiled input", inst.Op, inst.Offset)
		case bytecode.ReadAttribute, bytecode.WriteAttribute:
			idx := inst.Operands[0]
			if int(idx) >= len(consts) {
				return fmt.Errorf("attribute constant index %d out of range at offset %d", idx, inst.Offset)
			}
			name, ok := consts[idx].(value.Str)
			if !ok {
				return fmt.Errorf("attribute constant %d is not a string at offset %d", idx, inst.Offset)
			}
			sym, err := syms.Intern(string(name))
			if err != nil {
				return err
			}
			if inst.Op == bytecode.ReadAttribute {
				inst.Op = bytecode.ReadAttributeSymbol
			} else {
				inst.Op = bytecode.WriteAttributeSymbol
			}
			inst.Operands[0] = uint32(sym)
		}
	}
	return nil
}
