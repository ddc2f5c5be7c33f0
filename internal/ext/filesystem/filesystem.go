// Package filesystem is a native extension (spec.md §6.3) grounded on the
// teacher's internal/filesystem/filesystem.go: file I/O over os/io/
// path/filepath, with github.com/dustin/go-humanize formatting a
// human-readable size on stat results (the teacher's own CreateBaseline
// walks os.FileInfo the same way, without the humanize formatting this
// module adds).
package filesystem

import (
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"haxby/internal/builtins"
	"haxby/internal/dylib"
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// Inject binds a stateless "Fs" struct exposing read/write/list/stat to
// mod.
func Inject(host dylib.Host, mod *value.Module) dylib.LoadResult {
	reg := host.Shapes()
	syms := host.Interner()
	b := host.Builtins()

	fsType, err := buildFsType(syms, reg, b)
	if err != nil {
		return dylib.Fail("filesystem: %v", err)
	}
	fsSym, ierr := syms.Intern("Fs")
	if ierr != nil {
		return dylib.Fail("filesystem: %v", ierr)
	}
	if aerr := mod.Assign(fsSym, fsType); aerr != nil {
		return dylib.Fail("filesystem: %v", aerr)
	}
	return dylib.Ok()
}

func buildFsType(syms *symbol.Interner, reg *shape.Registry, b *builtins.Catalogue) (*value.TypeValue, error) {
	st := &value.Struct{Name: "Fs", Members: value.Box{Shape: reg.Empty()}}

	st.Members.Set(reg, mustSym(syms, "read"), &value.NativeFunction{
		Name: "Fs.read", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			path, ok := args[0].(value.Str)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			data, rerr := os.ReadFile(string(path))
			if rerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(rerr.Error())), nil
			}
			return value.Str(string(data)), nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "write"), &value.NativeFunction{
		Name: "Fs.write", RequiredArgc: 2,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			path, ok1 := args[0].(value.Str)
			content, ok2 := args[1].(value.Str)
			if !ok1 || !ok2 {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			if werr := os.WriteFile(string(path), []byte(content), 0o644); werr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(werr.Error())), nil
			}
			return b.UnitValue, nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "list"), &value.NativeFunction{
		Name: "Fs.list", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			path, ok := args[0].(value.Str)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			entries, rerr := os.ReadDir(string(path))
			if rerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(rerr.Error())), nil
			}
			out := &value.List{}
			for _, e := range entries {
				out.Items = append(out.Items, value.Str(e.Name()))
			}
			return out, nil, nil
		},
	})

	statStruct := &value.Struct{Name: "FileStat"}
	st.Members.Set(reg, mustSym(syms, "stat"), &value.NativeFunction{
		Name: "Fs.stat", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			path, ok := args[0].(value.Str)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			info, serr := os.Stat(string(path))
			if serr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(serr.Error())), nil
			}
			result := &value.Object{Struct: statStruct, Attrs: value.Box{Shape: reg.Empty()}}
			result.Attrs.Set(reg, mustSym(syms, "size"), value.Int(info.Size()))
			result.Attrs.Set(reg, mustSym(syms, "human_size"), value.Str(humanize.Bytes(uint64(info.Size()))))
			result.Attrs.Set(reg, mustSym(syms, "is_dir"), value.Bool(info.IsDir()))
			result.Attrs.Set(reg, mustSym(syms, "name"), value.Str(filepath.Base(string(path))))
			return result, nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "copy"), &value.NativeFunction{
		Name: "Fs.copy", RequiredArgc: 2,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			src, ok1 := args[0].(value.Str)
			dst, ok2 := args[1].(value.Str)
			if !ok1 || !ok2 {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			in, oerr := os.Open(string(src))
			if oerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(oerr.Error())), nil
			}
			defer in.Close()
			out, cerr := os.Create(string(dst))
			if cerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(cerr.Error())), nil
			}
			defer out.Close()
			n, werr := io.Copy(out, in)
			if werr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(werr.Error())), nil
			}
			return value.Int(n), nil, nil
		},
	})

	return &value.TypeValue{TVKind: value.TVStruct, Struct: st, Name: "Fs"}, nil
}

func mustSym(syms *symbol.Interner, name string) symbol.Symbol {
	s, err := syms.Intern(name)
	if err != nil {
		panic(err)
	}
	return s
}
