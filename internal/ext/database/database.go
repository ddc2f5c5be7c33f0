// Package database is a native extension (spec.md §6.3) wiring the SQL
// drivers pulled in by the teacher's own database security module
// (internal/database/database.go's Connect/ExecuteQuery/CloseConnection)
// behind database/sql: a single Db struct type with query/exec/close bound
// methods, plus a module-level connect function that builds instances.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"haxby/internal/dylib"
	"haxby/internal/value"
)

const connAttr = "__conn"

// Inject is this extension's dylib_haxby_inject entry point: it builds the
// Db struct type, registers it as "Db" in mod, and exposes a "connect"
// module-level function that constructs instances.
func Inject(host dylib.Host, mod *value.Module) dylib.LoadResult {
	reg := host.Shapes()
	syms := host.Interner()
	b := host.Builtins()

	connSym, err := syms.Intern(connAttr)
	if err != nil {
		return dylib.Fail("database: %v", err)
	}

	dbStruct := &value.Struct{Name: "Db", Members: value.Box{Shape: reg.Empty()}}

	connOf := func(obj *value.Object) (*sql.DB, value.Value) {
		raw, ok := obj.Attrs.Get(connSym)
		if !ok {
			return nil, b.NewRuntimeError("OperationFailed", value.Str("connection is closed"))
		}
		op, ok := raw.(*value.Opaque)
		if !ok {
			return nil, b.NewRuntimeError("OperationFailed", value.Str("corrupt connection handle"))
		}
		return op.Payload.(*sql.DB), nil
	}

	bindMethod := func(name string, required int, fn func(conn *sql.DB, args []value.Value) (value.Value, value.Value, error)) error {
		sym, ierr := syms.Intern(name)
		if ierr != nil {
			return ierr
		}
		dbStruct.Members.Set(reg, sym, &value.NativeFunction{
			Name:         "Db." + name,
			RequiredArgc: required,
			Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
				obj, ok := recv.(*value.Object)
				if !ok || obj.Struct != dbStruct {
					return nil, b.NewRuntimeError("UnexpectedType", nil), nil
				}
				conn, thrown := connOf(obj)
				if thrown != nil {
					return nil, thrown, nil
				}
				return fn(conn, args)
			},
		})
		return nil
	}

	if err := bindMethod("close", 0, func(conn *sql.DB, args []value.Value) (value.Value, value.Value, error) {
		if cerr := conn.Close(); cerr != nil {
			return nil, b.NewRuntimeError("OperationFailed", value.Str(cerr.Error())), nil
		}
		return b.UnitValue, nil, nil
	}); err != nil {
		return dylib.Fail("database: %v", err)
	}

	if err := bindMethod("exec", 1, func(conn *sql.DB, args []value.Value) (value.Value, value.Value, error) {
		stmt, ok := args[0].(value.Str)
		if !ok {
			return nil, b.NewRuntimeError("UnexpectedType", nil), nil
		}
		result, eerr := conn.Exec(string(stmt))
		if eerr != nil {
			return nil, b.NewRuntimeError("OperationFailed", value.Str(eerr.Error())), nil
		}
		affected, _ := result.RowsAffected()
		return value.Int(affected), nil, nil
	}); err != nil {
		return dylib.Fail("database: %v", err)
	}

	if err := bindMethod("query", 1, func(conn *sql.DB, args []value.Value) (value.Value, value.Value, error) {
		q, ok := args[0].(value.Str)
		if !ok {
			return nil, b.NewRuntimeError("UnexpectedType", nil), nil
		}
		rows, qerr := conn.Query(string(q))
		if qerr != nil {
			return nil, b.NewRuntimeError("OperationFailed", value.Str(qerr.Error())), nil
		}
		defer rows.Close()
		cols, cerr := rows.Columns()
		if cerr != nil {
			return nil, b.NewRuntimeError("OperationFailed", value.Str(cerr.Error())), nil
		}
		out := &value.List{}
		for rows.Next() {
			raw := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for i := range raw {
				ptrs[i] = &raw[i]
			}
			if serr := rows.Scan(ptrs...); serr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(serr.Error())), nil
			}
			row := &value.List{}
			for _, v := range raw {
				row.Items = append(row.Items, toValue(v))
			}
			out.Items = append(out.Items, row)
		}
		return out, nil, nil
	}); err != nil {
		return dylib.Fail("database: %v", err)
	}

	dbType := &value.TypeValue{TVKind: value.TVStruct, Struct: dbStruct, Name: "Db"}

	connect := &value.NativeFunction{
		Name:         "connect",
		RequiredArgc: 2,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			driver, ok1 := args[0].(value.Str)
			dsn, ok2 := args[1].(value.Str)
			if !ok1 || !ok2 {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			conn, derr := sql.Open(string(driver), string(dsn))
			if derr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(derr.Error())), nil
			}
			if perr := conn.Ping(); perr != nil {
				conn.Close()
				return nil, b.NewRuntimeError("OperationFailed", value.Str(perr.Error())), nil
			}
			obj := &value.Object{Struct: dbStruct, Attrs: value.Box{Shape: reg.Empty()}}
			obj.Attrs.Set(reg, connSym, &value.Opaque{TypeName: "sql.DB", Payload: conn})
			return obj, nil, nil
		},
	}

	dbSym, err := syms.Intern("Db")
	if err != nil {
		return dylib.Fail("database: %v", err)
	}
	connectNameSym, err := syms.Intern("connect")
	if err != nil {
		return dylib.Fail("database: %v", err)
	}
	if err := mod.Assign(dbSym, dbType); err != nil {
		return dylib.Fail("database: %v", err)
	}
	if err := mod.Assign(connectNameSym, connect); err != nil {
		return dylib.Fail("database: %v", err)
	}
	return dylib.Ok()
}

// toValue converts a database/sql scan result to a runtime value: the
// driver surfaces TEXT/BLOB columns as []byte regardless of backend, so
// that's the one conversion every row needs (mirrors the teacher's
// ExecuteQuery doing the same []byte-to-string coercion by hand).
func toValue(v interface{}) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Str("")
	case []byte:
		return value.Str(string(x))
	case string:
		return value.Str(x)
	case int64:
		return value.Int(x)
	case float64:
		return value.Float(x)
	case bool:
		return value.Bool(x)
	default:
		return value.Str(fmt.Sprintf("%v", x))
	}
}
