package vm

import (
	"database/sql"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Database primitives
//
// A narrow SQL surface over database/sql; the sqlite driver is
// registered by store.go. Acquired connections are released on every
// exit path, VM errors included.
// ---------------------------------------------------------------------------

// DatabaseHandle is the opaque payload of a Database value.
type DatabaseHandle struct {
	db     *sql.DB
	path   string
	closed bool
}

func databaseHandleOf(v value.Value) (*DatabaseHandle, error) {
	h, ok := v.Handle.(*DatabaseHandle)
	if !ok || h == nil || h.closed {
		return nil, newError(TypeMismatch, "not an open database")
	}
	return h, nil
}

func registerDatabasePrimitives(r *Registry) {
	r.Register(&Builtin{
		Name: "open", Arity: 1,
		ArgNames: []string{"path"},
		ArgKinds: [][]value.Kind{kinds(value.String, value.Literal)},
		Returns:  kinds(value.Database),
		Attrs: map[string]value.AttrSpec{
			"database": {Kinds: kinds(value.Logical), Description: "open a database connection"},
			"sqlite":   {Kinds: kinds(value.Logical), Description: "use the sqlite engine"},
		},
		Description: "open the given database",
		Example:     `db: open.database.sqlite "app.db"`,
		Fn: func(vm *VM) error {
			pathV, err := vm.pop()
			if err != nil {
				return err
			}
			db, oerr := sql.Open("sqlite", pathV.Str)
			if oerr != nil {
				return newError(PackageError, "cannot open database: %v", oerr)
			}
			if _, perr := db.Exec("PRAGMA busy_timeout = 5000"); perr != nil {
				db.Close()
				return newError(PackageError, "cannot configure database: %v", perr)
			}
			return vm.push(value.NewDatabase(&DatabaseHandle{db: db, path: pathV.Str}, pathV.Str))
		},
	})

	r.Register(&Builtin{
		Name: "query", Arity: 2,
		ArgNames: []string{"database", "statement"},
		ArgKinds: [][]value.Kind{kinds(value.Database), kinds(value.String)},
		Returns:  kinds(value.Block),
		Description: "run a query and return the result rows as dictionaries",
		Example:     `query db "SELECT * FROM users"`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			h, herr := databaseHandleOf(args[0])
			if herr != nil {
				return herr
			}
			rows, qerr := h.db.Query(args[1].Str)
			if qerr != nil {
				return newError(PackageError, "query failed: %v", qerr)
			}
			defer rows.Close()

			cols, cerr := rows.Columns()
			if cerr != nil {
				return newError(PackageError, "query failed: %v", cerr)
			}
			var out []value.Value
			for rows.Next() {
				cells := make([]any, len(cols))
				ptrs := make([]any, len(cols))
				for i := range cells {
					ptrs[i] = &cells[i]
				}
				if serr := rows.Scan(ptrs...); serr != nil {
					return newError(PackageError, "row scan failed: %v", serr)
				}
				d := value.NewDict()
				for i, c := range cols {
					d.Set(c, sqlValue(cells[i]))
				}
				out = append(out, value.NewDictionary(d))
			}
			if rerr := rows.Err(); rerr != nil {
				return newError(PackageError, "query failed: %v", rerr)
			}
			return vm.push(value.NewBlockFrom(out))
		},
	})

	r.Register(&Builtin{
		Name: "exec", Arity: 2,
		ArgNames: []string{"database", "statement"},
		ArgKinds: [][]value.Kind{kinds(value.Database), kinds(value.String)},
		Returns:  kinds(value.Integer),
		Description: "run a statement and return the number of affected rows",
		Example:     `exec db "DELETE FROM users WHERE age < 18"`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			h, herr := databaseHandleOf(args[0])
			if herr != nil {
				return herr
			}
			res, xerr := h.db.Exec(args[1].Str)
			if xerr != nil {
				return newError(PackageError, "exec failed: %v", xerr)
			}
			n, _ := res.RowsAffected()
			return vm.push(value.NewInteger(n))
		},
	})

	r.Register(&Builtin{
		Name: "close", Arity: 1,
		ArgNames: []string{"handle"},
		ArgKinds: [][]value.Kind{kinds(value.Database, value.Store)},
		Description: "close the given database or store",
		Example:     `close db`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			if v.Kind == value.Store {
				h, herr := storeHandleOf(v)
				if herr != nil {
					return herr
				}
				if cerr := h.Close(); cerr != nil {
					return newError(PackageError, "cannot close store: %v", cerr)
				}
				return nil
			}
			h, herr := databaseHandleOf(v)
			if herr != nil {
				return herr
			}
			h.closed = true
			if cerr := h.db.Close(); cerr != nil {
				return newError(PackageError, "cannot close database: %v", cerr)
			}
			return nil
		},
	})
}

// sqlValue maps a database cell onto the value model.
func sqlValue(cell any) value.Value {
	switch c := cell.(type) {
	case nil:
		return value.NullV
	case int64:
		return value.NewInteger(c)
	case float64:
		return value.NewFloating(c)
	case bool:
		return value.NewLogical(c)
	case []byte:
		return value.NewString(string(c))
	case string:
		return value.NewString(c)
	default:
		return value.NewString(sqlText(c))
	}
}

func sqlText(c any) string {
	type stringer interface{ String() string }
	if s, ok := c.(stringer); ok {
		return s.String()
	}
	return ""
}
