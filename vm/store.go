package vm

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/moeinimoein/arturo/parser"
	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Store: SQLite-backed persistent dictionaries
//
// A store behaves like a dictionary whose entries survive the process:
// get/set on a Store value read and write rows. Values round-trip
// through their source form.
// ---------------------------------------------------------------------------

var storeLog = commonlog.GetLogger("arturo.store")

// StoreHandle is the opaque payload of a Store value.
type StoreHandle struct {
	db     *sql.DB
	path   string
	closed bool
}

// OpenStore opens (creating if needed) a persistent store at path.
func OpenStore(path string) (*StoreHandle, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	storeLog.Debugf("opened store at %s", path)
	return &StoreHandle{db: db, path: path}, nil
}

// Close releases the underlying database.
func (s *StoreHandle) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	storeLog.Debugf("closing store at %s", s.path)
	return s.db.Close()
}

// Get reads one entry; the second result is false when absent.
func (s *StoreHandle) Get(key string) (string, bool, error) {
	if s.closed {
		return "", false, fmt.Errorf("store is closed")
	}
	var text string
	err := s.db.QueryRow("SELECT value FROM store WHERE key = ?", key).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Set writes one entry.
func (s *StoreHandle) Set(key, text string) error {
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	_, err := s.db.Exec(
		"INSERT INTO store (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, text)
	return err
}

// Delete removes one entry.
func (s *StoreHandle) Delete(key string) error {
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	_, err := s.db.Exec("DELETE FROM store WHERE key = ?", key)
	return err
}

// Keys lists every key in the store.
func (s *StoreHandle) Keys() ([]string, error) {
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	rows, err := s.db.Query("SELECT key FROM store ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ---------------------------------------------------------------------------
// VM integration
// ---------------------------------------------------------------------------

func storeHandleOf(v value.Value) (*StoreHandle, error) {
	h, ok := v.Handle.(*StoreHandle)
	if !ok || h == nil {
		return nil, newError(TypeMismatch, "not an open store")
	}
	return h, nil
}

func (vm *VM) storeGet(store value.Value, key string) (value.Value, error) {
	h, err := storeHandleOf(store)
	if err != nil {
		return value.NullV, err
	}
	text, found, err := h.Get(key)
	if err != nil {
		return value.NullV, newError(PackageError, "store read failed: %v", err)
	}
	if !found {
		return value.NullV, nil
	}
	v, perr := parser.ParseOne(text)
	if perr != nil {
		return value.NullV, newError(PackageError, "store entry corrupt: %v", perr)
	}
	return v, nil
}

func (vm *VM) storeSet(store value.Value, key string, v value.Value) error {
	h, err := storeHandleOf(store)
	if err != nil {
		return err
	}
	if err := h.Set(key, value.Codify(v, false, false, true)); err != nil {
		return newError(PackageError, "store write failed: %v", err)
	}
	return nil
}

func registerStorePrimitives(r *Registry) {
	r.Register(&Builtin{
		Name: "store", Arity: 1,
		ArgNames: []string{"path"},
		ArgKinds: [][]value.Kind{kinds(value.String, value.Literal)},
		Returns:  kinds(value.Store),
		Description: "open a persistent store at the given path",
		Example:     `data: store "cache.db"`,
		Fn: func(vm *VM) error {
			pathV, err := vm.pop()
			if err != nil {
				return err
			}
			h, oerr := OpenStore(pathV.Str)
			if oerr != nil {
				return newError(PackageError, "cannot open store: %v", oerr)
			}
			return vm.push(value.NewStore(h, pathV.Str))
		},
	})

	r.Register(&Builtin{
		Name: "unstore", Arity: 1,
		ArgNames: []string{"store"},
		ArgKinds: [][]value.Kind{kinds(value.Store)},
		Description: "close the given store",
		Example:     `unstore data`,
		Fn: func(vm *VM) error {
			sv, err := vm.pop()
			if err != nil {
				return err
			}
			h, herr := storeHandleOf(sv)
			if herr != nil {
				return herr
			}
			if cerr := h.Close(); cerr != nil {
				return newError(PackageError, "cannot close store: %v", cerr)
			}
			return nil
		},
	})
}
