package vm

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/moeinimoein/arturo/value"
)

func TestStorePersistsAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")

	machine, _ := newTestVM()
	src := fmt.Sprintf(`
		s: store "%s"
		set s 'answer 42
		set s 'who "deep thought"
		unstore s
	`, path)
	if err := machine.Run(src); err != nil {
		t.Fatalf("write run: %v", err)
	}

	reader, out := newTestVM()
	src = fmt.Sprintf(`
		s: store "%s"
		print get s 'answer
		print get s 'who
	`, path)
	if err := reader.Run(src); err != nil {
		t.Fatalf("read run: %v", err)
	}
	if out.String() != "42\ndeep thought\n" {
		t.Errorf("out = %q", out.String())
	}
}

func TestStoreValuesRoundTripStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.db")
	h, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer h.Close()

	blk := value.NewBlock(value.NewInteger(1), value.NewString("two"), value.TrueV)
	if err := h.Set("blk", value.Codify(blk, false, false, true)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	machine, _ := newTestVM()
	got, gerr := machine.storeGet(value.NewStore(h, path), "blk")
	if gerr != nil {
		t.Fatalf("storeGet: %v", gerr)
	}
	if !value.Equals(got, blk) {
		t.Errorf("roundtrip = %v, want %v", got, blk)
	}
}

func TestStoreMissingKeyIsNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	machine, _ := newTestVM()
	src := fmt.Sprintf(`s: store "%s" get s 'nothing`, path)
	if err := machine.Run(src); err != nil {
		t.Fatalf("run: %v", err)
	}
	top, _ := machine.TopValue()
	if !top.IsNull() {
		t.Errorf("missing key = %v, want null", top)
	}
}

func TestStoreKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")
	h, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer h.Close()
	_ = h.Set("b", "2")
	_ = h.Set("a", "1")
	keys, kerr := h.Keys()
	if kerr != nil {
		t.Fatalf("Keys: %v", kerr)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("keys = %v", keys)
	}
}

func TestDatabaseQueryAndExec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	machine, out := newTestVM()
	src := fmt.Sprintf(`
		db: open .database .sqlite "%s"
		exec db "CREATE TABLE users (name TEXT, age INTEGER)"
		exec db "INSERT INTO users VALUES ('John', 35)"
		rows: query db "SELECT name, age FROM users"
		loop rows 'row [ print get row "name" print get row "age" ]
		close db
	`, path)
	if err := machine.Run(src); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "John\n35\n" {
		t.Errorf("out = %q", out.String())
	}
}

func TestDatabaseClosedHandleRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.db")
	machine, _ := newTestVM()
	src := fmt.Sprintf(`
		db: open .database .sqlite "%s"
		close db
		query db "SELECT 1"
	`, path)
	err := machine.Run(src)
	if err == nil {
		t.Fatalf("query on a closed handle should fail")
	}
}
