package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestKey(t *testing.T) {
	if got := Key("orders", "selection"); got != "gridkit:orders:selection" {
		t.Errorf("Key = %q", got)
	}
}

// roundtrip exercises the KV contract shared by both backends.
func roundtrip(t *testing.T, kv KV) {
	t.Helper()

	if _, ok, err := kv.Get("absent"); err != nil || ok {
		t.Errorf("Get(absent) = ok=%v err=%v, want miss", ok, err)
	}

	if err := kv.Set("k1", `["r1","r2"]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := kv.Get("k1")
	if err != nil || !ok || v != `["r1","r2"]` {
		t.Errorf("Get(k1) = %q, %v, %v", v, ok, err)
	}

	if err := kv.Set("k1", "replaced"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, _, _ = kv.Get("k1")
	if v != "replaced" {
		t.Errorf("overwrite failed, got %q", v)
	}

	if err := kv.Delete("k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := kv.Get("k1"); ok {
		t.Error("key present after Delete")
	}
	if err := kv.Delete("k1"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestMemoryRoundtrip(t *testing.T) {
	kv := NewMemory()
	defer kv.Close()
	roundtrip(t, kv)
}

func TestSQLiteRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	kv, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer kv.Close()
	roundtrip(t, kv)
}

func TestSQLitePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	kv, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(Key("t1", "selection"), `["a"]`); err != nil {
		t.Fatal(err)
	}
	kv.Close()

	kv2, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer kv2.Close()

	v, ok, err := kv2.Get(Key("t1", "selection"))
	if err != nil || !ok || v != `["a"]` {
		t.Errorf("reopened Get = %q, %v, %v", v, ok, err)
	}
}
