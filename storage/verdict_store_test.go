package storage

import (
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/dexverify/common"
)

func TestVerdictStore_BasicOperations(t *testing.T) {
	vs, err := NewVerdictStore("")
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer vs.Close()

	key := common.Blake2Hash([]byte{0x0e, 0x00})
	want := Verdict{Accepted: true, Insns: 1}

	if err := vs.Put(key, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := vs.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Expected verdict to be found")
	}
	want.Version = VerdictVersion
	if *got != want {
		t.Errorf("Get returned %+v, want %+v", *got, want)
	}

	// Test Get non-existent key
	_, found, err = vs.Get(common.Blake2Hash([]byte("other")))
	if err != nil {
		t.Fatalf("Get non-existent failed: %v", err)
	}
	if found {
		t.Error("Expected verdict not to be found")
	}

	if err := vs.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, found, err = vs.Get(key)
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if found {
		t.Error("Expected verdict to be deleted")
	}
}

func TestVerdictStore_StaleVersion(t *testing.T) {
	vs, err := NewVerdictStore("")
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer vs.Close()

	key := common.Blake2Hash([]byte("stale"))
	if err := vs.db.Put(verdictKey(key), []byte(`{"version":0,"accepted":true}`), nil); err != nil {
		t.Fatalf("raw put failed: %v", err)
	}
	_, found, err := vs.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("Expected stale verdict to be ignored")
	}

	if err := vs.db.Put(verdictKey(key), []byte(`{not json`), nil); err != nil {
		t.Fatalf("raw put failed: %v", err)
	}
	if _, _, err := vs.Get(key); err == nil {
		t.Error("Expected decode error")
	}
}

func TestVerdictStore_Persistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "verdicts")
	key := common.Blake2Hash([]byte{0x28, 0xf6})

	vs, err := NewVerdictStore(dir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := vs.Put(key, Verdict{Accepted: false, Code: "B4", Message: "invalid branch target"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := vs.Put(common.Blake2Hash([]byte{0x0e, 0x00}), Verdict{Accepted: true}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := vs.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	vs, err = NewVerdictStore(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer vs.Close()

	got, found, err := vs.Get(key)
	if err != nil || !found {
		t.Fatalf("Get after reopen: found=%v err=%v", found, err)
	}
	if got.Accepted || got.Code != "B4" {
		t.Errorf("unexpected verdict %+v", *got)
	}
	n, err := vs.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}
