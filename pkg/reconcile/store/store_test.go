package store_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jamesainslie/reconcile/pkg/reconcile/store"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

func digestOf(b byte) string {
	return strings.Repeat(string([]byte{"0123456789abcdef"[b&0xf]}), 64)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGet(t *testing.T) {
	s := openStore(t)

	rec := types.FileRecord{
		Tree:   types.TreeA,
		Path:   "docs/readme.txt",
		Size:   1024,
		Digest: digestOf(1),
		Mtime:  123456789,
	}
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(types.TreeA, "docs/readme.txt")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != rec {
		t.Errorf("Get = %+v, want %+v", got, rec)
	}

	// Same path in the other tree is a different record.
	if _, err := s.Get(types.TreeB, "docs/readme.txt"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(other tree) error = %v, want ErrNotFound", err)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(types.TreeA, "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestStorePutOverwriteUpdatesIndex(t *testing.T) {
	s := openStore(t)

	rec := types.FileRecord{Tree: types.TreeA, Path: "x.bin", Size: 10, Digest: digestOf(1), Mtime: 1}
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Overwrite with new content.
	rec.Digest = digestOf(2)
	rec.Mtime = 2
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}

	// The stale digest must no longer resolve to the record.
	old, err := s.LookupByHash(digestOf(1))
	if err != nil {
		t.Fatalf("LookupByHash failed: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("stale digest still indexed: %+v", old)
	}

	cur, err := s.LookupByHash(digestOf(2))
	if err != nil {
		t.Fatalf("LookupByHash failed: %v", err)
	}
	if len(cur) != 1 || cur[0].Path != "x.bin" {
		t.Errorf("LookupByHash = %+v, want the overwritten record", cur)
	}
}

func TestStoreGetAllSortedByPath(t *testing.T) {
	s := openStore(t)

	for _, p := range []string{"zed.txt", "a/nested.txt", "middle.txt"} {
		rec := types.FileRecord{Tree: types.TreeB, Path: p, Size: 1, Digest: digestOf(3), Mtime: 1}
		if err := s.Put(rec); err != nil {
			t.Fatalf("Put %s failed: %v", p, err)
		}
	}
	// A record in the other tree must not leak into the scan.
	if err := s.Put(types.FileRecord{Tree: types.TreeA, Path: "only-a.txt", Size: 1, Mtime: 1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	records, err := s.GetAll(types.TreeB)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("GetAll returned %d records, want 3", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i-1].Path >= records[i].Path {
			t.Errorf("records not sorted: %q before %q", records[i-1].Path, records[i].Path)
		}
	}
}

func TestStoreLookupByHashAcrossTrees(t *testing.T) {
	s := openStore(t)

	shared := digestOf(7)
	records := []types.FileRecord{
		{Tree: types.TreeB, Path: "copy.bin", Size: 5, Digest: shared, Mtime: 1},
		{Tree: types.TreeA, Path: "orig.bin", Size: 5, Digest: shared, Mtime: 1},
		{Tree: types.TreeA, Path: "other.bin", Size: 9, Digest: digestOf(8), Mtime: 1},
	}
	for _, rec := range records {
		if err := s.Put(rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	got, err := s.LookupByHash(shared)
	if err != nil {
		t.Fatalf("LookupByHash failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LookupByHash returned %d records, want 2", len(got))
	}
	// Tree A sorts before tree B.
	if got[0].Tree != types.TreeA || got[1].Tree != types.TreeB {
		t.Errorf("LookupByHash order = %v/%v, want a then b", got[0].Tree, got[1].Tree)
	}
}

func TestStoreLookupByHashPrefix(t *testing.T) {
	s := openStore(t)

	if err := s.Put(types.FileRecord{Tree: types.TreeA, Path: "p.bin", Size: 1, Digest: digestOf(4), Mtime: 1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.LookupByHash(digestOf(4)[:12])
	if err != nil {
		t.Fatalf("LookupByHash failed: %v", err)
	}
	if len(got) != 1 || got[0].Path != "p.bin" {
		t.Errorf("prefix lookup = %+v, want p.bin", got)
	}
}

func TestStoreDeletePath(t *testing.T) {
	s := openStore(t)

	rec := types.FileRecord{Tree: types.TreeA, Path: "gone.txt", Size: 1, Digest: digestOf(5), Mtime: 1}
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.DeletePath(types.TreeA, "gone.txt"); err != nil {
		t.Fatalf("DeletePath failed: %v", err)
	}

	if _, err := s.Get(types.TreeA, "gone.txt"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
	left, err := s.LookupByHash(digestOf(5))
	if err != nil {
		t.Fatalf("LookupByHash failed: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("digest index not cleaned: %+v", left)
	}

	// Deleting again is a no-op.
	if err := s.DeletePath(types.TreeA, "gone.txt"); err != nil {
		t.Errorf("DeletePath of absent record failed: %v", err)
	}
}

func TestStoreDropTree(t *testing.T) {
	s := openStore(t)

	for i, p := range []string{"one.txt", "two.txt", "three.txt"} {
		rec := types.FileRecord{Tree: types.TreeA, Path: p, Size: int64(i), Digest: digestOf(byte(i)), Mtime: 1}
		if err := s.Put(rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	keep := types.FileRecord{Tree: types.TreeB, Path: "keep.txt", Size: 1, Digest: digestOf(9), Mtime: 1}
	if err := s.Put(keep); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.DropTree(types.TreeA); err != nil {
		t.Fatalf("DropTree failed: %v", err)
	}

	count, err := s.Count(types.TreeA)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count(a) = %d after drop, want 0", count)
	}

	count, err = s.Count(types.TreeB)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count(b) = %d, want 1", count)
	}

	// Index entries of the dropped tree are gone too.
	got, err := s.LookupByHash(digestOf(0))
	if err != nil {
		t.Fatalf("LookupByHash failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("dropped tree still indexed: %+v", got)
	}
}

func TestStoreUnhashedRecordNotIndexed(t *testing.T) {
	s := openStore(t)

	rec := types.FileRecord{Tree: types.TreeA, Path: "gated.bin", Size: 99, Mtime: 1}
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(types.TreeA, "gated.bin")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Hashed() {
		t.Error("record should round-trip unhashed")
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec := types.FileRecord{Tree: types.TreeA, Path: "stable.txt", Size: 7, Digest: digestOf(6), Mtime: 42}
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = store.Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.Get(types.TreeA, "stable.txt")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got != rec {
		t.Errorf("Get after reopen = %+v, want %+v", got, rec)
	}
}
