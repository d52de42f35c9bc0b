// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package cas

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "store"), Options{})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestStoreDirectoryStructure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	if _, err := NewStore(root, Options{}); err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	for _, dir := range []string{objectDir, tmpDir} {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil {
			t.Errorf("directory %s does not exist: %v", dir, err)
		} else if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	content := []byte("Hello, KGEN world!")
	hash, err := store.Put(content)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, err := store.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(retrieved, content) {
		t.Fatalf("Get returned %q, want %q", retrieved, content)
	}
}

func TestPutEmptyContent(t *testing.T) {
	store := newTestStore(t)

	hash, err := store.Put(nil)
	if err != nil {
		t.Fatalf("Put(empty) failed: %v", err)
	}
	retrieved, err := store.Get(hash)
	if err != nil {
		t.Fatalf("Get(empty) failed: %v", err)
	}
	if len(retrieved) != 0 {
		t.Fatalf("empty object came back with %d bytes", len(retrieved))
	}
}

func TestPutDeduplicates(t *testing.T) {
	store := newTestStore(t)

	content := []byte("Duplicate test content")
	first, err := store.Put(content)
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Put(content)
	if err != nil {
		t.Fatalf("second Put of identical content failed: %v", err)
	}
	if first != second {
		t.Fatalf("dedup returned different hashes: %s vs %s", first, second)
	}

	var count int
	for hash, err := range store.List() {
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if hash != first {
			t.Errorf("unexpected object %s in store", hash)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("store holds %d objects after duplicate Put, want 1", count)
	}
}

func TestGetUnknownHash(t *testing.T) {
	store := newTestStore(t)

	var notFound *NotFoundError
	_, err := store.Get(Digest([]byte("never stored")))
	if !errors.As(err, &notFound) {
		t.Fatalf("Get of unknown hash returned %v, want NotFoundError", err)
	}
}

func TestGetDetectsTampering(t *testing.T) {
	store := newTestStore(t)

	hash, err := store.Put([]byte("bytes that will be corrupted in place"))
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the stored payload (past the header so the file still
	// parses and the digest comparison is what fails).
	path := store.objectPath(hash)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	var integrity *IntegrityError
	data, err := store.Get(hash)
	if !errors.As(err, &integrity) {
		t.Fatalf("Get of corrupted object returned %v, want IntegrityError", err)
	}
	if data != nil {
		t.Fatal("corrupted bytes were returned to the caller")
	}
	if integrity.Hash != hash {
		t.Errorf("IntegrityError.Hash = %s, want %s", integrity.Hash, hash)
	}
	if integrity.Path == "" {
		t.Error("IntegrityError carries no path context")
	}
}

func TestGetDetectsTruncation(t *testing.T) {
	store := newTestStore(t)

	hash, err := store.Put([]byte("object that will be truncated"))
	if err != nil {
		t.Fatal(err)
	}

	path := store.objectPath(hash)
	if err := os.WriteFile(path, []byte("KG"), 0o644); err != nil {
		t.Fatal(err)
	}

	var integrity *IntegrityError
	if _, err := store.Get(hash); !errors.As(err, &integrity) {
		t.Fatalf("Get of truncated object returned %v, want IntegrityError", err)
	}
}

func TestRemove(t *testing.T) {
	store := newTestStore(t)

	hash, err := store.Put([]byte("short-lived object"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(hash); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var notFound *NotFoundError
	if _, err := store.Get(hash); !errors.As(err, &notFound) {
		t.Fatalf("Get after Remove returned %v, want NotFoundError", err)
	}
	if err := store.Remove(hash); !errors.As(err, &notFound) {
		t.Fatalf("second Remove returned %v, want NotFoundError", err)
	}
}

func TestStat(t *testing.T) {
	forced := CompressionZstd
	store, err := NewStore(filepath.Join(t.TempDir(), "store"), Options{Compression: &forced})
	if err != nil {
		t.Fatal(err)
	}

	content := []byte("stat me stat me stat me stat me stat me stat me")
	hash, err := store.Put(content)
	if err != nil {
		t.Fatal(err)
	}

	info, err := store.Stat(hash)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("Stat size = %d, want %d", info.Size, len(content))
	}
	if info.Compression != CompressionZstd {
		t.Errorf("Stat compression = %s, want zstd", info.Compression)
	}
	if info.Sealed {
		t.Error("plaintext store reported a sealed object")
	}

	var notFound *NotFoundError
	if _, err := store.Stat(Digest([]byte("missing"))); !errors.As(err, &notFound) {
		t.Fatalf("Stat of unknown hash returned %v, want NotFoundError", err)
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	store := newTestStore(t)

	hash, err := store.Put([]byte("the only real object"))
	if err != nil {
		t.Fatal(err)
	}

	// Drop a stray file into a shard directory.
	stray := filepath.Join(store.root, objectDir, "ab")
	if err := os.MkdirAll(filepath.Join(stray, "cd"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stray, "cd", "README"), []byte("not an object"), 0o644); err != nil {
		t.Fatal(err)
	}

	var hashes []Hash
	for h, err := range store.List() {
		if err != nil {
			t.Fatal(err)
		}
		hashes = append(hashes, h)
	}
	if len(hashes) != 1 || hashes[0] != hash {
		t.Fatalf("List returned %v, want exactly %s", hashes, hash)
	}
}

func TestConcurrentIdenticalPuts(t *testing.T) {
	store := newTestStore(t)
	content := []byte("raced by many writers")

	const writers = 16
	hashes := make([]Hash, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hashes[i], errs[i] = store.Put(content)
		}()
	}
	wg.Wait()

	want := Digest(content)
	for i := range writers {
		if errs[i] != nil {
			t.Fatalf("writer %d failed: %v", i, errs[i])
		}
		if hashes[i] != want {
			t.Fatalf("writer %d got hash %s, want %s", i, hashes[i], want)
		}
	}

	retrieved, err := store.Get(want)
	if err != nil {
		t.Fatalf("Get after concurrent Puts failed: %v", err)
	}
	if !bytes.Equal(retrieved, content) {
		t.Fatal("content corrupted by concurrent Puts")
	}
}

func TestConcurrentDistinctPuts(t *testing.T) {
	store := newTestStore(t)

	const writers = 32
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content := fmt.Appendf(nil, "distinct object %d", i)
			hash, err := store.Put(content)
			if err != nil {
				t.Errorf("writer %d: %v", i, err)
				return
			}
			got, err := store.Get(hash)
			if err != nil {
				t.Errorf("reader %d: %v", i, err)
				return
			}
			if !bytes.Equal(got, content) {
				t.Errorf("writer %d read back wrong content", i)
			}
		}()
	}
	wg.Wait()

	var count int
	for _, err := range store.List() {
		if err != nil {
			t.Fatal(err)
		}
		count++
	}
	if count != writers {
		t.Fatalf("store holds %d objects, want %d", count, writers)
	}
}

func TestListDuringConcurrentStores(t *testing.T) {
	store := newTestStore(t)
	for i := range 10 {
		if _, err := store.Put(fmt.Appendf(nil, "seed %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 50 {
			store.Put(fmt.Appendf(nil, "concurrent %d", i))
		}
	}()

	// The walk must not fail or crash while stores land.
	var seen int
	for _, err := range store.List() {
		if err != nil {
			t.Fatalf("List failed during concurrent stores: %v", err)
		}
		seen++
	}
	if seen < 10 {
		t.Fatalf("List saw %d objects, want at least the 10 pre-seeded", seen)
	}
	<-done
}

func TestNoPartialObjectsLeftBehind(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Put([]byte("clean write")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(store.root, tmpDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("%d temp files left after successful Put", len(entries))
	}
}
