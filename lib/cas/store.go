// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package cas

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
)

// Directory names within the store root.
const (
	objectDir = "objects"
	tmpDir    = "tmp"
)

// Object file header layout:
//
//	[Magic: 4 bytes "KGO1"] [Compression: 1 byte] [Flags: 1 byte] [Size: 8 bytes LE]
//
// followed by the payload (possibly compressed, possibly sealed).
// Size is the uncompressed plaintext length; the digest is always
// computed over those bytes, never the encoded payload.
const headerSize = 4 + 1 + 1 + 8

var objectMagic = [4]byte{'K', 'G', 'O', '1'}

// Object flags.
const flagSealed byte = 1 << 0

// Options configures a Store. The zero value is a plaintext store
// with probe-based compression selection.
type Options struct {
	// Compression forces a compression algorithm for all objects.
	// If nil, each object is probed and the best algorithm selected.
	Compression *CompressionTag

	// Sealer enables at-rest encryption. Objects written by a sealed
	// store can only be read back through a store configured with the
	// same master key.
	Sealer *Sealer

	// Logger receives operational messages. If nil, logging is
	// discarded.
	Logger *slog.Logger
}

// Store is an on-disk content-addressed object store. Objects are
// addressed by the BLAKE3 digest of their bytes and live at a path
// derived from the hash, so lookups never scan directories.
//
// Store is safe for concurrent use. Writers racing to store identical
// bytes converge on one object; writers storing different bytes never
// touch the same path.
type Store struct {
	root        string
	compression *CompressionTag
	sealer      *Sealer
	logger      *slog.Logger
}

// NewStore creates a Store rooted at the given directory, creating
// the directory structure if needed.
func NewStore(root string, options Options) (*Store, error) {
	for _, dir := range []string{
		root,
		filepath.Join(root, objectDir),
		filepath.Join(root, tmpDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		root:        root,
		compression: options.Compression,
		sealer:      options.Sealer,
		logger:      logger,
	}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Put stores data and returns its content hash. If an object with the
// same hash already exists, nothing is written and the existing hash
// is returned — deduplication is not an error. Concurrent callers
// storing identical bytes are safe: the write goes through a temp
// file and an atomic rename, and the losing writer's rename installs
// a byte-identical file.
func (s *Store) Put(data []byte) (Hash, error) {
	hash := Digest(data)
	finalPath := s.objectPath(hash)

	// Dedup fast path.
	if _, err := os.Stat(finalPath); err == nil {
		return hash, nil
	}

	tag := CompressionNone
	if len(data) > 0 {
		if s.compression != nil {
			tag = *s.compression
		} else {
			tag = SelectCompression(data)
		}
	}

	payload, actualTag, err := compressWithFallback(data, tag)
	if err != nil {
		return Hash{}, fmt.Errorf("compressing object %s: %w", FormatHash(hash), err)
	}

	var flags byte
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(payload, hash)
		if err != nil {
			return Hash{}, fmt.Errorf("sealing object %s: %w", FormatHash(hash), err)
		}
		payload = sealed
		flags |= flagSealed
	}

	if err := s.writeObject(finalPath, hash, actualTag, flags, int64(len(data)), payload); err != nil {
		return Hash{}, err
	}

	s.logger.Debug("object stored",
		"hash", FormatHash(hash),
		"size", len(data),
		"compression", actualTag.String(),
	)
	return hash, nil
}

// Get retrieves the bytes for hash. The decoded bytes are re-hashed
// and compared to the requested hash before being returned; a
// mismatch yields an *IntegrityError and no data. An unknown hash
// yields a *NotFoundError, a sealed object in a keyless store a
// *SealedObjectError.
func (s *Store) Get(hash Hash) ([]byte, error) {
	path := s.objectPath(hash)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Hash: hash}
		}
		return nil, fmt.Errorf("reading object %s: %w", FormatHash(hash), err)
	}

	tag, flags, size, payload, err := parseObject(raw)
	if err != nil {
		return nil, &IntegrityError{Hash: hash, Path: path, Cause: err}
	}

	if flags&flagSealed != 0 {
		if s.sealer == nil {
			return nil, &SealedObjectError{Hash: hash, Path: path}
		}
		payload, err = s.sealer.Open(payload, hash)
		if err != nil {
			return nil, &IntegrityError{Hash: hash, Path: path, Cause: err}
		}
	}

	data, err := Decompress(payload, tag, int(size))
	if err != nil {
		return nil, &IntegrityError{Hash: hash, Path: path, Cause: err}
	}

	computed := Digest(data)
	if computed != hash {
		return nil, &IntegrityError{Hash: hash, Computed: computed, Path: path}
	}
	return data, nil
}

// ObjectInfo describes a stored object without reading its payload.
type ObjectInfo struct {
	Hash        Hash
	Size        int64 // uncompressed content size
	StoredSize  int64 // on-disk size including header
	Compression CompressionTag
	Sealed      bool
}

// Stat returns metadata for a stored object. Unknown hash yields a
// *NotFoundError.
func (s *Store) Stat(hash Hash) (*ObjectInfo, error) {
	path := s.objectPath(hash)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Hash: hash}
		}
		return nil, fmt.Errorf("opening object %s: %w", FormatHash(hash), err)
	}
	defer file.Close()

	var header [headerSize]byte
	if _, err := io.ReadFull(file, header[:]); err != nil {
		return nil, &IntegrityError{Hash: hash, Path: path, Cause: fmt.Errorf("reading object header: %w", err)}
	}
	tag, flags, size, _, err := parseObject(header[:])
	if err != nil {
		return nil, &IntegrityError{Hash: hash, Path: path, Cause: err}
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating object %s: %w", FormatHash(hash), err)
	}

	return &ObjectInfo{
		Hash:        hash,
		Size:        size,
		StoredSize:  info.Size(),
		Compression: tag,
		Sealed:      flags&flagSealed != 0,
	}, nil
}

// Exists reports whether an object with the given hash is stored.
func (s *Store) Exists(hash Hash) bool {
	_, err := os.Stat(s.objectPath(hash))
	return err == nil
}

// List lazily yields the hash of every stored object, one pass per
// call. The walk is best-effort under concurrent stores: objects
// written after the walk passes their shard may or may not appear,
// but iteration never fails because of a concurrent Put. Shard
// entries that are not valid object names are skipped.
func (s *Store) List() iter.Seq2[Hash, error] {
	return func(yield func(Hash, error) bool) {
		base := filepath.Join(s.root, objectDir)
		outer, err := os.ReadDir(base)
		if err != nil {
			yield(Hash{}, fmt.Errorf("listing store: %w", err))
			return
		}
		for _, first := range outer {
			if !first.IsDir() {
				continue
			}
			inner, err := os.ReadDir(filepath.Join(base, first.Name()))
			if err != nil {
				// Shard removed between ReadDirs (concurrent Remove).
				continue
			}
			for _, second := range inner {
				if !second.IsDir() {
					continue
				}
				entries, err := os.ReadDir(filepath.Join(base, first.Name(), second.Name()))
				if err != nil {
					continue
				}
				for _, entry := range entries {
					hash, err := ParseHash(entry.Name())
					if err != nil {
						continue
					}
					if !yield(hash, nil) {
						return
					}
				}
			}
		}
	}
}

// Remove deletes the object with the given hash. Subsequent Get calls
// for that hash fail with *NotFoundError. Removing an unknown hash is
// itself a *NotFoundError.
func (s *Store) Remove(hash Hash) error {
	err := os.Remove(s.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Hash: hash}
		}
		return fmt.Errorf("removing object %s: %w", FormatHash(hash), err)
	}
	return nil
}

// objectPath returns the sharded filesystem path for an object:
// objects/ab/cd/<64-hex>. Sharding by hash prefix keeps directory
// sizes bounded and lookups O(1).
func (s *Store) objectPath(hash Hash) string {
	hex := FormatHash(hash)
	return filepath.Join(s.root, objectDir, hex[:2], hex[2:4], hex)
}

// writeObject encodes the object file and installs it with a single
// atomic rename. On any failure the temp file is removed.
func (s *Store) writeObject(finalPath string, hash Hash, tag CompressionTag, flags byte, size int64, payload []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "obj-*")
	if err != nil {
		return fmt.Errorf("creating temp object file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	var header [headerSize]byte
	copy(header[:4], objectMagic[:])
	header[4] = byte(tag)
	header[5] = flags
	binary.LittleEndian.PutUint64(header[6:], uint64(size))

	if _, err := tmpFile.Write(header[:]); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing object header: %w", err)
	}
	if _, err := tmpFile.Write(payload); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing object payload: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp object file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("creating object shard directory: %w", err)
	}

	// Dedup race: if the object appeared while we were encoding, the
	// existing file is byte-identical content-wise — discard ours.
	if _, err := os.Stat(finalPath); err == nil {
		os.Remove(tmpPath)
		success = true
		return nil
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming object to %s: %w", finalPath, err)
	}
	success = true
	return nil
}

// parseObject splits an encoded object file into its header fields
// and payload.
func parseObject(raw []byte) (CompressionTag, byte, int64, []byte, error) {
	if len(raw) < headerSize {
		return 0, 0, 0, nil, fmt.Errorf("object file is %d bytes, header needs %d", len(raw), headerSize)
	}
	if [4]byte(raw[:4]) != objectMagic {
		return 0, 0, 0, nil, fmt.Errorf("bad object magic %q", raw[:4])
	}
	tag := CompressionTag(raw[4])
	flags := raw[5]
	size := int64(binary.LittleEndian.Uint64(raw[6:14]))
	return tag, flags, size, raw[headerSize:], nil
}
