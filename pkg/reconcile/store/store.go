// Package store provides Badger DB-backed persistence for file catalogs.
//
// Each record is stored twice: once under its tree and path for direct and
// range lookups, and once in a digest index that makes content-based queries
// a prefix scan. Both keys are written in one transaction, so the index never
// drifts from the records.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// ErrNotFound indicates the requested record is not in the catalog.
var ErrNotFound = errors.New("record not found in catalog")

// Store is catalog storage backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open catalog db %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts a record and its digest index entry in one transaction.
// When the record replaces one with a different digest, the stale index
// entry is removed in the same transaction.
func (s *Store) Put(rec types.FileRecord) error {
	if err := rec.Tree.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.Path, err)
	}

	key := recordKey(rec.Tree, rec.Path)
	return s.db.Update(func(txn *badger.Txn) error {
		// Drop the old digest index entry if the digest changed.
		item, err := txn.Get(key)
		if err == nil {
			var old types.FileRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &old)
			}); err != nil {
				return err
			}
			if old.Digest != "" && old.Digest != rec.Digest {
				if err := txn.Delete(hashKey(old.Digest, rec.Tree, rec.Path)); err != nil {
					return err
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}
		if rec.Digest != "" {
			return txn.Set(hashKey(rec.Digest, rec.Tree, rec.Path), nil)
		}
		return nil
	})
}

// Get retrieves a record by tree and path.
// Returns ErrNotFound if the record does not exist.
func (s *Store) Get(tree types.TreeID, path string) (types.FileRecord, error) {
	var rec types.FileRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(tree, path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.FileRecord{}, fmt.Errorf("%w: %s:%s", ErrNotFound, tree, path)
	}
	if err != nil {
		return types.FileRecord{}, err
	}

	return rec, nil
}

// GetAll returns every record of a tree, sorted by path.
func (s *Store) GetAll(tree types.TreeID) ([]types.FileRecord, error) {
	var records []types.FileRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := recordPrefix(tree)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec types.FileRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Keys sort bytewise; report order is lexical by path.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})

	return records, nil
}

// LookupByHash returns every record carrying the given digest, across both
// trees, sorted by tree then path. The digest may be a hex prefix; all
// records whose digest begins with it are returned.
func (s *Store) LookupByHash(digest string) ([]types.FileRecord, error) {
	var records []types.FileRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := hashPrefix(digest)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			_, tree, path, ok := parseHashKey(it.Item().Key())
			if !ok {
				continue
			}
			rec, err := s.Get(tree, path)
			if errors.Is(err, ErrNotFound) {
				continue // index raced a delete
			}
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Tree != records[j].Tree {
			return records[i].Tree < records[j].Tree
		}
		return records[i].Path < records[j].Path
	})

	return records, nil
}

// DeletePath removes a record and its digest index entry.
// Deleting an absent record is not an error.
func (s *Store) DeletePath(tree types.TreeID, path string) error {
	key := recordKey(tree, path)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var rec types.FileRecord
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}

		if rec.Digest != "" {
			if err := txn.Delete(hashKey(rec.Digest, tree, path)); err != nil {
				return err
			}
		}
		return txn.Delete(key)
	})
}

// DropTree removes every record of a tree along with its index entries.
func (s *Store) DropTree(tree types.TreeID) error {
	records, err := s.GetAll(tree)
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, rec := range records {
		if rec.Digest != "" {
			if err := wb.Delete(hashKey(rec.Digest, tree, rec.Path)); err != nil {
				return err
			}
		}
		if err := wb.Delete(recordKey(tree, rec.Path)); err != nil {
			return err
		}
	}

	return wb.Flush()
}

// Count returns the number of records cataloged for a tree.
func (s *Store) Count(tree types.TreeID) (int64, error) {
	var count int64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := recordPrefix(tree)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}
