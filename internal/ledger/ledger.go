// SPDX-License-Identifier: MIT

// Package ledger persists the set of VOD ids already offered for
// download across runs. Membership means "was part of a resolved
// download plan", not "downloaded successfully": a failed download is
// not retried unless the user un-excludes it during review.
package ledger

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "id:"

// Ledger is a durable, append-only id set backed by badger.
type Ledger struct {
	db *badger.DB

	// Writes are serialized; the walk/review pipeline is sequential but
	// the set invariant must hold regardless of caller discipline.
	mu sync.Mutex
}

// Open opens (or creates) the ledger under dir.
func Open(dir string) (*Ledger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", dir, err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// Contains reports whether id is in the ledger.
func (l *Ledger) Contains(id string) (bool, error) {
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyPrefix + id))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger: %w", err)
	}
	return true, nil
}

// InsertMany appends ids to the ledger. Already-present ids are
// overwritten in place, preserving set semantics.
func (l *Ledger) InsertMany(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Set([]byte(keyPrefix+id), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}

// All returns every id in the ledger.
func (l *Ledger) All() ([]string, error) {
	var ids []string
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return ids, nil
}
