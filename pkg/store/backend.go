// Copyright 2025 Certen Protocol
//
// Backend: the single KV interface the ledger, confirmation-height
// processor, and bootstrap layer are written against. Two concrete
// implementations sit behind it — a B-tree (bbolt) and an LSM tree
// (goleveldb) — selected at startup by config, matching spec §4.1's "Two
// backends... sit behind one interface."
//
// Grounded on pkg/kvdb/adapter.go, which wraps CometBFT's pluggable
// dbm.DB the same way; CONSENSUS CORE uses cometbft-db directly as the
// backend factory rather than reimplementing bbolt/goleveldb drivers, since
// it already exposes both as one interface via dbm.NewDB(name, backendType, dir).

package store

import (
	dbm "github.com/cometbft/cometbft-db"
)

// BackendKind selects which physical storage engine NewBackend opens.
type BackendKind string

const (
	// BackendBTree is the bbolt-backed B-tree engine — low write
	// amplification for random-access account lookups, matching the
	// original LMDB-based store this design is modernizing (spec §4.1).
	BackendBTree BackendKind = "btree"
	// BackendLSM is the goleveldb-backed log-structured-merge engine —
	// higher write throughput under heavy block-processing load.
	BackendLSM BackendKind = "lsm"
)

func (k BackendKind) cometbftBackend() dbm.BackendType {
	switch k {
	case BackendBTree:
		return dbm.BoltDBBackend
	case BackendLSM:
		return dbm.GoLevelDBBackend
	default:
		return dbm.GoLevelDBBackend
	}
}

// Batch groups a set of writes to be applied atomically.
type Batch interface {
	Set(key, value []byte) error
	Delete(key []byte) error
	Write() error
	WriteSync() error
	Close() error
}

// Iterator walks keys in [start, end) order.
type Iterator interface {
	Valid() bool
	Next()
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// Backend is the minimal KV surface both engines provide.
type Backend interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	SetSync(key, value []byte) error
	Delete(key []byte) error
	Iterator(start, end []byte) (Iterator, error)
	ReverseIterator(start, end []byte) (Iterator, error)
	NewBatch() Batch
	Close() error
}

// cometbftBackend adapts dbm.DB (and dbm.Batch/dbm.Iterator) to Backend.
type cometbftBackend struct {
	db dbm.DB
}

// Open opens (creating if absent) a backend of the given kind rooted at dir.
// name distinguishes multiple logical databases sharing one data directory
// (as CometBFT itself does for its own state vs. application state).
func Open(kind BackendKind, name, dir string) (Backend, error) {
	db, err := dbm.NewDB(name, kind.cometbftBackend(), dir)
	if err != nil {
		return nil, err
	}
	return &cometbftBackend{db: db}, nil
}

func (b *cometbftBackend) Get(key []byte) ([]byte, error) { return b.db.Get(key) }
func (b *cometbftBackend) Has(key []byte) (bool, error)   { return b.db.Has(key) }
func (b *cometbftBackend) Set(key, value []byte) error    { return b.db.Set(key, value) }
func (b *cometbftBackend) SetSync(key, value []byte) error {
	return b.db.SetSync(key, value)
}
func (b *cometbftBackend) Delete(key []byte) error { return b.db.Delete(key) }
func (b *cometbftBackend) Close() error            { return b.db.Close() }

func (b *cometbftBackend) Iterator(start, end []byte) (Iterator, error) {
	it, err := b.db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (b *cometbftBackend) ReverseIterator(start, end []byte) (Iterator, error) {
	it, err := b.db.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (b *cometbftBackend) NewBatch() Batch {
	return b.db.NewBatch()
}
