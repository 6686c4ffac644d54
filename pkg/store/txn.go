// Copyright 2025 Certen Protocol
//
// Transaction lifecycles. Read transactions are cheap snapshots-by-convention
// over the backend (renewable/resettable per spec §4.1); write transactions
// accumulate an in-memory overlay so a writer observes its own uncommitted
// writes before they land in the backend, and apply as a single batch on
// Commit so a crash mid-write never leaves a partial update (spec §7 family 2).

package store

import (
	"errors"
)

// ErrTxnClosed is returned by any operation on a transaction that has
// already been committed or discarded.
var ErrTxnClosed = errors.New("store: transaction closed")

// ReadTxn is a read-only cursor into the store.
type ReadTxn struct {
	backend Backend
	closed  bool
}

func newReadTxn(b Backend) *ReadTxn {
	return &ReadTxn{backend: b}
}

// Get reads key from table t.
func (r *ReadTxn) Get(t Table, key []byte) ([]byte, error) {
	if r.closed {
		return nil, ErrTxnClosed
	}
	return r.backend.Get(prefixedKey(t, key))
}

// Exists reports whether key is present in table t.
func (r *ReadTxn) Exists(t Table, key []byte) (bool, error) {
	if r.closed {
		return false, ErrTxnClosed
	}
	return r.backend.Has(prefixedKey(t, key))
}

// Iterate walks [start, end) within table t in key order. A nil end means
// "through the end of the table".
func (r *ReadTxn) Iterate(t Table, start, end []byte) (Iterator, error) {
	if r.closed {
		return nil, ErrTxnClosed
	}
	tStart, tEnd := tableRange(t)
	s := prefixedKey(t, start)
	e := tEnd
	if end != nil {
		e = prefixedKey(t, end)
	}
	_ = tStart
	return r.backend.Iterator(s, e)
}

// Reset does nothing: a ReadTxn reads the live backend directly and holds
// no snapshot or other backend resource to release.
func (r *ReadTxn) Reset() {}

// Renew does nothing, for the same reason as Reset.
func (r *ReadTxn) Renew() {}

// Discard releases the transaction. Safe to call multiple times.
func (r *ReadTxn) Discard() {
	r.closed = true
}

type writeOp struct {
	deleted bool
	value   []byte
}

// WriteTxn is a single-writer transaction. The store's write-database-queue
// (queue.go) is responsible for ensuring at most one WriteTxn is open at a
// time across the whole process (spec §5 "write transactions to the store
// serialize across the process").
type WriteTxn struct {
	backend Backend
	overlay map[string]writeOp
	closed  bool
}

func newWriteTxn(b Backend) *WriteTxn {
	return &WriteTxn{backend: b, overlay: make(map[string]writeOp)}
}

func overlayKey(t Table, key []byte) string {
	return string(prefixedKey(t, key))
}

// Get reads key from table t, preferring this transaction's own uncommitted
// writes over the backend (read-your-own-writes).
func (w *WriteTxn) Get(t Table, key []byte) ([]byte, error) {
	if w.closed {
		return nil, ErrTxnClosed
	}
	if op, ok := w.overlay[overlayKey(t, key)]; ok {
		if op.deleted {
			return nil, nil
		}
		return op.value, nil
	}
	return w.backend.Get(prefixedKey(t, key))
}

// Exists reports whether key is present, honoring uncommitted writes.
func (w *WriteTxn) Exists(t Table, key []byte) (bool, error) {
	if w.closed {
		return false, ErrTxnClosed
	}
	if op, ok := w.overlay[overlayKey(t, key)]; ok {
		return !op.deleted, nil
	}
	return w.backend.Has(prefixedKey(t, key))
}

// Put stages a write; it is not visible to other transactions until Commit.
func (w *WriteTxn) Put(t Table, key, value []byte) error {
	if w.closed {
		return ErrTxnClosed
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	w.overlay[overlayKey(t, key)] = writeOp{value: cp}
	return nil
}

// Delete stages a deletion.
func (w *WriteTxn) Delete(t Table, key []byte) error {
	if w.closed {
		return ErrTxnClosed
	}
	w.overlay[overlayKey(t, key)] = writeOp{deleted: true}
	return nil
}

// Iterate walks the backend's committed keys within table t. This
// transaction's staged writes are not reflected: staged puts do not appear
// and keys with a staged delete are still returned — callers that need the
// staged state mid-iteration should Get keys explicitly. This mirrors
// the common B-tree/LSM caveat that batched writes aren't visible to a
// concurrently open cursor until the batch commits.
func (w *WriteTxn) Iterate(t Table, start, end []byte) (Iterator, error) {
	if w.closed {
		return nil, ErrTxnClosed
	}
	s := prefixedKey(t, start)
	var e []byte
	if end != nil {
		e = prefixedKey(t, end)
	} else {
		_, e = tableRange(t)
	}
	return w.backend.Iterator(s, e)
}

// Commit applies every staged write as a single atomic batch.
func (w *WriteTxn) Commit() error {
	if w.closed {
		return ErrTxnClosed
	}
	w.closed = true
	if len(w.overlay) == 0 {
		return nil
	}
	batch := w.backend.NewBatch()
	defer batch.Close()
	for k, op := range w.overlay {
		if op.deleted {
			if err := batch.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := batch.Set([]byte(k), op.value); err != nil {
			return err
		}
	}
	return batch.WriteSync()
}

// Discard abandons all staged writes.
func (w *WriteTxn) Discard() {
	w.closed = true
	w.overlay = nil
}

