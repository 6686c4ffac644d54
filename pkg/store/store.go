// Copyright 2025 Certen Protocol
//
// Store: typed operations over the table-prefixed backend for every entity
// named in spec §3/§6 — accounts, blocks, pending, confirmation-height,
// unchecked, votes, online-weight, peers, and meta. Grounded on
// pkg/ledger/store.go's per-entity method groups ("====== System Ledger
// Store Methods ======" etc.), generalized from Certen's two ledgers to the
// ORV ledger's entity set.

package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

// Txn is the read surface shared by *ReadTxn and *WriteTxn. Store's typed
// getters accept this instead of a concrete *ReadTxn so a caller holding a
// write transaction (the ledger, mid-Process) sees its own uncommitted
// writes rather than being forced to open a second, inconsistent read
// transaction (spec §3 "write transactions... see their own writes").
type Txn interface {
	Get(t Table, key []byte) ([]byte, error)
	Exists(t Table, key []byte) (bool, error)
	Iterate(t Table, start, end []byte) (Iterator, error)
}

var _ Txn = (*ReadTxn)(nil)
var _ Txn = (*WriteTxn)(nil)

// Status discriminates "not found" from a genuine I/O error so callers never
// have to parse an error string to tell them apart (spec §4.1 failure
// semantics).
type Status int

const (
	StatusSuccess Status = iota
	StatusNotFound
	StatusError
)

// ErrNotFound is returned by typed getters when a key is absent.
var ErrNotFound = errors.New("store: not found")

// currentVersion is the schema version this binary understands. Only a
// store at exactly this version may be opened: a newer store is rejected,
// and migrating older schemas is explicitly a Non-goal (spec §1).
const currentVersion uint32 = 1

// AccountInfo is the per-account head pointer and metadata (spec §3).
type AccountInfo struct {
	Head           numeric.Hash
	Representative numeric.Account
	OpenBlock      numeric.Hash
	Balance        numeric.Uint128
	Modified       int64
	BlockCount     uint64
	Epoch          block.Epoch
}

func (a AccountInfo) encode() []byte {
	buf := make([]byte, 32+32+32+16+8+8+1)
	off := 0
	off += copy(buf[off:], a.Head[:])
	off += copy(buf[off:], a.Representative[:])
	off += copy(buf[off:], a.OpenBlock[:])
	bal := a.Balance.Bytes()
	off += copy(buf[off:], bal[:])
	binary.BigEndian.PutUint64(buf[off:], uint64(a.Modified))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], a.BlockCount)
	off += 8
	buf[off] = byte(a.Epoch)
	return buf
}

func decodeAccountInfo(b []byte) (AccountInfo, error) {
	var a AccountInfo
	if len(b) != 32+32+32+16+8+8+1 {
		return a, fmt.Errorf("store: malformed account_info (%d bytes)", len(b))
	}
	off := 0
	copy(a.Head[:], b[off:off+32])
	off += 32
	copy(a.Representative[:], b[off:off+32])
	off += 32
	copy(a.OpenBlock[:], b[off:off+32])
	off += 32
	bal, err := numeric.Uint128FromBytes(b[off : off+16])
	if err != nil {
		return a, err
	}
	a.Balance = bal
	off += 16
	a.Modified = int64(binary.BigEndian.Uint64(b[off:]))
	off += 8
	a.BlockCount = binary.BigEndian.Uint64(b[off:])
	off += 8
	a.Epoch = block.Epoch(b[off])
	return a, nil
}

// PendingKey identifies an unreceived send (spec §3 "Pending entry").
type PendingKey struct {
	Destination numeric.Account
	SendHash    numeric.Hash
}

func (k PendingKey) bytes() []byte {
	out := make([]byte, 64)
	copy(out[:32], k.Destination[:])
	copy(out[32:], k.SendHash[:])
	return out
}

// PendingEntry is the value stored for a PendingKey.
type PendingEntry struct {
	Source numeric.Account
	Amount numeric.Uint128
	Epoch  block.Epoch
}

func (e PendingEntry) encode() []byte {
	buf := make([]byte, 32+16+1)
	copy(buf[:32], e.Source[:])
	bal := e.Amount.Bytes()
	copy(buf[32:48], bal[:])
	buf[48] = byte(e.Epoch)
	return buf
}

func decodePendingEntry(b []byte) (PendingEntry, error) {
	var e PendingEntry
	if len(b) != 49 {
		return e, fmt.Errorf("store: malformed pending entry (%d bytes)", len(b))
	}
	copy(e.Source[:], b[:32])
	amt, err := numeric.Uint128FromBytes(b[32:48])
	if err != nil {
		return e, err
	}
	e.Amount = amt
	e.Epoch = block.Epoch(b[48])
	return e, nil
}

// ConfirmationHeightInfo is the per-account cemented frontier (spec §3).
type ConfirmationHeightInfo struct {
	Height   uint64
	Frontier numeric.Hash
}

func (c ConfirmationHeightInfo) encode() []byte {
	buf := make([]byte, 8+32)
	binary.BigEndian.PutUint64(buf[:8], c.Height)
	copy(buf[8:], c.Frontier[:])
	return buf
}

func decodeConfirmationHeightInfo(b []byte) (ConfirmationHeightInfo, error) {
	var c ConfirmationHeightInfo
	if len(b) != 40 {
		return c, fmt.Errorf("store: malformed confirmation_height info (%d bytes)", len(b))
	}
	c.Height = binary.BigEndian.Uint64(b[:8])
	copy(c.Frontier[:], b[8:])
	return c, nil
}

// UncheckedInfo is a block awaiting a missing predecessor or source (spec §3).
type UncheckedInfo struct {
	Block     block.Block
	Arrived   int64
	Verified  bool
}

// BlockRecord is what TableBlocks stores per hash: the type tag, the
// serialized block, and its sideband.
type BlockRecord struct {
	Type     block.Type
	Block    block.Block
	Sideband block.Sideband
}

// sidebandSize is the encoded width of a block.Sideband: successor(32) ||
// account(32) || balance(16) || representative(32) || height(8) ||
// timestamp(8) || epoch(1) || is_send(1) || details-bitset(1).
const sidebandSize = 32 + 32 + 16 + 32 + 8 + 8 + 1 + 1 + 1

func encodeSideband(s block.Sideband) []byte {
	buf := make([]byte, sidebandSize)
	off := 0
	off += copy(buf[off:], s.Successor[:])
	off += copy(buf[off:], s.Account[:])
	bal := s.Balance.Bytes()
	off += copy(buf[off:], bal[:])
	off += copy(buf[off:], s.Representative[:])
	binary.BigEndian.PutUint64(buf[off:], s.Height)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(s.Timestamp))
	off += 8
	buf[off] = byte(s.Details.Epoch)
	off++
	if s.Details.IsSend {
		buf[off] = 1
	}
	off++
	detailsByte := byte(0)
	if s.Details.IsReceive {
		detailsByte |= 1
	}
	if s.Details.IsEpoch {
		detailsByte |= 2
	}
	buf[off] = detailsByte
	return buf
}

func decodeSideband(b []byte) (block.Sideband, error) {
	var s block.Sideband
	if len(b) != sidebandSize {
		return s, fmt.Errorf("store: malformed sideband (%d bytes)", len(b))
	}
	off := 0
	copy(s.Successor[:], b[off:off+32])
	off += 32
	copy(s.Account[:], b[off:off+32])
	off += 32
	bal, err := numeric.Uint128FromBytes(b[off : off+16])
	if err != nil {
		return s, err
	}
	s.Balance = bal
	off += 16
	copy(s.Representative[:], b[off:off+32])
	off += 32
	s.Height = binary.BigEndian.Uint64(b[off:])
	off += 8
	s.Timestamp = int64(binary.BigEndian.Uint64(b[off:]))
	off += 8
	s.Details.Epoch = block.Epoch(b[off])
	off++
	s.Details.IsSend = b[off] != 0
	off++
	s.Details.IsReceive = b[off]&1 != 0
	s.Details.IsEpoch = b[off]&2 != 0
	return s, nil
}

// Store wires a Backend to the typed table operations. It is safe for
// concurrent read use; writers must serialize via WriteQueue.
type Store struct {
	backend Backend
	Writers *WriteQueue
}

// New wraps an already-opened Backend.
func New(b Backend) *Store {
	return &Store{backend: b, Writers: NewWriteQueue()}
}

// BeginRead opens a read transaction.
func (s *Store) BeginRead() *ReadTxn {
	return newReadTxn(s.backend)
}

// BeginWrite opens a write transaction. Callers are expected to have
// already acquired the WriteQueue for their role; BeginWrite itself performs
// no scheduling, matching spec's separation between "tx_begin_write" and the
// priority queue that gates it.
func (s *Store) BeginWrite() *WriteTxn {
	return newWriteTxn(s.backend)
}

// EnsureVersion checks the store's meta version against currentVersion,
// initializing a fresh store and rejecting one newer or too stale to
// migrate (migrating schemas older than current is a Non-goal, spec §1).
func (s *Store) EnsureVersion() error {
	txn := s.BeginWrite()
	raw, err := txn.Get(TableMeta, metaKeyVersion)
	if err != nil {
		txn.Discard()
		return err
	}
	if raw == nil {
		if err := txn.Put(TableMeta, metaKeyVersion, encodeUint64(uint64(currentVersion))); err != nil {
			txn.Discard()
			return err
		}
		return txn.Commit()
	}
	stored := decodeUint64(raw)
	txn.Discard()
	if stored > uint64(currentVersion) {
		return fmt.Errorf("store: database version %d newer than supported version %d", stored, currentVersion)
	}
	if stored < uint64(currentVersion) {
		return fmt.Errorf("store: database version %d predates current version %d; migration unsupported", stored, currentVersion)
	}
	return nil
}

// --- Accounts ---

func (s *Store) GetAccount(r Txn, acc numeric.Account) (AccountInfo, Status, error) {
	raw, err := r.Get(TableAccounts, acc[:])
	if err != nil {
		return AccountInfo{}, StatusError, err
	}
	if raw == nil {
		return AccountInfo{}, StatusNotFound, nil
	}
	info, err := decodeAccountInfo(raw)
	if err != nil {
		return AccountInfo{}, StatusError, err
	}
	return info, StatusSuccess, nil
}

func (s *Store) PutAccount(w *WriteTxn, acc numeric.Account, info AccountInfo) error {
	return w.Put(TableAccounts, acc[:], info.encode())
}

func (s *Store) DelAccount(w *WriteTxn, acc numeric.Account) error {
	return w.Delete(TableAccounts, acc[:])
}

// --- Blocks ---

func blockKey(h numeric.Hash) []byte { return h[:] }

func (s *Store) GetBlock(r Txn, h numeric.Hash) (BlockRecord, Status, error) {
	raw, err := r.Get(TableBlocks, blockKey(h))
	if err != nil {
		return BlockRecord{}, StatusError, err
	}
	if raw == nil {
		return BlockRecord{}, StatusNotFound, nil
	}
	rec, err := decodeBlockRecord(raw)
	if err != nil {
		return BlockRecord{}, StatusError, err
	}
	return rec, StatusSuccess, nil
}

func (s *Store) PutBlock(w *WriteTxn, h numeric.Hash, rec BlockRecord) error {
	raw, err := encodeBlockRecord(rec)
	if err != nil {
		return err
	}
	return w.Put(TableBlocks, blockKey(h), raw)
}

func (s *Store) DelBlock(w *WriteTxn, h numeric.Hash) error {
	return w.Delete(TableBlocks, blockKey(h))
}

func (s *Store) BlockExists(r Txn, h numeric.Hash) (bool, error) {
	return r.Exists(TableBlocks, blockKey(h))
}

// BlockSuccessor returns the hash following h in its account's chain, the
// zero hash if h is the frontier.
func (s *Store) BlockSuccessor(r Txn, h numeric.Hash) (numeric.Hash, error) {
	rec, status, err := s.GetBlock(r, h)
	if err != nil {
		return numeric.Hash{}, err
	}
	if status == StatusNotFound {
		return numeric.Hash{}, ErrNotFound
	}
	return rec.Sideband.Successor, nil
}

func encodeBlockRecord(rec BlockRecord) ([]byte, error) {
	body, err := block.Serialize(rec.Block)
	if err != nil {
		return nil, err
	}
	sb := encodeSideband(rec.Sideband)
	out := make([]byte, 1+len(body)+len(sb))
	out[0] = byte(rec.Type)
	copy(out[1:], body)
	copy(out[1+len(body):], sb)
	return out, nil
}

func decodeBlockRecord(b []byte) (BlockRecord, error) {
	var rec BlockRecord
	if len(b) < 1 {
		return rec, fmt.Errorf("store: empty block record")
	}
	rec.Type = block.Type(b[0])
	var bodySize int
	switch rec.Type {
	case block.TypeSend:
		bodySize = block.SendSize
	case block.TypeReceive:
		bodySize = block.ReceiveSize
	case block.TypeOpen:
		bodySize = block.OpenSize
	case block.TypeChange:
		bodySize = block.ChangeSize
	case block.TypeState:
		bodySize = block.StateSize
	default:
		return rec, fmt.Errorf("store: unknown block type %d", rec.Type)
	}
	if len(b) != 1+bodySize+sidebandSize {
		return rec, fmt.Errorf("store: block record size mismatch for type %s", rec.Type)
	}
	blk, err := block.Deserialize(rec.Type, b[1:1+bodySize])
	if err != nil {
		return rec, err
	}
	rec.Block = blk
	sb, err := decodeSideband(b[1+bodySize:])
	if err != nil {
		return rec, err
	}
	rec.Sideband = sb
	return rec, nil
}

// --- Pending ---

func (s *Store) GetPending(r Txn, k PendingKey) (PendingEntry, Status, error) {
	raw, err := r.Get(TablePending, k.bytes())
	if err != nil {
		return PendingEntry{}, StatusError, err
	}
	if raw == nil {
		return PendingEntry{}, StatusNotFound, nil
	}
	e, err := decodePendingEntry(raw)
	if err != nil {
		return PendingEntry{}, StatusError, err
	}
	return e, StatusSuccess, nil
}

func (s *Store) PutPending(w *WriteTxn, k PendingKey, e PendingEntry) error {
	return w.Put(TablePending, k.bytes(), e.encode())
}

func (s *Store) DelPending(w *WriteTxn, k PendingKey) error {
	return w.Delete(TablePending, k.bytes())
}

// --- Confirmation height ---

func (s *Store) GetConfirmationHeight(r Txn, acc numeric.Account) (ConfirmationHeightInfo, Status, error) {
	raw, err := r.Get(TableConfirmationHeight, acc[:])
	if err != nil {
		return ConfirmationHeightInfo{}, StatusError, err
	}
	if raw == nil {
		return ConfirmationHeightInfo{}, StatusNotFound, nil
	}
	c, err := decodeConfirmationHeightInfo(raw)
	if err != nil {
		return ConfirmationHeightInfo{}, StatusError, err
	}
	return c, StatusSuccess, nil
}

func (s *Store) PutConfirmationHeight(w *WriteTxn, acc numeric.Account, info ConfirmationHeightInfo) error {
	return w.Put(TableConfirmationHeight, acc[:], info.encode())
}

// --- Vote (latest observed sequence per representative) ---

func (s *Store) GetLatestVoteSequence(r Txn, rep numeric.Account) (uint64, error) {
	raw, err := r.Get(TableVote, rep[:])
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return decodeUint64(raw), nil
}

func (s *Store) PutLatestVoteSequence(w *WriteTxn, rep numeric.Account, seq uint64) error {
	return w.Put(TableVote, rep[:], encodeUint64(seq))
}

// GenerateVoteSequence atomically bumps and returns the next sequence number
// for rep, for use when the local node produces its own vote (spec §4.1
// "vote_generate... atomically bumps the stored sequence for that rep").
func (s *Store) GenerateVoteSequence(rep numeric.Account) (uint64, error) {
	release, err := s.Writers.Acquire(context.Background(), RoleVoting)
	if err != nil {
		return 0, err
	}
	defer release()
	w := s.BeginWrite()
	raw, err := w.Get(TableVote, rep[:])
	if err != nil {
		w.Discard()
		return 0, err
	}
	next := uint64(1)
	if raw != nil {
		next = decodeUint64(raw) + 1
	}
	if err := w.Put(TableVote, rep[:], encodeUint64(next)); err != nil {
		w.Discard()
		return 0, err
	}
	if err := w.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

// --- Online weight samples ---

func (s *Store) PutOnlineWeightSample(w *WriteTxn, at time.Time, amount numeric.Uint128) error {
	bal := amount.Bytes()
	return w.Put(TableOnlineWeight, encodeUint64(uint64(at.Unix())), bal[:])
}

// --- Peers ---

func (s *Store) PutPeer(w *WriteTxn, endpointKey []byte) error {
	return w.Put(TablePeers, endpointKey, []byte{})
}

func (s *Store) DelPeer(w *WriteTxn, endpointKey []byte) error {
	return w.Delete(TablePeers, endpointKey)
}

// --- Unchecked ---

func uncheckedKey(previous, hash numeric.Hash) []byte {
	out := make([]byte, 64)
	copy(out[:32], previous[:])
	copy(out[32:], hash[:])
	return out
}

func (s *Store) PutUnchecked(w *WriteTxn, previous numeric.Hash, info UncheckedInfo) error {
	body, err := block.Serialize(info.Block)
	if err != nil {
		return err
	}
	h := info.Block.Hash()
	out := make([]byte, 1+8+1+len(body))
	out[0] = byte(info.Block.Type())
	binary.BigEndian.PutUint64(out[1:9], uint64(info.Arrived))
	if info.Verified {
		out[9] = 1
	}
	copy(out[10:], body)
	return w.Put(TableUnchecked, uncheckedKey(previous, h), out)
}

func (s *Store) DelUnchecked(w *WriteTxn, previous, hash numeric.Hash) error {
	return w.Delete(TableUnchecked, uncheckedKey(previous, hash))
}

// --- Generic counts ---

// Count returns the number of entries in table t. On either backend this
// walks a live iterator (no maintained counter is wired through
// cometbft-db's interface); callers on a hot path should cache it
// themselves rather than call Count per block, matching the O(log n)/O(1)
// expectation set in spec §4.1 only loosely — see DESIGN.md.
func (s *Store) Count(r Txn, t Table) (uint64, error) {
	it, err := r.Iterate(t, nil, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close()
	var n uint64
	for ; it.Valid(); it.Next() {
		n++
	}
	return n, it.Error()
}

// Close releases the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
