// Copyright 2025 Certen Protocol
//
// Table layout: every logical table from spec §6 is a key prefix within one
// physical backend, mirroring the teacher's key-layout comment block in
// pkg/ledger/store.go ("====== KV Key Layout ======").

package store

import "encoding/binary"

// Table identifies one of the logical tables named in spec §6.
type Table byte

const (
	TableFrontiers         Table = iota // head-hash -> account (legacy)
	TableAccounts                       // account -> account_info
	TableBlocks                        // hash -> type || block-bytes || sideband-bytes
	TablePending                        // (account || hash) -> (source || amount || epoch)
	TableUnchecked                      // (previous || hash) -> unchecked_info
	TableVote                          // account -> latest vote
	TableOnlineWeight                  // timestamp -> amount
	TablePeers                         // endpoint_key -> empty
	TableConfirmationHeight            // account -> (height || frontier)
	TableMeta                          // well-known 32-byte keys
)

// prefixedKey prepends the table discriminant byte to key, isolating tables
// inside the shared key space of a single physical backend.
func prefixedKey(t Table, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(t)
	copy(out[1:], key)
	return out
}

// tableRange returns the [start, end) byte range spanning every key in t,
// used both for Count and for range iteration.
func tableRange(t Table) (start, end []byte) {
	start = []byte{byte(t)}
	end = []byte{byte(t) + 1}
	return
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// Well-known meta keys (spec §6 "meta: well-known 32-byte keys").
var (
	metaKeyVersion = mustMetaKey("version")
)

func mustMetaKey(name string) []byte {
	var b [32]byte
	copy(b[:], name)
	return b[:]
}
