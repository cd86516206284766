// Package bytekey provides the aggregation key: an immutable byte sequence
// with a precomputed hash. Keys are compared and hashed by content and are
// only turned into text when results are reported.
package bytekey

import "github.com/zeebo/xxh3"

// Key is an immutable byte sequence. The bytes live in a string so no caller
// can mutate them after construction.
type Key struct {
	data string
	hash uint64
}

// New copies b into a fresh Key.
func New(b []byte) Key {
	return Key{data: string(b), hash: xxh3.Hash(b)}
}

// FromString builds a Key from text, reusing the string storage.
func FromString(s string) Key {
	return Key{data: s, hash: xxh3.HashString(s)}
}

// Hash returns the hash of b as New would compute it. Lookups use it to probe
// tables before deciding whether a Key has to be allocated.
func Hash(b []byte) uint64 { return xxh3.Hash(b) }

func (k Key) Hash() uint64 { return k.hash }

func (k Key) Len() int { return len(k.data) }

func (k Key) String() string { return k.data }

// Bytes returns a copy of the key's bytes.
func (k Key) Bytes() []byte { return []byte(k.data) }

// Equal reports whether both keys hold the same bytes.
func (k Key) Equal(o Key) bool {
	return k.hash == o.hash && k.data == o.data
}

// Matches reports whether the key holds exactly b. h must be Hash(b).
func (k Key) Matches(h uint64, b []byte) bool {
	return k.hash == h && k.data == string(b)
}
