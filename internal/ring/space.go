package ring

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"math/big"
)

// Space defines the identifier space of a Chord ring: the set of integers
// in [0, 2^Bits). Identifiers are stored big-endian using ByteLen bytes.
//
// Bits is normally 160 (SHA-1's width) but is configurable so tests can use
// a small ring (e.g. 8 bits) to provoke collisions and wrap-around cheaply.
type Space struct {
	Bits    int
	ByteLen int
}

// NewSpace builds a Space for the given bit width. bits must be > 0.
func NewSpace(bits int) (Space, error) {
	if bits <= 0 {
		return Space{}, fmt.Errorf("ring: invalid identifier bits: %d (must be > 0)", bits)
	}
	return Space{
		Bits:    bits,
		ByteLen: (bits + 7) / 8,
	}, nil
}

// ID is a point on the ring, stored big-endian.
type ID []byte

// Zero returns the all-zero identifier for this space.
func (sp Space) Zero() ID {
	return make(ID, sp.ByteLen)
}

// Hash maps a byte string to a point on the ring: the SHA-1 digest,
// truncated (or masked) to sp.Bits bits. Both node addresses and keys go
// through this same function, per §3.
func (sp Space) Hash(b []byte) ID {
	sum := sha1.Sum(b)
	buf := make([]byte, sp.ByteLen)
	n := sp.ByteLen
	if n > len(sum) {
		n = len(sum)
	}
	copy(buf[sp.ByteLen-n:], sum[:n])

	extraBits := sp.ByteLen*8 - sp.Bits
	if extraBits > 0 {
		mask := byte(0xFF >> extraBits)
		buf[0] &= mask
	}
	return buf
}

// HashString is Hash(string(s)) -- the common case, since node addresses
// and keys are both strings at the API boundary.
func (sp Space) HashString(s string) ID {
	return sp.Hash([]byte(s))
}

// Cmp compares two identifiers as big-endian unsigned integers.
func (x ID) Cmp(y ID) int {
	return bytes.Compare(x, y)
}

// Equal reports whether x and y are the same identifier.
func (x ID) Equal(y ID) bool {
	return bytes.Equal(x, y)
}

// String renders the identifier as a hex string, for logging.
func (x ID) String() string {
	if x == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%x", []byte(x))
}

// ToBigInt interprets x as a non-negative big-endian integer.
func (x ID) ToBigInt() *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(x)
}

// AddPow2 computes (x + 2^i) mod 2^Bits, used to build finger targets:
// self_id + 2^i.
func (sp Space) AddPow2(x ID, i int) ID {
	sum := new(big.Int).Set(x.ToBigInt())
	sum.Add(sum, new(big.Int).Lsh(big.NewInt(1), uint(i)))
	mod := new(big.Int).Lsh(big.NewInt(1), uint(sp.Bits))
	sum.Mod(sum, mod)

	buf := sum.Bytes()
	out := make(ID, sp.ByteLen)
	copy(out[sp.ByteLen-len(buf):], buf)
	return out
}

// InExc reports whether x lies on the open arc (a, b): strictly between a
// and b going clockwise, excluding both endpoints. If a == b the arc is
// the whole ring minus the point a, per §3.
func InExc(x, a, b ID) bool {
	cab := a.Cmp(b)
	if cab == 0 {
		return !x.Equal(a)
	}
	if cab < 0 {
		return a.Cmp(x) < 0 && x.Cmp(b) < 0
	}
	return a.Cmp(x) < 0 || x.Cmp(b) < 0
}

// InInc reports whether x lies on the arc (a, b]: same as InExc but
// inclusive of b. If a == b the arc covers the entire ring.
func InInc(x, a, b ID) bool {
	cab := a.Cmp(b)
	if cab == 0 {
		return true
	}
	if cab < 0 {
		return a.Cmp(x) < 0 && x.Cmp(b) <= 0
	}
	return a.Cmp(x) < 0 || x.Cmp(b) <= 0
}
