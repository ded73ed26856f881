// Package hashname implements the self-certifying peer identifier: a
// 32-byte fingerprint deterministically rolled up from a peer's set of
// cipher-set-id -> raw public key pairs, plus the 5-byte "short" form used
// to address routed packets and the 52-character unpadded base32 string
// form used on the wire and in JSON (spec.md section 3, section 6).
//
// The rollup algorithm itself is left abstract by spec.md section 1 (it is
// one of the named external collaborators), but this package carries one
// concrete deriver so the mesh is runnable end-to-end rather than shipping
// an interface with no reference implementation: the keys are sorted by
// csid byte, each raw key is SHA-256'd, and the csid-ordered digests are
// folded together with a second SHA-256 pass - the same two-level
// "digest of digests" shape telehash-c's hashname rollup uses, applied
// with Go's crypto/sha256 in place of its OpenSSL calls.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package hashname

import (
	"bytes"
	"crypto/sha256"
	"sort"

	"github.com/ribbonmesh/core/cmn/cos"
)

const (
	// Size is the full fingerprint length in bytes.
	Size = 32
	// ShortSize is the routing-packet address length in bytes.
	ShortSize = 5
)

// Hashname is a 32-byte self-certifying peer fingerprint. The zero value
// is not a valid hashname.
type Hashname [Size]byte

// FromKeys derives a Hashname from a csid -> raw public key map, per
// spec.md section 3's "deterministic derivation... from a map of
// cipher-set-id -> raw public key". Keys are processed in ascending csid
// order so the result does not depend on map iteration order.
func FromKeys(keys map[byte][]byte) (Hashname, error) {
	if len(keys) == 0 {
		return Hashname{}, cos.NewErrBadArgs("hashname: empty keyset")
	}
	csids := make([]byte, 0, len(keys))
	for csid := range keys {
		csids = append(csids, csid)
	}
	sort.Slice(csids, func(i, j int) bool { return csids[i] < csids[j] })

	rollup := sha256.New()
	for _, csid := range csids {
		raw := keys[csid]
		if len(raw) == 0 {
			return Hashname{}, cos.NewErrBadArgs("hashname: empty key for csid %#x", csid)
		}
		digest := sha256.Sum256(raw)
		rollup.Write([]byte{csid})
		rollup.Write(digest[:])
	}

	var hn Hashname
	copy(hn[:], rollup.Sum(nil))
	return hn, nil
}

// Parse decodes the 52-character unpadded base32 string form (spec.md
// section 6) back into a Hashname.
func Parse(s string) (Hashname, error) {
	b, err := cos.Base32Decode(s)
	if err != nil {
		return Hashname{}, cos.NewErrBadArgs("hashname: %v", err)
	}
	if len(b) != Size {
		return Hashname{}, cos.NewErrBadArgs("hashname: decoded length %d, want %d", len(b), Size)
	}
	var hn Hashname
	copy(hn[:], b)
	return hn, nil
}

// String is the 52-character unpadded base32 wire/JSON form.
func (h Hashname) String() string { return cos.Base32Encode(h[:]) }

// Short returns the 5-byte routing-packet address.
func (h Hashname) Short() [ShortSize]byte {
	var s [ShortSize]byte
	copy(s[:], h[:ShortSize])
	return s
}

// Equal is byte-exact equality (spec.md section 3: "Equality is
// byte-exact").
func (h Hashname) Equal(o Hashname) bool { return h == o }

// HasPrefix reports whether h's string form begins with prefix. spec.md
// section 3 calls for "a partial string match... used only for link lookup
// by prefix" - never for cryptographic identity.
func (h Hashname) HasPrefix(prefix string) bool {
	s := h.String()
	return len(prefix) <= len(s) && s[:len(prefix)] == prefix
}

// IsZero reports the (invalid) zero value.
func (h Hashname) IsZero() bool { return h == Hashname{} }

// ShortEqual compares a candidate 5-byte routed-packet head against h's
// short form.
func (h Hashname) ShortEqual(short []byte) bool {
	s := h.Short()
	return bytes.Equal(s[:], short)
}
