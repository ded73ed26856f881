/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package cos

import (
	"encoding/base32"
	"encoding/hex"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

// b32 is the RFC 4648 alphabet without padding, matching spec.md section 6's
// wire forms (52-char hashname, 16-char handshake id, base32 raw keys).
// Stdlib encoding/base32, not a pack library: no example repo implements
// this specific codec, and the format itself (not a design choice) is
// fixed by the wire spec - see DESIGN.md.
var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

func Base32Encode(b []byte) string          { return b32.EncodeToString(b) }
func Base32Decode(s string) ([]byte, error) { return b32.DecodeString(s) }
func HexEncode(b []byte) string             { return hex.EncodeToString(b) }
func HexDecode(s string) ([]byte, error)    { return hex.DecodeString(s) }

// FastHash is a non-cryptographic 64-bit digest used only for internal
// bookkeeping (the mesh's token/short-hashname lookup buckets) - never for wire-format
// commitments. The framing engine's wire-critical rolling hash is a
// from-scratch murmur4, deliberately NOT this: see frames.murmur4 and the
// note in SPEC_FULL.md section 4.2.
func FastHash(b []byte) uint64 { return xxhash.Checksum64(b) }

var shortIDs = shortid.MustNew(1, shortid.DefaultABC, 0)

// CorrelationID returns a short, human-loggable, non-wire identifier for
// tagging a single handshake attempt or channel-open call across several
// log lines. It is never part of the protocol: it exists purely so an
// operator grepping mesh logs can follow one exchange's story.
func CorrelationID() string { return shortIDs.MustGenerate() }
