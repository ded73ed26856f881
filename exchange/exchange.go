// Package exchange defines the boundary between the mesh dispatcher/link
// table and a concrete cipher-set's per-peer cryptographic session
// (spec.md section 4.3: "Link / exchange boundary"). Exchange itself is
// declared opaque by spec.md section 1 - this package holds only the
// interface `mesh` and `link` program against; `cipherset.Session` is the
// one concrete implementation this module ships.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package exchange

import "github.com/ribbonmesh/core/lob"

// Exchange is the per-peer cryptographic session a link wraps (spec.md
// section 3 "Exchange"). Implementations must make Token() deterministic
// from the exchange's current keying state and distinct across concurrent
// exchanges in the same mesh.
type Exchange interface {
	// DecryptHandshake authenticates and decrypts a subsequent handshake
	// packet (head_len == 1) addressed to this already-established
	// exchange, returning its decrypted inner packet.
	DecryptHandshake(outer *lob.Packet) (*lob.Packet, error)

	// ReceiveChannelPacket authenticates and decrypts a channel packet
	// (head_len == 0, body[0:8] already matched against Token()),
	// returning its decrypted inner packet.
	ReceiveChannelPacket(outer *lob.Packet) (*lob.Packet, error)

	// EncryptChannelPacket seals inner for transmission as an outer
	// channel packet, prefixing the wire body with Token().
	EncryptChannelPacket(inner *lob.Packet) (*lob.Packet, error)

	// Token is the 8-byte routing prefix channel packets are demultiplexed
	// by (spec.md section 3/4.3).
	Token() [8]byte

	// LastAt is the monotonic second count of the last successful receive
	// on this exchange, per spec.md's caller-supplied-clock model.
	LastAt() uint32

	// Touch records a successful receive at the caller-supplied monotonic
	// time. The core has no clock of its own (spec.md section 5); link and
	// mesh call Touch after a successful DecryptHandshake or
	// ReceiveChannelPacket so LastAt stays current without the exchange
	// reading any clock itself.
	Touch(now uint32)
}
