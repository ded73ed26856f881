/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package cipherset

import (
	"github.com/codahale/thyrse"

	"github.com/ribbonmesh/core/cmn/cos"
	"github.com/ribbonmesh/core/exchange"
	"github.com/ribbonmesh/core/lob"
)

// Session is this cipher set's concrete exchange.Exchange: an established
// per-peer transcript plus the two forked channel-packet chains. Each
// successful EncryptChannelPacket/ReceiveChannelPacket call advances its
// respective chain's protocol state, giving per-message forward secrecy
// the same way schemes/complex/adratchet's send/recv chains do.
type Session struct {
	lowRaw, highRaw []byte
	shared          []byte
	peerRawKey      []byte

	token [8]byte
	send  *thyrse.Protocol
	recv  *thyrse.Protocol

	lastAt uint32
}

var _ exchange.Exchange = (*Session)(nil)

// Token is the 8-byte routing prefix channel packets for this peer are
// demultiplexed by.
func (sess *Session) Token() [8]byte { return sess.token }

// LastAt is the monotonic second count of the last successful receive.
func (sess *Session) LastAt() uint32 { return sess.lastAt }

// Touch records a successful receive at the caller-supplied time.
func (sess *Session) Touch(now uint32) { sess.lastAt = now }

// PeerRawKey returns the peer's raw public key bytes this Session was
// established against, for callers that need to re-derive the peer's
// hashname.
func (sess *Session) PeerRawKey() []byte {
	return append([]byte(nil), sess.peerRawKey...)
}

// DecryptHandshake authenticates a repeat handshake against an
// already-established Session (e.g. a periodic re-announce of `keys`);
// this cipher set does not support rekeying mid-session, so a handshake
// whose embedded public key differs from the one Session was built with
// is rejected rather than triggering a new DH.
func (sess *Session) DecryptHandshake(outer *lob.Packet) (*lob.Packet, error) {
	if outer == nil {
		return nil, cos.NewErrBadArgs("cipherset: nil packet")
	}
	if csid, ok := outer.CSID(); !ok || csid != CSID {
		return nil, cos.NewErrBadArgs("cipherset: not a csid %#x handshake", CSID)
	}
	if len(outer.Body) < 32 {
		return nil, cos.NewErrBadArgs("cipherset: handshake body too short")
	}
	if !bytesEqual(outer.Body[:32], sess.peerRawKey) {
		return nil, cos.NewErrDecrypt("cipherset: handshake key does not match established session")
	}
	plain, err := sess.handshakeProto().Open(handshakeOp, nil, outer.Body[32:])
	if err != nil {
		return nil, cos.NewErrDecrypt("cipherset: handshake authentication failed")
	}
	inner, err := lob.Parse(plain)
	if err != nil {
		return nil, cos.NewErrDecrypt("cipherset: malformed handshake inner packet: %v", err)
	}
	return inner, nil
}

// ReceiveChannelPacket authenticates and decrypts a channel packet whose
// body[0:8] has already been matched against Token() by the caller.
func (sess *Session) ReceiveChannelPacket(outer *lob.Packet) (*lob.Packet, error) {
	if outer == nil || len(outer.Body) < 16 {
		return nil, cos.NewErrBadArgs("cipherset: channel packet too short")
	}
	plain, err := sess.recv.Open("channel", nil, outer.Body[8:])
	if err != nil {
		return nil, cos.NewErrDecrypt("cipherset: channel packet authentication failed")
	}
	inner, err := lob.Parse(plain)
	if err != nil {
		return nil, cos.NewErrDecrypt("cipherset: malformed channel inner packet: %v", err)
	}
	return inner, nil
}

// EncryptChannelPacket seals inner and prefixes the wire body with Token().
func (sess *Session) EncryptChannelPacket(inner *lob.Packet) (*lob.Packet, error) {
	sealed := sess.send.Seal("channel", nil, inner.Bytes())
	body := make([]byte, 8+len(sealed))
	copy(body, sess.token[:])
	copy(body[8:], sealed)
	return &lob.Packet{Body: body}, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
