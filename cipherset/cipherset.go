// Package cipherset ships the one concrete default `Cipher provider`
// spec.md section 1 leaves abstract: key generation, the self/exchange
// handshake primitives, and channel-packet AEAD for cipher-set id 0x1a.
// Like every other abstract collaborator in this module, it exists so the
// mesh is runnable end-to-end; swapping in a different cipher set means
// implementing exchange.Exchange and a Set-shaped key manager, nothing in
// `mesh` or `link` is specific to this package.
//
// The session transcript is built with github.com/codahale/thyrse
// (Mix/Fork/Derive/Seal/Open), the same protocol-object idiom
// schemes/complex/sig and schemes/complex/adratchet use in the example
// corpus; keys live on the ristretto255 group via
// github.com/gtank/ristretto255, grounded on the exact API surface
// (NewIdentityElement, ScalarBaseMult, ScalarMult, SetUniformBytes,
// SetCanonicalBytes) exercised throughout codahale-thyrse's schemes/complex
// packages.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package cipherset

import (
	"bytes"
	"crypto/rand"

	"github.com/codahale/thyrse"
	"github.com/gtank/ristretto255"

	"github.com/ribbonmesh/core/cmn/cos"
	"github.com/ribbonmesh/core/exchange"
	"github.com/ribbonmesh/core/hashname"
	"github.com/ribbonmesh/core/lob"
)

// CSID is this cipher set's one-byte identifier, used in handshake heads
// and in hashname key maps.
const CSID byte = 0x1a

const (
	sessionDomain = "ribbonmesh/cipherset/1a/session"
	tokenLabel    = "token"
	handshakeOp   = "handshake"
)

// Set is the local self: a long-term ristretto255 keypair and the
// cipher-set-level operations that turn a peer's raw public key into an
// established Session (spec.md section 3 "Mesh... self (cipher state)").
type Set struct {
	priv *ristretto255.Scalar
	pub  *ristretto255.Element
}

// Generate creates a new random Set, analogous to spec.md's
// `mesh_generate` producing fresh secrets.
func Generate() (*Set, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return nil, err
	}
	priv, err := ristretto255.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return nil, cos.NewErrBadArgs("cipherset: key generation failed: %v", err)
	}
	return &Set{
		priv: priv,
		pub:  ristretto255.NewIdentityElement().ScalarBaseMult(priv),
	}, nil
}

// Load reconstructs a Set from a previously persisted 32-byte raw private
// scalar, analogous to `mesh_load` consuming a secrets packet.
func Load(rawPriv []byte) (*Set, error) {
	priv, err := ristretto255.NewScalar().SetCanonicalBytes(rawPriv)
	if err != nil || priv == nil {
		return nil, cos.NewErrBadArgs("cipherset: malformed private scalar")
	}
	return &Set{
		priv: priv,
		pub:  ristretto255.NewIdentityElement().ScalarBaseMult(priv),
	}, nil
}

// RawPublicKey is this Set's raw public key bytes, the value that goes
// into a hashname key map and a handshake's `keys` field.
func (s *Set) RawPublicKey() []byte { return s.pub.Bytes() }

// RawPrivateKey is this Set's raw private scalar bytes, for persistence
// by the caller (spec.md's `mesh_generate` "returns the secrets packet to
// the caller").
func (s *Set) RawPrivateKey() []byte { return s.priv.Bytes() }

// Hashname derives this Set's self-certifying fingerprint.
func (s *Set) Hashname() (hashname.Hashname, error) {
	return hashname.FromKeys(map[byte][]byte{CSID: s.RawPublicKey()})
}

// EncryptHandshake seals inner as the body of a new handshake packet
// addressed to the exchange's peer, using its already-derived transcript.
func (s *Set) EncryptHandshake(sess *Session, inner *lob.Packet) (*lob.Packet, error) {
	sealed := sess.handshakeProto().Seal(handshakeOp, nil, inner.Bytes())
	body := make([]byte, 0, 32+len(sealed))
	body = append(body, s.pub.Bytes()...)
	body = append(body, sealed...)
	return &lob.Packet{Head: []byte{CSID}, Body: body}, nil
}

// NewSession establishes an outbound Session to a peer identified by its
// raw public key, without yet having received a handshake from it (the
// initiating side of spec.md's handshake lifecycle).
func (s *Set) NewSession(peerRaw []byte) (*Session, error) {
	peerPub, err := ristretto255.NewIdentityElement().SetCanonicalBytes(peerRaw)
	if err != nil || peerPub == nil {
		return nil, cos.NewErrBadArgs("cipherset: malformed peer public key")
	}
	shared := deriveShared(s.priv, peerPub)
	return newSession(s.pub.Bytes(), peerPub.Bytes(), shared), nil
}

// NewExchange adapts NewSession to the exchange.Exchange-returning shape
// package link's Opener interface expects, so link never imports
// cipherset directly.
func (s *Set) NewExchange(peerRaw []byte) (exchange.Exchange, error) {
	return s.NewSession(peerRaw)
}

// DecryptHandshake authenticates and decrypts a first-contact handshake
// packet (head_len == 1, head[0] == CSID), returning the decrypted inner
// packet and the freshly established Session. Corresponds to spec.md
// section 4.1's `self.decrypt_handshake(outer)`.
func (s *Set) DecryptHandshake(outer *lob.Packet) (*lob.Packet, *Session, error) {
	if outer == nil {
		return nil, nil, cos.NewErrBadArgs("cipherset: nil packet")
	}
	csid, ok := outer.CSID()
	if !ok || csid != CSID {
		return nil, nil, cos.NewErrBadArgs("cipherset: not a csid %#x handshake", CSID)
	}
	if len(outer.Body) < 32 {
		return nil, nil, cos.NewErrBadArgs("cipherset: handshake body too short")
	}
	peerRaw := outer.Body[:32]
	peerPub, err := ristretto255.NewIdentityElement().SetCanonicalBytes(peerRaw)
	if err != nil || peerPub == nil {
		return nil, nil, cos.NewErrDecrypt("cipherset: malformed peer public key")
	}
	shared := deriveShared(s.priv, peerPub)
	sess := newSession(s.pub.Bytes(), peerRaw, shared)

	plain, err := sess.handshakeProto().Open(handshakeOp, nil, outer.Body[32:])
	if err != nil {
		return nil, nil, cos.NewErrDecrypt("cipherset: handshake authentication failed")
	}
	inner, err := lob.Parse(plain)
	if err != nil {
		return nil, nil, cos.NewErrDecrypt("cipherset: malformed handshake inner packet: %v", err)
	}
	return inner, sess, nil
}

func deriveShared(priv *ristretto255.Scalar, peerPub *ristretto255.Element) []byte {
	dh := ristretto255.NewIdentityElement().ScalarMult(priv, peerPub)
	return dh.Bytes()
}

// newSession builds a Session whose transcript is keyed symmetrically: the
// two raw public keys are mixed in sorted order so both participants,
// regardless of who initiated, derive the same handshake opener, the same
// token, and complementary send/recv channel-packet chains.
func newSession(localRaw, peerRaw, shared []byte) *Session {
	lowRaw, highRaw := localRaw, peerRaw
	localIsLow := true
	if bytes.Compare(localRaw, peerRaw) > 0 {
		lowRaw, highRaw = peerRaw, localRaw
		localIsLow = false
	}

	sess := &Session{
		lowRaw:     append([]byte(nil), lowRaw...),
		highRaw:    append([]byte(nil), highRaw...),
		shared:     append([]byte(nil), shared...),
		peerRawKey: append([]byte(nil), peerRaw...),
	}

	var token [8]byte
	copy(token[:], sess.handshakeProto().Clone().Derive(tokenLabel, nil, 8))
	sess.token = token

	low, high := sess.handshakeProto().Fork("role", []byte("low"), []byte("high"))
	if localIsLow {
		sess.send, sess.recv = low, high
	} else {
		sess.send, sess.recv = high, low
	}
	return sess
}

// handshakeProto rebuilds the one-shot transcript used to Seal/Open
// handshake bodies. It is recomputed from the stored sorted keys and
// shared secret on every call (rather than consumed once) so that repeat
// handshakes against an established Session - re-announcing a `keys`
// object, for instance - can call Open again.
func (sess *Session) handshakeProto() *thyrse.Protocol {
	p := thyrse.New(sessionDomain)
	p.Mix("key-low", sess.lowRaw)
	p.Mix("key-high", sess.highRaw)
	p.Mix("dh", sess.shared)
	return p
}
