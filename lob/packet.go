// Package lob implements the packet envelope that every mesh wire message
// is framed in: a 2-byte big-endian head length, opaque head bytes, and an
// opaque body. It is the binary envelope named "Packet" in spec.md section
// 3/6 - carried over arbitrary transports and reused, unparsed, by the
// handshake and channel-packet pipelines.
//
// Head-length classification (spec.md section 6):
//
//	0            channel packet; body[0:8] is the routing token
//	1            handshake; head[0] is the cipher-set id byte
//	5            routed packet; head[0:5] is a short hashname
//	>=2, JSON    UTF-8 JSON object (first head byte >= 0x20)
//
// JSON heads are encoded/decoded with json-iterator rather than
// encoding/json, matching the substitution cmn/cos/fs.go makes.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package lob

import (
	"encoding/binary"
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/ribbonmesh/core/cmn/cos"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Packet is the envelope. Linked holds an inner packet produced by a
// decrypt/unwrap step (e.g. a handshake's decrypted inner packet); ID is a
// free-form integer higher layers use as a sequence number or timestamp
// tag (spec.md section 3).
type Packet struct {
	Head   []byte
	Body   []byte
	Linked *Packet
	ID     int
}

// New returns an empty packet ready for SetHeadJSON or direct Head/Body
// assignment.
func New() *Packet { return &Packet{} }

// Parse reads a wire-format packet out of buf: u16be head length, head
// bytes, then the remainder as body. It does not copy buf; callers that
// retain buf after Parse must clone first.
func Parse(buf []byte) (*Packet, error) {
	if len(buf) < 2 {
		return nil, cos.NewErrBadArgs("packet shorter than head-length prefix (%d bytes)", len(buf))
	}
	hlen := int(binary.BigEndian.Uint16(buf[:2]))
	if 2+hlen > len(buf) {
		return nil, cos.NewErrBadArgs("head length %d exceeds packet size %d", hlen, len(buf))
	}
	p := &Packet{
		Head: buf[2 : 2+hlen],
		Body: buf[2+hlen:],
	}
	return p, nil
}

// Bytes marshals the packet back to wire format.
func (p *Packet) Bytes() []byte {
	out := make([]byte, 2+len(p.Head)+len(p.Body))
	binary.BigEndian.PutUint16(out, uint16(len(p.Head)))
	copy(out[2:], p.Head)
	copy(out[2+len(p.Head):], p.Body)
	return out
}

// HeadLen is the classifying value from spec.md section 6's table.
func (p *Packet) HeadLen() int { return len(p.Head) }

// IsChannel reports a zero-length head (channel packet).
func (p *Packet) IsChannel() bool { return len(p.Head) == 0 }

// IsHandshake reports a 1-byte head (cipher-set id).
func (p *Packet) IsHandshake() bool { return len(p.Head) == 1 }

// IsRouted reports a 5-byte head (short hashname).
func (p *Packet) IsRouted() bool { return len(p.Head) == 5 }

// IsJSON reports a head that looks like a UTF-8 JSON object per spec.md
// section 3: length >= 2 and the first byte is a printable, non-control
// character (>= 0x20). It does not itself validate the JSON.
func (p *Packet) IsJSON() bool {
	return len(p.Head) >= 2 && p.Head[0] >= 0x20
}

var errNotJSONHead = errors.New("lob: head is not JSON-shaped")

// HeadJSON decodes the head as a JSON object. It returns errNotJSONHead
// if the head isn't JSON-shaped per IsJSON, and tolerates
// unknown fields per spec.md section 6.
func (p *Packet) HeadJSON() (map[string]any, error) {
	if !p.IsJSON() {
		return nil, errNotJSONHead
	}
	var m map[string]any
	if err := json.Unmarshal(p.Head, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetHeadJSON replaces the head with the JSON encoding of v.
func (p *Packet) SetHeadJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.Head = b
	return nil
}

// CSID returns the cipher-set-id byte of a handshake packet's head.
func (p *Packet) CSID() (byte, bool) {
	if !p.IsHandshake() {
		return 0, false
	}
	return p.Head[0], true
}

// ShortHashname returns the 5-byte routed-packet head.
func (p *Packet) ShortHashname() ([]byte, bool) {
	if !p.IsRouted() {
		return nil, false
	}
	return p.Head, true
}

// Clone returns a deep copy (head, body, and a shallow copy of Linked).
func (p *Packet) Clone() *Packet {
	c := &Packet{
		ID:     p.ID,
		Linked: p.Linked,
	}
	if p.Head != nil {
		c.Head = append([]byte(nil), p.Head...)
	}
	if p.Body != nil {
		c.Body = append([]byte(nil), p.Body...)
	}
	return c
}
