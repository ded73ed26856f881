/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package lob_test

import (
	"testing"

	"github.com/ribbonmesh/core/lob"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		body []byte
	}{
		{"channel", nil, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"handshake", []byte{0x1a}, []byte("ciphertext-goes-here")},
		{"routed", []byte{1, 2, 3, 4, 5}, []byte("inner packet bytes")},
		{"json", []byte(`{"type":"link","at":123}`), []byte("rawkeybytes")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &lob.Packet{Head: c.head, Body: c.body}
			buf := p.Bytes()
			got, err := lob.Parse(buf)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if string(got.Head) != string(c.head) || string(got.Body) != string(c.body) {
				t.Fatalf("round trip mismatch: head=%q body=%q", got.Head, got.Body)
			}
		})
	}
}

func TestHeadLenClassification(t *testing.T) {
	mustClassify := func(p *lob.Packet, channel, handshake, routed, jsonHead bool) {
		t.Helper()
		if p.IsChannel() != channel || p.IsHandshake() != handshake || p.IsRouted() != routed || p.IsJSON() != jsonHead {
			t.Fatalf("classification mismatch for head=%v: channel=%v handshake=%v routed=%v json=%v",
				p.Head, p.IsChannel(), p.IsHandshake(), p.IsRouted(), p.IsJSON())
		}
	}
	mustClassify(&lob.Packet{}, true, false, false, false)
	mustClassify(&lob.Packet{Head: []byte{0x1a}}, false, true, false, false)
	mustClassify(&lob.Packet{Head: []byte{1, 2, 3, 4, 5}}, false, false, true, false)
	mustClassify(&lob.Packet{Head: []byte(`{"a":1}`)}, false, false, false, true)
}

func TestHeadJSONRoundTrip(t *testing.T) {
	p := lob.New()
	if err := p.SetHeadJSON(map[string]any{"type": "link", "at": float64(42)}); err != nil {
		t.Fatalf("SetHeadJSON: %v", err)
	}
	m, err := p.HeadJSON()
	if err != nil {
		t.Fatalf("HeadJSON: %v", err)
	}
	if m["type"] != "link" || m["at"] != float64(42) {
		t.Fatalf("unexpected decoded head: %#v", m)
	}
}

func TestParseRejectsTruncated(t *testing.T) {
	if _, err := lob.Parse([]byte{0, 5, 1, 2}); err == nil {
		t.Fatal("expected error for truncated packet")
	}
	if _, err := lob.Parse([]byte{0}); err == nil {
		t.Fatal("expected error for packet shorter than length prefix")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := &lob.Packet{Head: []byte{1, 2, 3}, Body: []byte{4, 5, 6}}
	c := p.Clone()
	c.Head[0] = 0xff
	c.Body[0] = 0xff
	if p.Head[0] == 0xff || p.Body[0] == 0xff {
		t.Fatal("clone shares backing array with original")
	}
}
