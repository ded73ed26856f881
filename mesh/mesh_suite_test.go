/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package mesh_test

import (
	"encoding/hex"
	"testing"

	"github.com/ribbonmesh/core/cipherset"
	"github.com/ribbonmesh/core/cmn/cos"
	"github.com/ribbonmesh/core/hashname"
	"github.com/ribbonmesh/core/hooks"
	"github.com/ribbonmesh/core/link"
	"github.com/ribbonmesh/core/lob"
	"github.com/ribbonmesh/core/mesh"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestMesh(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, t.Name())
}

// handshakeBetween builds the wire-format handshake packet `from` would
// send to announce itself, the same shape mesh.Receive expects on its
// head_len == 1 path.
func handshakeBetween(from, to *cipherset.Set) *lob.Packet {
	sess, err := from.NewSession(to.RawPublicKey())
	Expect(err).NotTo(HaveOccurred())

	inner := &lob.Packet{Body: []byte("hello")}
	outer, err := from.EncryptHandshake(sess, inner)
	Expect(err).NotTo(HaveOccurred())
	return outer
}

var _ = Describe("Mesh echo loopback (E1)", func() {
	It("links both sides with matching peer hashname and csid", func() {
		a := mesh.New()
		b := mesh.New()
		_, err := a.Generate()
		Expect(err).NotTo(HaveOccurred())
		_, err = b.Generate()
		Expect(err).NotTo(HaveOccurred())

		toA := handshakeBetween(b.Self(), a.Self())
		toB := handshakeBetween(a.Self(), b.Self())

		linkOnA, err := a.Receive(100, toA)
		Expect(err).NotTo(HaveOccurred())
		Expect(linkOnA).NotTo(BeNil())
		Expect(linkOnA.Hashname().Equal(b.Hashname())).To(BeTrue())
		Expect(linkOnA.CSID()).To(Equal(cipherset.CSID))

		linkOnB, err := b.Receive(100, toB)
		Expect(err).NotTo(HaveOccurred())
		Expect(linkOnB).NotTo(BeNil())
		Expect(linkOnB.Hashname().Equal(a.Hashname())).To(BeTrue())
		Expect(linkOnB.CSID()).To(Equal(cipherset.CSID))
	})

	It("fires the discover hook with the sender's hashname", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()

		var discovered hashname.Hashname
		a.Hooks().Register(hooks.Hook{
			ID: "test",
			Discover: func(from hashname.Hashname, outer *lob.Packet) {
				discovered = from
			},
		})

		_, err := a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())
		Expect(discovered.Equal(b.Hashname())).To(BeTrue())
	})

	It("fires the opened hook once a handshake completes", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()

		var opened *link.Link
		a.Hooks().Register(hooks.Hook{
			ID:     "test",
			Opened: func(l *link.Link) { opened = l },
		})

		_, err := a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())
		Expect(opened).To(Equal(a.LinkByHashname(b.Hashname())))
	})
})

var _ = Describe("Channel-open filtering", func() {
	It("threads the request through every Open hook and returns the final value", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()
		_, err := a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())
		l := a.LinkByHashname(b.Hashname())

		stamped := &lob.Packet{Body: []byte("stamped")}
		a.Hooks().Register(hooks.Hook{
			ID: "stamp",
			Open: func(_ *link.Link, open *lob.Packet) *lob.Packet {
				return stamped
			},
		})

		got := a.Open(l, &lob.Packet{Body: []byte("request")})
		Expect(got).To(Equal(stamped))
	})

	It("suppresses the request when a hook returns nil", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()
		_, err := a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())
		l := a.LinkByHashname(b.Hashname())

		called := false
		a.Hooks().Register(hooks.Hook{
			ID:   "veto",
			Open: func(*link.Link, *lob.Packet) *lob.Packet { return nil },
		})
		a.Hooks().Register(hooks.Hook{
			ID: "after",
			Open: func(_ *link.Link, open *lob.Packet) *lob.Packet {
				called = true
				return open
			},
		})

		Expect(a.Open(l, &lob.Packet{})).To(BeNil())
		Expect(called).To(BeFalse())
	})
})

var _ = Describe("Routed packet (E2)", func() {
	It("forwards the parsed body through the addressed link's pipe", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()

		_, err := a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())
		l := a.LinkByHashname(b.Hashname())
		Expect(l).NotTo(BeNil())

		var sent *lob.Packet
		l.SetPipe(func(outer *lob.Packet) error { sent = outer; return nil })

		short := b.Hashname().Short()
		inner := &lob.Packet{Body: []byte("0123456789012345678901234567890123456789")}
		outer := &lob.Packet{Head: short[:], Body: inner.Bytes()}

		got, err := a.Receive(2, outer)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(l))
		Expect(sent).NotTo(BeNil())
		Expect(sent.Body).To(Equal(inner.Body))
	})

	It("drops with an error when no link matches the short hashname", func() {
		a := mesh.New()
		_, _ = a.Generate()
		_, err := a.Receive(2, &lob.Packet{Head: []byte{1, 2, 3, 4, 5}, Body: []byte("x")})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Channel packet demux (E3)", func() {
	It("delivers the decrypted inner to the matched link", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()

		_, err := b.Receive(1, handshakeBetween(a.Self(), b.Self()))
		Expect(err).NotTo(HaveOccurred())
		_, err = a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())

		linkOnB := b.LinkByHashname(a.Hashname())
		Expect(linkOnB).NotTo(BeNil())
		linkOnA := a.LinkByHashname(b.Hashname())
		Expect(linkOnA).NotTo(BeNil())

		outer, err := linkOnA.Exchange().EncryptChannelPacket(&lob.Packet{ID: 9, Body: []byte("ping")})
		Expect(err).NotTo(HaveOccurred())

		var got *lob.Packet
		linkOnB.OnReceive = func(_ *link.Link, inner *lob.Packet) { got = inner }

		_, err = b.Receive(2, outer)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).NotTo(BeNil())
		Expect(got.Body).To(Equal([]byte("ping")))
	})

	It("drops with an error when no link matches the token", func() {
		a := mesh.New()
		_, _ = a.Generate()
		body := make([]byte, 16)
		_, err := a.Receive(2, &lob.Packet{Body: body})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Lazy unlink (E6)", func() {
	It("stays lookupable until the next Process sweep", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()
		_, err := a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())

		l := a.LinkByHashname(b.Hashname())
		Expect(l).NotTo(BeNil())
		a.Unlink(l)

		Expect(a.LinkByHashname(b.Hashname())).To(Equal(l))
		Expect(a.Process(101)).To(Succeed())
		Expect(a.LinkByHashname(b.Hashname())).To(BeNil())
	})

	It("fires the free hook for each link swept", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()
		_, err := a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())

		var freed *link.Link
		a.Hooks().Register(hooks.Hook{
			ID:   "test",
			Free: func(l *link.Link) { freed = l },
		})

		l := a.LinkByHashname(b.Hashname())
		a.Unlink(l)
		Expect(a.Process(101)).To(Succeed())
		Expect(freed).To(Equal(l))
	})
})

var _ = Describe("Path offers on a link-add descriptor", func() {
	It("fires the path hook and lets a pipe resolver attach", func() {
		a := mesh.New()
		b := mesh.New()
		_, _ = a.Generate()
		_, _ = b.Generate()
		_, err := a.Receive(1, handshakeBetween(b.Self(), a.Self()))
		Expect(err).NotTo(HaveOccurred())

		var offered *lob.Packet
		a.Hooks().Register(hooks.Hook{
			ID:   "test",
			Path: func(_ *link.Link, path *lob.Packet) { offered = path },
		})
		a.Pipes().Register("mock", func(l *link.Link, path *lob.Packet) bool {
			l.SetPipe(func(*lob.Packet) error { return nil })
			return true
		})

		short := b.Hashname().Short()
		descriptor := map[string]any{
			"keys": map[string]any{
				hex.EncodeToString([]byte{cipherset.CSID}): cos.Base32Encode(b.Self().RawPublicKey()),
			},
			"paths": []any{map[string]any{"type": "mock"}},
		}
		outer := &lob.Packet{}
		Expect(outer.SetHeadJSON(descriptor)).To(Succeed())

		_, err = a.Receive(1, outer)
		Expect(err).NotTo(HaveOccurred())
		Expect(offered).NotTo(BeNil())

		l := a.LinkByShort(short)
		Expect(l).NotTo(BeNil())
		Expect(l.HasPipe()).To(BeTrue())
	})
})
