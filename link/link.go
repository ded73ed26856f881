// Package link implements the mesh's per-peer handle (spec.md section 3
// "Link", section 4.3 "Link / exchange boundary"): a hashname, a nullable
// cipher-set exchange, the routing token it exposes, and the small set of
// open channel ids routed through it.
//
// Shaped after carleeto-iris's proto/link.Link - a full-duplex aggregate
// wrapping a per-peer crypto session - but adapted from iris's symmetric
// stream-cipher duplex (goroutines pumping two channels) to this spec's
// synchronous, caller-driven model: every method here runs to completion
// and returns, matching spec.md section 5's "no internal suspension."
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package link

import (
	"github.com/ribbonmesh/core/cmn/cos"
	"github.com/ribbonmesh/core/cmn/mono"
	"github.com/ribbonmesh/core/cmn/nlog"
	"github.com/ribbonmesh/core/exchange"
	"github.com/ribbonmesh/core/hashname"
	"github.com/ribbonmesh/core/lob"
)

// Owner is the minimal surface a Link needs from the mesh that created it
// (spec.md section 3: Link "owns a back-reference to its mesh"). Kept as
// a narrow interface, not a dependency on package mesh, since mesh already
// imports link - accept interfaces, don't create cycles.
type Owner interface {
	Hashname() hashname.Hashname
}

// Opener establishes an outbound per-peer cryptographic session to a raw
// public key. cipherset.Set implements this.
type Opener interface {
	NewExchange(peerRawKey []byte) (exchange.Exchange, error)
}

// Pipe is a non-blocking transport send callback attached to a Link by a
// path-resolution hook (spec.md section 4.1 `path` hook, package pipe).
type Pipe func(outer *lob.Packet) error

// Link is the mesh's handle for one peer.
type Link struct {
	owner    Owner
	peer     hashname.Hashname
	csid     byte
	x        exchange.Exchange
	pipe     Pipe
	channels []uint32

	// seenAt is a process-local monotonic timestamp of the last inbound
	// activity, used only for the idle diagnostic in JSON - distinct from
	// the protocol's caller-supplied uint32 second clock, which never
	// regresses across restarts and is what Touch/last-at bookkeeping
	// actually runs on.
	seenAt int64

	// OnReceive, when set, is called with every channel packet's decrypted
	// inner payload - the hand-off point to the higher-level channel
	// protocols spec.md section 1 declares out of scope.
	OnReceive func(l *Link, inner *lob.Packet)
}

// New returns a Link for peer, owned by owner, with no exchange attached
// yet (spec.md: "the current exchange (nullable before handshake
// completes)").
func New(owner Owner, peer hashname.Hashname) *Link {
	return &Link{owner: owner, peer: peer}
}

// Hashname is the peer this Link addresses.
func (l *Link) Hashname() hashname.Hashname { return l.peer }

// Exchange is the current cipher-set session, or nil before a handshake
// has completed.
func (l *Link) Exchange() exchange.Exchange { return l.x }

// CSID is the cipher-set id selecting the active exchange. Zero means the
// link is marked for removal at the next sweep (spec.md section 3/4.1).
func (l *Link) CSID() byte { return l.csid }

// Token yields the current exchange's 8-byte routing prefix, and false if
// no exchange is attached yet.
func (l *Link) Token() ([8]byte, bool) {
	if l.x == nil {
		return [8]byte{}, false
	}
	return l.x.Token(), true
}

// Load establishes an outbound exchange to the peer's raw public key for
// the given cipher set, via opener, corresponding to spec.md section 4.3's
// `link_load(link, csid, keys_packet)`.
func (l *Link) Load(csid byte, rawKey []byte, opener Opener) error {
	x, err := opener.NewExchange(rawKey)
	if err != nil {
		return err
	}
	l.csid = csid
	l.x = x
	return nil
}

// Attach installs an already-established exchange (the product of a
// successful inbound handshake) directly, without going through Load.
func (l *Link) Attach(csid byte, x exchange.Exchange) {
	l.csid = csid
	l.x = x
}

// ReceiveHandshake delivers a decrypted handshake inner packet to the
// link. It records the handshake's arrival time on the exchange and the
// idle diagnostic, and is otherwise a no-op: `h` is not inspected, and the
// mesh dispatcher passes it as decrypted, without adding csid, hashname or
// keys fields to it.
func (l *Link) ReceiveHandshake(now uint32, h *lob.Packet) error {
	if h == nil {
		return cos.NewErrBadArgs("link: nil handshake packet")
	}
	if l.x != nil {
		l.x.Touch(now)
	}
	l.seenAt = mono.NanoTime()
	return nil
}

// Receive delivers a decrypted channel-packet inner to the link: it
// records the channel id (inner.ID) as open if new, touches the exchange's
// last-received-at, and fans out to OnReceive if set.
func (l *Link) Receive(now uint32, inner *lob.Packet) error {
	if inner == nil {
		return cos.NewErrBadArgs("link: nil inner packet")
	}
	if l.x != nil {
		l.x.Touch(now)
	}
	l.seenAt = mono.NanoTime()
	l.openChannel(uint32(inner.ID))
	if l.OnReceive != nil {
		l.OnReceive(l, inner)
	}
	return nil
}

// Send hands outer to the attached pipe. Per spec.md section 5, the pipe
// is expected to be non-blocking; Send itself never blocks.
func (l *Link) Send(outer *lob.Packet) error {
	if l.pipe == nil {
		return cos.NewErrNotFound("link: no pipe attached for %s", l.peer)
	}
	return l.pipe(outer)
}

// SetPipe attaches the transport send callback a path-resolution hook
// selected for this link.
func (l *Link) SetPipe(p Pipe) { l.pipe = p }

// HasPipe reports whether a transport send callback is attached.
func (l *Link) HasPipe() bool { return l.pipe != nil }

// Process runs per-link timeout handling on each mesh.Process(now) tick.
// The core has no timeout policy of its own (spec.md section 1's
// non-goals exclude "transport-level congestion control"); this is the
// extension point a consumer-level keep-alive protocol hooks into.
func (l *Link) Process(_ uint32) {}

// Unlink marks the link for removal at the next sweep, per spec.md
// section 3's `csid == 0` sentinel.
func (l *Link) Unlink() {
	nlog.Infof("link: unlinking %s", l.peer)
	l.csid = 0
}

// IsUnlinked reports the lazy-removal sentinel.
func (l *Link) IsUnlinked() bool { return l.csid == 0 }

// Channels returns the currently open channel ids, in the order first
// observed.
func (l *Link) Channels() []uint32 { return append([]uint32(nil), l.channels...) }

func (l *Link) openChannel(id uint32) {
	for _, c := range l.channels {
		if c == id {
			return
		}
	}
	l.channels = append(l.channels, id)
}

// IdleNanos reports how long it has been, in process-local monotonic
// nanoseconds, since the last inbound handshake or channel packet. It
// returns the full process uptime if nothing has ever arrived.
func (l *Link) IdleNanos() int64 {
	if l.seenAt == 0 {
		return mono.NanoTime()
	}
	return mono.NanoTime() - l.seenAt
}

// JSON mirrors telehash-c's link diagnostic export: peer hashname, active
// csid, open channel count, and local idle time.
func (l *Link) JSON() map[string]any {
	return map[string]any{
		"hashname": l.peer.String(),
		"csid":     l.csid,
		"channels": len(l.channels),
		"idle_ns":  l.IdleNanos(),
	}
}
