// Package mesh implements the dispatcher spec.md section 4.1 describes:
// packet demultiplex by head length, handshake ingestion, the link table
// indexed by hashname/short-hashname/token, and the extensibility hook
// fan-outs.
//
// Grounded on original_source/telehash-c/src/mesh.c's mesh_receive /
// mesh_receive_handshake / mesh_process family, adapted from its
// intrusive singly-linked link list (spec.md section 9's design note
// prefers a vector) to a plain Go slice, and from its malloc/free
// packet-ownership discipline to ordinary Go garbage collection.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package mesh

import (
	"github.com/ribbonmesh/core/cipherset"
	"github.com/ribbonmesh/core/cmn/cos"
	"github.com/ribbonmesh/core/cmn/debug"
	"github.com/ribbonmesh/core/cmn/nlog"
	"github.com/ribbonmesh/core/hashname"
	"github.com/ribbonmesh/core/hooks"
	"github.com/ribbonmesh/core/link"
	"github.com/ribbonmesh/core/lob"
	"github.com/ribbonmesh/core/pipe"
)

// Mesh is the single-actor dispatcher and link table for one local
// identity. Construct with New; the zero value has no hook list or pipe
// registry and is not usable. Call Load or Generate before any handshake
// can complete. Not safe for concurrent use - the caller
// serialises Receive, Process, and hook registration (spec.md section 5).
type Mesh struct {
	self  *cipherset.Set
	id    hashname.Hashname
	links []*link.Link
	hooks *hooks.List
	pipes *pipe.Registry

	// tokenIndex and shortIndex are FastHash-bucketed lookup caches over
	// links, rebuilt from scratch on demand whenever indexDirty is set -
	// a linear scan per inbound channel or routed packet is the first
	// thing a profiler flags once a mesh carries more than a handful of
	// peers.
	tokenIndex map[uint64][]*link.Link
	shortIndex map[uint64][]*link.Link
	indexDirty bool
}

// New returns an empty mesh, corresponding to mesh_new.
func New() *Mesh {
	return &Mesh{hooks: hooks.NewList(), pipes: pipe.NewRegistry(), indexDirty: true}
}

// Load constructs the local self from a previously persisted raw private
// key and derives the local hashname, corresponding to mesh_load. It
// fails if a self is already loaded (spec.md section 3's invariant: "no
// link may be created before mesh_load has succeeded").
func (m *Mesh) Load(rawPriv []byte) error {
	if m.self != nil {
		return cos.NewErrBadArgs("mesh: already loaded")
	}
	set, err := cipherset.Load(rawPriv)
	if err != nil {
		return err
	}
	hn, err := set.Hashname()
	if err != nil {
		return err
	}
	m.self = set
	m.id = hn
	return nil
}

// Generate creates a fresh local identity, loads it, and returns the raw
// private key for the caller to persist, corresponding to mesh_generate.
func (m *Mesh) Generate() ([]byte, error) {
	if m.self != nil {
		return nil, cos.NewErrBadArgs("mesh: already loaded")
	}
	set, err := cipherset.Generate()
	if err != nil {
		return nil, err
	}
	hn, err := set.Hashname()
	if err != nil {
		return nil, err
	}
	m.self = set
	m.id = hn
	return set.RawPrivateKey(), nil
}

// Hashname is the local identity's fingerprint. It also satisfies
// link.Owner, so a *Mesh can own its own links.
func (m *Mesh) Hashname() hashname.Hashname { return m.id }

// Self is the local cipher-set identity, or nil before Load/Generate.
func (m *Mesh) Self() *cipherset.Set { return m.self }

// Hooks is the mesh's extensibility hook list, for registration by
// consumers.
func (m *Mesh) Hooks() *hooks.List { return m.hooks }

// Pipes is the mesh's path-resolver registry, for registration by
// transport adapters.
func (m *Mesh) Pipes() *pipe.Registry { return m.pipes }

// Links returns the current link table in creation order.
func (m *Mesh) Links() []*link.Link { return append([]*link.Link(nil), m.links...) }

// LinkByHashname returns the link with the given full hashname, or nil.
func (m *Mesh) LinkByHashname(hn hashname.Hashname) *link.Link {
	for _, l := range m.links {
		if l.Hashname().Equal(hn) {
			return l
		}
	}
	return nil
}

// LinkByPrefix returns the first link whose string-form hashname begins
// with prefix, corresponding to mesh_linked.
func (m *Mesh) LinkByPrefix(prefix string) *link.Link {
	for _, l := range m.links {
		if l.Hashname().HasPrefix(prefix) {
			return l
		}
	}
	return nil
}

// LinkByToken returns the link whose current exchange token matches, or
// nil.
func (m *Mesh) LinkByToken(token [8]byte) *link.Link {
	m.ensureIndexes()
	for _, l := range m.tokenIndex[cos.FastHash(token[:])] {
		if t, ok := l.Token(); ok && t == token {
			return l
		}
	}
	return nil
}

// LinkByShort returns the link whose hashname's short form matches, or
// nil.
func (m *Mesh) LinkByShort(short [5]byte) *link.Link {
	m.ensureIndexes()
	for _, l := range m.shortIndex[cos.FastHash(short[:])] {
		if l.Hashname().Short() == short {
			return l
		}
	}
	return nil
}

// ensureIndexes rebuilds the token/short indexes if anything has changed
// the link table since the last lookup.
func (m *Mesh) ensureIndexes() {
	if !m.indexDirty {
		return
	}
	m.tokenIndex = make(map[uint64][]*link.Link, len(m.links))
	m.shortIndex = make(map[uint64][]*link.Link, len(m.links))
	for _, l := range m.links {
		short := l.Hashname().Short()
		sh := cos.FastHash(short[:])
		m.shortIndex[sh] = append(m.shortIndex[sh], l)
		if tok, ok := l.Token(); ok {
			th := cos.FastHash(tok[:])
			m.tokenIndex[th] = append(m.tokenIndex[th], l)
		}
	}
	m.indexDirty = false
}

// getOrCreateLink returns the existing link for peer, or creates, tables,
// and returns a new one - firing the Link hook only on creation.
func (m *Mesh) getOrCreateLink(peer hashname.Hashname) *link.Link {
	if l := m.LinkByHashname(peer); l != nil {
		return l
	}
	l := link.New(m, peer)
	m.links = append(m.links, l)
	m.indexDirty = true
	debug.Assert(m.linkCount(peer) == 1, "exactly one link per hashname")
	m.hooks.FireLink(l)
	return l
}

// linkCount is a debug-only invariant check (spec.md section 3: "exactly
// one link exists per peer hashname in a mesh").
func (m *Mesh) linkCount(peer hashname.Hashname) int {
	n := 0
	for _, l := range m.links {
		if l.Hashname().Equal(peer) {
			n++
		}
	}
	return n
}

// Unlink marks l for removal at the next Process sweep (mesh_unlink).
func (m *Mesh) Unlink(l *link.Link) {
	if l == nil {
		return
	}
	l.Unlink()
}

// Process runs per-link timeout handling and sweeps links marked for
// removal (csid == 0), corresponding to mesh_process. now must be
// nonzero, matching the source's "bad args" guard on a zero clock.
func (m *Mesh) Process(now uint32) error {
	if now == 0 {
		return cos.NewErrBadArgs("mesh: Process requires a nonzero now")
	}
	kept := m.links[:0]
	swept := false
	for _, l := range m.links {
		if l.IsUnlinked() {
			m.hooks.FireFree(l)
			swept = true
			continue
		}
		l.Process(now)
		kept = append(kept, l)
	}
	m.links = kept
	if swept {
		m.indexDirty = true
	}
	return nil
}

// Receive classifies and dispatches one inbound packet per spec.md
// section 4.1's head_len table, taking ownership of outer. now is used
// to time-stamp handshake arrival and channel-packet activity.
func (m *Mesh) Receive(now uint32, outer *lob.Packet) (*link.Link, error) {
	if outer == nil {
		return nil, cos.NewErrBadArgs("mesh: nil packet")
	}
	switch outer.HeadLen() {
	case 5:
		return m.receiveRouted(outer)
	case 1:
		return m.receiveHandshake(now, outer)
	case 0:
		return m.receiveChannel(now, outer)
	default:
		return m.receiveDescriptor(outer)
	}
}

// receiveRouted forwards a routed packet's parsed body to the link
// addressed by its short hashname.
func (m *Mesh) receiveRouted(outer *lob.Packet) (*link.Link, error) {
	short, ok := outer.ShortHashname()
	if !ok {
		nlog.Warningf("mesh[%s]: malformed routed packet head", cos.CorrelationID())
		return nil, cos.NewErrBadArgs("mesh: malformed routed packet head")
	}
	var s [hashname.ShortSize]byte
	copy(s[:], short)
	l := m.LinkByShort(s)
	if l == nil {
		nlog.Warningf("mesh[%s]: no link for short hashname %x", cos.CorrelationID(), s)
		return nil, cos.NewErrNotFound("mesh: no link for short hashname")
	}
	inner, err := lob.Parse(outer.Body)
	if err != nil {
		return nil, err
	}
	return l, l.Send(inner)
}

// receiveHandshake authenticates a first-contact or repeat handshake,
// tables a link for its sender if one does not already exist, and fans
// out the discover hook only when that link is new (spec.md section 4.1's handshake path, folded
// together with mesh_receive_handshake since this module's single cipher
// set makes the csid/normalisation bookkeeping there moot).
func (m *Mesh) receiveHandshake(now uint32, outer *lob.Packet) (*link.Link, error) {
	if m.self == nil {
		return nil, cos.NewErrBadArgs("mesh: no local identity loaded")
	}
	inner, sess, err := m.self.DecryptHandshake(outer)
	if err != nil {
		nlog.Warningf("mesh[%s]: handshake decrypt failed: %v", cos.CorrelationID(), err)
		return nil, err
	}
	from, err := hashname.FromKeys(map[byte][]byte{cipherset.CSID: sess.PeerRawKey()})
	if err != nil {
		nlog.Warningf("mesh[%s]: handshake hashname derivation failed: %v", cos.CorrelationID(), err)
		return nil, err
	}

	isNew := m.LinkByHashname(from) == nil
	l := m.getOrCreateLink(from)
	l.Attach(cipherset.CSID, sess)
	m.indexDirty = true // Attach may have assigned a fresh token on a repeat handshake
	if err := l.ReceiveHandshake(now, inner); err != nil {
		nlog.Warningf("mesh[%s]: handshake rejected by link %s: %v", cos.CorrelationID(), from, err)
		return nil, err
	}
	m.hooks.FireOpened(l)
	if isNew {
		m.hooks.FireDiscover(from, outer)
	}
	return l, nil
}

// Open threads a channel-open request packet through every registered
// Open hook, corresponding to mesh_open. Any hook may substitute a
// replacement packet or suppress the request by returning nil, and the
// chain stops at the first nil; the final value is returned for the
// caller to send.
func (m *Mesh) Open(l *link.Link, open *lob.Packet) *lob.Packet {
	return m.hooks.Open(l, open)
}

// receiveChannel demuxes a channel packet by its 8-byte token prefix,
// decrypts it through the matched link's exchange, and delivers the
// inner packet to the link.
func (m *Mesh) receiveChannel(now uint32, outer *lob.Packet) (*link.Link, error) {
	if len(outer.Body) < 16 {
		nlog.Warningf("mesh[%s]: channel packet body too short (%d bytes)", cos.CorrelationID(), len(outer.Body))
		return nil, cos.NewErrBadArgs("mesh: channel packet body too short (%d bytes)", len(outer.Body))
	}
	var tok [8]byte
	copy(tok[:], outer.Body[:8])
	l := m.LinkByToken(tok)
	if l == nil {
		nlog.Warningf("mesh[%s]: no link for token %x", cos.CorrelationID(), tok)
		return nil, cos.NewErrNotFound("mesh: no link for token")
	}
	inner, err := l.Exchange().ReceiveChannelPacket(outer)
	if err != nil {
		return nil, err
	}
	return l, l.Receive(now, inner)
}

// receiveDescriptor handles a JSON-headed packet (head_len >= 2): a bare
// link descriptor advertising keys is run through discovery; anything
// else is dropped per spec.md section 9's open question on non-JSON
// heads of length >= 2.
func (m *Mesh) receiveDescriptor(outer *lob.Packet) (*link.Link, error) {
	if !outer.IsJSON() {
		nlog.Warningf("mesh[%s]: non-JSON head of length %d", cos.CorrelationID(), outer.HeadLen())
		return nil, cos.NewErrBadArgs("mesh: non-JSON head of length %d", outer.HeadLen())
	}
	head, err := outer.HeadJSON()
	if err != nil {
		nlog.Warningf("mesh[%s]: malformed JSON head: %v", cos.CorrelationID(), err)
		return nil, cos.NewErrBadArgs("mesh: malformed JSON head: %v", err)
	}

	keysRaw, _ := head["keys"].(map[string]any)
	var from hashname.Hashname
	var haveFrom bool
	if len(keysRaw) > 0 {
		if hn, ok := hashnameFromJSONKeys(keysRaw); ok {
			from = hn
			haveFrom = true
		}
	}

	if !haveFrom {
		return nil, nil
	}
	m.hooks.FireDiscover(from, outer)

	l := m.LinkByHashname(from)
	if l != nil {
		if paths, ok := head["paths"].([]any); ok {
			m.offerPaths(l, paths)
		}
	}
	return l, nil
}

// offerPaths runs each path descriptor in a link-add JSON through the
// path hook and the pipe registry, corresponding to mesh_add's `for
// path=paths... mesh_path(mesh,link,path)` loop.
func (m *Mesh) offerPaths(l *link.Link, paths []any) {
	for _, raw := range paths {
		path := &lob.Packet{}
		if err := path.SetHeadJSON(raw); err != nil {
			continue
		}
		m.hooks.FirePath(l, path)
		if !l.HasPipe() {
			m.pipes.Resolve(l, path)
		}
	}
}

func hashnameFromJSONKeys(keys map[string]any) (hashname.Hashname, bool) {
	raw := make(map[byte][]byte, len(keys))
	for hex, v := range keys {
		s, ok := v.(string)
		if !ok {
			continue
		}
		csid, err := parseHexByte(hex)
		if err != nil {
			continue
		}
		key, err := decodeBase32Key(s)
		if err != nil {
			continue
		}
		raw[csid] = key
	}
	if len(raw) == 0 {
		return hashname.Hashname{}, false
	}
	hn, err := hashname.FromKeys(raw)
	if err != nil {
		return hashname.Hashname{}, false
	}
	return hn, true
}

// JSON is a diagnostic export: the local hashname (once loaded) and, under
// "links", each currently tabled link's own JSON. It carries no keys object
// and no paths list.
func (m *Mesh) JSON() map[string]any {
	links := make([]map[string]any, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l.JSON())
	}
	out := map[string]any{"links": links}
	if m.self != nil {
		out["hashname"] = m.id.String()
	}
	return out
}
