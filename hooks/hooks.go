// Package hooks implements the mesh's extensibility points: the
// free/link/path/open/discover callbacks spec.md sections 3 and 4.1
// describe abstractly as "the mesh's registered hook set."
//
// Built on an id-keyed, register-or-replace callback table: registering
// under an id already in the list mutates that record's callback slots
// in place rather than appending a duplicate, per spec.md section 6's
// "duplicate registration... replaces callback slots individually."
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package hooks

import (
	"github.com/ribbonmesh/core/hashname"
	"github.com/ribbonmesh/core/link"
	"github.com/ribbonmesh/core/lob"
)

// Hook is one named bundle of event callbacks. Any field may be nil; a
// nil field is simply not invoked for that event.
type Hook struct {
	ID string

	// Free is called when a link is about to be removed from the mesh
	// (spec.md section 4.1's Unlink sweep).
	Free func(l *link.Link)

	// Link is called when a new Link is created for a previously-unseen
	// peer hashname.
	Link func(l *link.Link)

	// Path is called with a peer's advertised path packet, before any
	// registered pipe.Resolver is consulted.
	Path func(l *link.Link, path *lob.Packet)

	// Open filters a channel-open request packet: it may return a
	// replacement packet, or nil to suppress the request outright (spec.md
	// section 4.1 "open" hook, `open(link, packet) -> packet?`). Fired by
	// List.Open, not by a Fire* method, since its chain short-circuits and
	// carries a return value unlike the other hooks here.
	Open func(l *link.Link, open *lob.Packet) *lob.Packet

	// Opened notifies that a handshake established or refreshed the
	// exchange backing a link. Distinct from Open: this is a
	// notification fired once per completed handshake, not a per-request
	// filter.
	Opened func(l *link.Link)

	// Discover is called for a handshake whose sender hashname had no link
	// yet (after that link is created), and for a JSON link descriptor whose
	// keys yield a hashname (spec.md section 4.1 "discover" hook). Routed
	// packets never fire it.
	Discover func(from hashname.Hashname, outer *lob.Packet)
}

// List is an ordered set of Hooks, fired in registration order.
type List struct {
	ids  []string
	byID map[string]*Hook
}

// NewList returns an empty List.
func NewList() *List {
	return &List{byID: make(map[string]*Hook)}
}

// Register adds h under h.ID, or merges its non-nil callback slots into
// the existing record for h.ID, preserving that record's original
// position in firing order.
func (l *List) Register(h Hook) {
	existing, ok := l.byID[h.ID]
	if !ok {
		cp := h
		l.byID[h.ID] = &cp
		l.ids = append(l.ids, h.ID)
		return
	}
	if h.Free != nil {
		existing.Free = h.Free
	}
	if h.Link != nil {
		existing.Link = h.Link
	}
	if h.Path != nil {
		existing.Path = h.Path
	}
	if h.Open != nil {
		existing.Open = h.Open
	}
	if h.Opened != nil {
		existing.Opened = h.Opened
	}
	if h.Discover != nil {
		existing.Discover = h.Discover
	}
}

// Remove deregisters id, if present.
func (l *List) Remove(id string) {
	if _, ok := l.byID[id]; !ok {
		return
	}
	delete(l.byID, id)
	for i, existing := range l.ids {
		if existing == id {
			l.ids = append(l.ids[:i], l.ids[i+1:]...)
			break
		}
	}
}

// FireFree invokes every registered Free callback, in registration order.
func (l *List) FireFree(lk *link.Link) {
	for _, id := range l.ids {
		if h := l.byID[id].Free; h != nil {
			h(lk)
		}
	}
}

// FireLink invokes every registered Link callback, in registration order.
func (l *List) FireLink(lk *link.Link) {
	for _, id := range l.ids {
		if h := l.byID[id].Link; h != nil {
			h(lk)
		}
	}
}

// FirePath invokes every registered Path callback, in registration order.
func (l *List) FirePath(lk *link.Link, path *lob.Packet) {
	for _, id := range l.ids {
		if h := l.byID[id].Path; h != nil {
			h(lk, path)
		}
	}
}

// Open threads an open-request packet through every registered Open
// callback, in registration order, corresponding to mesh_open. Each hook
// may return a replacement packet or nil; once a hook returns nil the
// chain stops and nil is the final result. The value returned is the
// caller's to own.
func (l *List) Open(lk *link.Link, open *lob.Packet) *lob.Packet {
	for _, id := range l.ids {
		if open == nil {
			break
		}
		if h := l.byID[id].Open; h != nil {
			open = h(lk, open)
		}
	}
	return open
}

// FireOpened invokes every registered Opened callback, in registration
// order, notifying that a handshake completed for lk.
func (l *List) FireOpened(lk *link.Link) {
	for _, id := range l.ids {
		if h := l.byID[id].Opened; h != nil {
			h(lk)
		}
	}
}

// FireDiscover invokes every registered Discover callback, in
// registration order.
func (l *List) FireDiscover(from hashname.Hashname, outer *lob.Packet) {
	for _, id := range l.ids {
		if h := l.byID[id].Discover; h != nil {
			h(from, outer)
		}
	}
}

// IDs lists registered hook ids in firing order.
func (l *List) IDs() []string { return append([]string(nil), l.ids...) }
