// Package pipe resolves a link to a transport send callback (spec.md
// section 4.1's abstract `path` hook): given a peer's advertised path
// packet, find a registered scheme that knows how to reach it and attach
// a non-blocking send function.
//
// Shaped as a named-endpoint registry - one resolver per logical network
// scheme, tried in registration order - a flat map keyed by scheme name
// rather than node ID, since a mesh has an open-ended, unregistered set
// of peers rather than a cluster-owned membership table.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package pipe

import (
	"github.com/ribbonmesh/core/link"
	"github.com/ribbonmesh/core/lob"
)

// Pipe is a non-blocking transport send callback, attached to a link by a
// successful Resolver call (spec.md section 5: "the pipe is expected to
// be non-blocking").
type Pipe = link.Pipe

// Resolver attempts to reach l over one logical network (e.g. "udp4",
// "relay", "webrtc"), given the peer's advertised path packet. It reports
// whether it recognized the path and attached a Pipe to l.
type Resolver func(l *link.Link, path *lob.Packet) bool

// Registry is a named set of path Resolvers, consulted in registration
// order until one claims the path.
type Registry struct {
	names []string
	byName map[string]Resolver
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Resolver)}
}

// Register installs resolver under name, replacing any previous resolver
// registered under the same name without disturbing its position in
// resolution order.
func (r *Registry) Register(name string, resolver Resolver) {
	if _, exists := r.byName[name]; !exists {
		r.names = append(r.names, name)
	}
	r.byName[name] = resolver
}

// Remove deregisters name, if present.
func (r *Registry) Remove(name string) {
	if _, exists := r.byName[name]; !exists {
		return
	}
	delete(r.byName, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
}

// Resolve tries each registered Resolver in turn against path, stopping
// at the first that attaches a pipe. It reports whether any did.
func (r *Registry) Resolve(l *link.Link, path *lob.Packet) bool {
	for _, name := range r.names {
		if r.byName[name](l, path) {
			return true
		}
	}
	return false
}

// Names lists registered scheme names in resolution order.
func (r *Registry) Names() []string { return append([]string(nil), r.names...) }
