// Package cos provides the low-level error taxonomy and small utilities
// shared by every mesh package: typed errors with an Is-predicate, plus a
// bounded multi-error aggregator for sweep-style operations that must not
// abort on first failure.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is spec.md's "LookupMiss": no link matches the token or
// hashname presented.
type ErrNotFound struct {
	what string
}

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " not found" }

func IsErrNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

// ErrBadArgs is spec.md's "BadArgs": null/absent/malformed input.
type ErrBadArgs struct {
	what string
}

func NewErrBadArgs(format string, a ...any) *ErrBadArgs {
	return &ErrBadArgs{fmt.Sprintf(format, a...)}
}

func (e *ErrBadArgs) Error() string { return "bad args: " + e.what }

func IsErrBadArgs(err error) bool {
	var e *ErrBadArgs
	return errors.As(err, &e)
}

// ErrDecrypt is spec.md's "DecryptFail": a handshake or channel packet
// could not be decrypted/authenticated.
type ErrDecrypt struct {
	what string
}

func NewErrDecrypt(format string, a ...any) *ErrDecrypt {
	return &ErrDecrypt{fmt.Sprintf(format, a...)}
}

func (e *ErrDecrypt) Error() string { return "decrypt failed: " + e.what }

func IsErrDecrypt(err error) bool {
	var e *ErrDecrypt
	return errors.As(err, &e)
}

// ErrFrameCorrupt is spec.md's "FrameCorrupt": a framing-engine rolling
// hash mismatch that cannot be reconciled. It latches the engine's err
// bit and persists until Clear().
var ErrFrameCorrupt = errors.New("frames: rolling hash desynchronized")

// Errs is a bounded aggregator of independent errors collected while
// iterating a batch (e.g. a caller feeding several packets to
// Mesh.Receive and wanting one combined report): duplicates by
// message are folded together, and collection stops at maxErrs so a
// pathological sweep can't grow this unboundedly.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

const maxErrs = 8

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, seen := range e.errs {
		if seen.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Cnt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

// JoinErr returns the collected errors joined with errors.Join, or nil if
// none were added.
func (e *Errs) JoinErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return nil
	}
	return errors.Join(e.errs...)
}
