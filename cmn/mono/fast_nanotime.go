//go:build mono

// Package mono provides low-level monotonic time via a direct runtime
// linkname, for builds that want to skip the time.Since indirection.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package mono

import (
	_ "unsafe" // for go:linkname
)

// https://golang.org/pkg/runtime/?m=all#nanotime
//
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64
