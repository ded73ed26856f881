//go:build !mono

// Package mono provides a monotonic nanosecond clock for internal
// timestamping (log lines, idle-timer bookkeeping). It is NOT the time
// source the mesh protocol itself runs on: the mesh accepts whatever
// monotonic second count the caller passes to Mesh.Process - see the
// mesh package.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since process start. Safe default
// built on time.Since; build with the "mono" tag to link directly against
// runtime.nanotime instead.
func NanoTime() int64 { return int64(time.Since(start)) }
