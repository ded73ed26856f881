//go:build !debug

// Package debug provides assertions that compile to no-ops unless the
// binary is built with the "debug" tag.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package debug

func ON() bool { return false }

func Assert(_ bool, _ ...any)            {}
func Assertf(_ bool, _ string, _ ...any) {}
func AssertNoErr(_ error)                {}
func Func(_ func())                      {}
