/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package hashname_test

import (
	"testing"

	"github.com/ribbonmesh/core/hashname"
)

func TestFromKeysDeterministicAcrossMapOrder(t *testing.T) {
	keys1 := map[byte][]byte{0x1a: []byte("key-one"), 0x01: []byte("key-two")}
	keys2 := map[byte][]byte{0x01: []byte("key-two"), 0x1a: []byte("key-one")}

	hn1, err := hashname.FromKeys(keys1)
	if err != nil {
		t.Fatalf("FromKeys: %v", err)
	}
	hn2, err := hashname.FromKeys(keys2)
	if err != nil {
		t.Fatalf("FromKeys: %v", err)
	}
	if !hn1.Equal(hn2) {
		t.Fatal("hashname depends on map iteration order")
	}
}

func TestFromKeysDiffersOnDifferentInput(t *testing.T) {
	a, _ := hashname.FromKeys(map[byte][]byte{0x1a: []byte("key-a")})
	b, _ := hashname.FromKeys(map[byte][]byte{0x1a: []byte("key-b")})
	if a.Equal(b) {
		t.Fatal("distinct keysets produced equal hashnames")
	}
}

func TestFromKeysRejectsEmpty(t *testing.T) {
	if _, err := hashname.FromKeys(nil); err == nil {
		t.Fatal("expected error for empty keyset")
	}
	if _, err := hashname.FromKeys(map[byte][]byte{0x1a: nil}); err == nil {
		t.Fatal("expected error for empty key bytes")
	}
}

func TestStringRoundTrip(t *testing.T) {
	hn, err := hashname.FromKeys(map[byte][]byte{0x1a: []byte("some-public-key-bytes")})
	if err != nil {
		t.Fatalf("FromKeys: %v", err)
	}
	s := hn.String()
	if len(s) != 52 {
		t.Fatalf("string form length = %d, want 52", len(s))
	}
	parsed, err := hashname.Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.Equal(hn) {
		t.Fatal("round trip through String/Parse changed the hashname")
	}
}

func TestShortAndPrefix(t *testing.T) {
	hn, _ := hashname.FromKeys(map[byte][]byte{0x1a: []byte("abc")})
	short := hn.Short()
	if !hn.ShortEqual(short[:]) {
		t.Fatal("ShortEqual mismatch against own Short()")
	}
	if !hn.HasPrefix(hn.String()[:8]) {
		t.Fatal("HasPrefix rejected a genuine prefix")
	}
	if hn.HasPrefix("not-a-real-prefix-value") {
		t.Fatal("HasPrefix accepted a bogus prefix")
	}
}

func TestParseRejectsWrongLength(t *testing.T) {
	if _, err := hashname.Parse("AAAA"); err == nil {
		t.Fatal("expected error for short decoded value")
	}
}
