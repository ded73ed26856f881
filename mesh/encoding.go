/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package mesh

import (
	"github.com/ribbonmesh/core/cmn/cos"
)

var errInvalidHex = cos.NewErrBadArgs("mesh: invalid csid hex")

func parseHexByte(s string) (byte, error) {
	b, err := cos.HexDecode(s)
	if err != nil || len(b) != 1 {
		return 0, errInvalidHex
	}
	return b[0], nil
}

func decodeBase32Key(s string) ([]byte, error) {
	return cos.Base32Decode(s)
}
