// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"crypto/sha1"
	"math/big"
)

/*
minecraftDigest computes the non-standard SHA-1 hex digest the Minecraft
session servers expect.

Description: The 160-bit digest is interpreted as a signed big-endian
integer. Negative values are two's complemented and rendered with a "-"
prefix, and leading zeros are stripped either way, matching the historic
Java BigInteger.toString(16) behavior.

Parameters:
  - input: string to digest, typically the server id the client hashed

Returns:
  - string: The signed hex digest
*/
func minecraftDigest(input string) string {
	sum := sha1.Sum([]byte(input))

	negative := sum[0]&0x80 != 0
	if negative {
		// Two's complement in place.
		carry := true
		for i := len(sum) - 1; i >= 0; i-- {
			sum[i] = ^sum[i]
			if carry {
				sum[i]++
				carry = sum[i] == 0
			}
		}
	}

	digest := new(big.Int).SetBytes(sum[:]).Text(16)
	if digest == "" {
		digest = "0"
	}
	if negative {
		digest = "-" + digest
	}
	return digest
}
