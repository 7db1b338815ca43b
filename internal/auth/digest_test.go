// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestMinecraftDigest verifies the non-standard hex digest against the
well-known vectors every compatible implementation must reproduce: negative
values render as two's complement with a minus sign, and leading zeroes are
stripped.
*/
func TestMinecraftDigest(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"positive_digest", "Notch", "4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48"},
		{"negative_digest", "jeb_", "-7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1"},
		{"leading_zero_stripped", "simon", "88e16a1019277b15d58faf0541e11910eb756f6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, minecraftDigest(tt.input))
		})
	}
}

/*
TestMinecraftDigest_Deterministic verifies repeated digests of the same seed
agree, since client and gateway must derive the identical server id.
*/
func TestMinecraftDigest_Deterministic(t *testing.T) {
	seed := "handshake-token" + "a1b2c3d4e5f6"
	assert.Equal(t, minecraftDigest(seed), minecraftDigest(seed))
}
