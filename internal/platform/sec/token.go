// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

// Package sec provides cryptographic primitives for credential generation.
//
// # Architecture
//
// This package isolates security-sensitive code from the domain logic.
// Handshake and session tokens are opaque random values; their only security
// property is unguessability, so generation always draws from crypto/rand.
package sec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateToken returns a hex-encoded random token of byteLength entropy bytes.
//
// The resulting string is 2*byteLength characters. Both handshake tokens and
// session tokens are produced through this single path.
func GenerateToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
