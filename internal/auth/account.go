// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package auth implements the per-connection authentication state machine.

States: Anonymous → HandshakeIssued → Verifying → Authenticated → (expires)
→ Anonymous. The protocol carries the handshake messages, handlers gate on
the session's auth flags, and this package owns the transitions:

  - Issue: a random handshake token, persisted and throttled per account.
  - Verify: exactly one provider path per auth mode (Mojang session-join
    digest, Discord/Google OAuth code exchange).
  - Complete: handshake promoted to a 3-hour session token, account snapshot
    pushed, re-authentication timer armed.
  - Resume: a still-valid session token skips verification with a timer
    armed for the remaining TTL only.
  - Expire: the timer clears the auth flag and starts a fresh cycle,
    transparent to the user while the socket stays open.

Verification failures are terminal for the attempt and always surface as a
generic failure; an identity mismatch on a trusted path is a security event
that disables the connection and purges standing credentials.
*/
package auth

import (
	"time"
)

// # Domain Entities

// Account is the authoritative identity row a connection binds to.
type Account struct {
	ID            int64
	MinecraftUUID string
	DiscordID     string
	GoogleID      string
	IsAdmin       bool
	Banned        bool
	FirstLogin    time.Time
	LastLogin     time.Time
}

// SessionToken is a credential that lets a client skip third-party
// re-verification until it expires.
type SessionToken struct {
	Token     string
	AccountID int64
	IssuedAt  time.Time
}

// RankData is externally-sourced reputation data pushed to the client on
// auth completion. The provider behind it is a black-box collaborator.
type RankData struct {
	Rank             string `json:"rank"`
	PackageRank      string `json:"packageRank"`
	IsBuildTeam      bool   `json:"isBuildTeam"`
	IsBuildTeamAdmin bool   `json:"isBuildTeamAdmin"`
	// CreatedAt timestamps the cache entry (millis).
	CreatedAt int64 `json:"createdAt"`
}

// NoRank is the snapshot used when reputation data is unavailable.
func NoRank() RankData {
	return RankData{Rank: "NONE", PackageRank: "NONE"}
}
