// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"context"
	"time"
)

// # Identity Data Access

// Store defines the data access contract for accounts and credentials. The
// concrete implementation is PostgreSQL; tests substitute fakes.
type Store interface {

	/*
		FindAccountByID returns the account with the given row id.

		Returns:
		  - *Account: Hydrated entity, nil when absent
		  - error: Retrieval failures
	*/
	FindAccountByID(ctx context.Context, id int64) (*Account, error)

	/*
		FindOrCreateAccountByMinecraftUUID identifies a connection by its
		reported Minecraft UUID, creating a fresh account row on first
		contact. Two connections reporting the same UUID always map to the
		same account.
	*/
	FindOrCreateAccountByMinecraftUUID(ctx context.Context, uuid string) (*Account, error)

	// FindAccountByDiscordID returns the account linked to a Discord
	// subject id, nil when no account is linked.
	FindAccountByDiscordID(ctx context.Context, discordID string) (*Account, error)

	// FindAccountByGoogleID returns the account linked to a Google subject
	// id, nil when no account is linked.
	FindAccountByGoogleID(ctx context.Context, googleID string) (*Account, error)

	// TouchLoginTimestamps updates last_login (and first_login when unset).
	TouchLoginTimestamps(ctx context.Context, accountID int64) error

	/*
		PremiumUntil reports whether the account holds an active premium
		subscription and when it expires. A banned account is never premium.

		Returns:
		  - bool: Active subscription exists
		  - time.Time: Expiration of the active subscription
	*/
	PremiumUntil(ctx context.Context, accountID int64) (bool, time.Time, error)

	// IsAdmin reports the account's admin flag.
	IsAdmin(ctx context.Context, accountID int64) (bool, error)

	// # Handshake Lifecycle

	/*
		CountRecentHandshakes counts handshakes issued for the account since
		the given instant. Backs the 5-second admission gate.
	*/
	CountRecentHandshakes(ctx context.Context, accountID int64, since time.Time) (int, error)

	// CreateHandshake persists a fresh handshake token for the account.
	CreateHandshake(ctx context.Context, accountID int64, token string) error

	/*
		LatestHandshake returns the newest unconsumed handshake token for
		the account no older than maxAge, or "" when none exists.
	*/
	LatestHandshake(ctx context.Context, accountID int64, maxAge time.Duration) (string, error)

	// PurgeHandshakes invalidates every outstanding handshake for the
	// account. Used on detected identity spoofing.
	PurgeHandshakes(ctx context.Context, accountID int64) error

	// # Session Token Lifecycle

	/*
		PromoteToSessionToken replaces the account's outstanding handshake
		with a session token, invalidating the handshake in the same write.
	*/
	PromoteToSessionToken(ctx context.Context, accountID int64, token string) error

	/*
		FindSessionToken returns the session token row no older than maxAge,
		nil when unknown or expired.
	*/
	FindSessionToken(ctx context.Context, token string, maxAge time.Duration) (*SessionToken, error)

	// # Discord Linking

	/*
		ConsumeLinkCode redeems a single-use Discord link code, deleting it
		and any expired codes in the same write.

		Returns:
		  - int64: Account the code was issued for, 0 when unknown or expired
		  - error: Retrieval failures
	*/
	ConsumeLinkCode(ctx context.Context, code string) (int64, error)

	/*
		LinkDiscordID binds a Discord subject id to an account that has no
		link yet.

		Returns:
		  - bool: false when the account is absent or already linked
	*/
	LinkDiscordID(ctx context.Context, accountID int64, discordID string) (bool, error)
}
