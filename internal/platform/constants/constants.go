// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package constants provides centralized, immutable values for the entire gateway.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Connection Timing: Heartbeat and shutdown deadlines.
  - Authentication: Handshake and session token lifecycle values.
  - Redis Taxonomy: Hash names and pub/sub channel names.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "loadout-gateway"
	AppVersion = "0.1.0-dev"
)

// # Connection Timing

const (
	// PingInterval is how often the gateway pings each connected client.
	PingInterval = 30 * time.Second

	// PongDeadline is how long a peer may go without answering a ping
	// before its connection is forcibly terminated. Two missed intervals.
	PongDeadline = 2 * PingInterval

	// WriteTimeout bounds a single websocket write so one slow client
	// cannot stall the fan-out loop.
	WriteTimeout = 10 * time.Second

	// SendQueueSize is the per-connection outbound buffer. Connections
	// with a persistently full queue are closed rather than waited on.
	SendQueueSize = 256

	// ShutdownTimeout is how long we wait for connections to drain during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Authentication

const (
	// HandshakeMinInterval is the server-side admission gate: at most one
	// handshake per account within this window.
	HandshakeMinInterval = 5 * time.Second

	// HandshakeValidity is how long an issued handshake token may be consumed.
	HandshakeValidity = 1 * time.Minute

	// SessionTokenTTL is the lifetime of a session token. A client holding a
	// live token skips third-party re-verification until it elapses.
	SessionTokenTTL = 3 * time.Hour

	// TokenByteLength is the entropy of handshake and session tokens.
	TokenByteLength = 32

	// PermissionCacheTTL is how long per-session admin/premium flags are
	// trusted before being re-read from the store.
	PermissionCacheTTL = 5 * time.Minute

	// ProviderRequestsPerMinute paces outbound identity-provider API calls.
	ProviderRequestsPerMinute = 100
)

// # Locales

const (
	// DefaultLocale is the fallback for translations missing in the
	// client's own locale.
	DefaultLocale = "en_us"
)

// # Redis Taxonomy

const (
	// Cache hashes, keyed by entity key (translations by locale + key).
	RedisHashScreens        = "screens"
	RedisHashButtons        = "buttons"
	RedisHashAliasedActions = "aliasedActions"
	RedisHashRegexes        = "regexes"
	RedisHashGlyphs         = "glyphs"
	RedisLangPrefix         = "lang:"

	// RedisKeyConnections is the fleet-wide live connection counter.
	RedisKeyConnections = "connections"

	// ChannelListChange carries compact entity change notifications of the
	// form "actionID,key[,locale]". Every instance subscribes, including
	// the publisher.
	ChannelListChange = "list-change"

	// ChannelConnNotif carries full connection-count values, which are too
	// high-churn to be worth a cache round-trip.
	ChannelConnNotif = "conn-notif"
)
