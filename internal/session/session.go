// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package session holds the per-connection mutable state of the gateway.

A [Session] is created when a socket is accepted and destroyed when it
closes. It is owned exclusively by its connection's read goroutine: handlers
receive a reference for the duration of one dispatch and never retain it.
The fan-out path consults the mutex-guarded permission flag cache and
enqueues frames onto the send channel; it never touches other session
fields.

Architecture:

  - Session: identity, auth status, locale, transient handshake/CSRF state.
  - Registry: the set of live sessions on this instance, used for fan-out.
  - Timers: the re-authentication timer is owned by the session and is
    cancelled on disconnect by construction.
*/
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/protocol"
)

// # Identity Modes

// AuthMode identifies which third-party provider a connection verifies against.
type AuthMode string

const (
	ModeAnonymous AuthMode = "ANONYMOUS"
	ModeMojang    AuthMode = "MOJANG"
	ModeDiscord   AuthMode = "DISCORD"
	ModeGoogle    AuthMode = "GOOGLE"
)

// # Translator Contract

// Translator resolves a translation key in a locale, falling back to the
// default locale. Implemented by the gamelist read-cache.
type Translator interface {
	Translate(ctx context.Context, locale, key string, args ...any) string
}

// # Session

// UnresolvedAccount is the AccountID of a connection that has not been
// identified yet.
const UnresolvedAccount int64 = -1

// Session is the per-connection mutable state bag.
//
// All fields are named and typed rather than kept in an open map so the
// compiler catches missing or renamed state.
type Session struct {
	// ID is the opaque connection handle, unique per accepted socket.
	ID string

	// send enqueues a frame for the connection's writer goroutine. It must
	// never block; the writer owns backpressure policy.
	send func(frame []byte) bool

	// close requests connection teardown with a reason.
	close func(reason string)

	// Authed reports whether the connection completed verification.
	// Authed == true implies AccountID != UnresolvedAccount and an armed
	// reauth timer.
	Authed bool

	// AccountID is the authoritative account row bound to this connection,
	// or UnresolvedAccount.
	AccountID int64

	// AuthMode is the identity provider this connection verifies against.
	AuthMode AuthMode

	// Locale is the client's reported language, canonicalized lowercase.
	Locale string

	// Transient handshake and OAuth state. Cleared when consumed.
	PendingHandshake string
	OAuthState       string

	// Discord link state. Set when an OAuth callback verifies a Discord
	// identity no account is linked to; the connection may then redeem a
	// link code to bind that identity. Cleared when consumed.
	AwaitingDiscordLink bool
	DiscordLinkSubject  string

	// Client metadata reported by InitializeClient.
	UserAgent     string
	AddonVersion  string
	GameVersion   string
	ClientVersion string

	// ClientSettings is the raw settings JSON the client last reported.
	ClientSettings []byte

	// CurrentServer is the server the client most recently joined.
	CurrentServer string

	// LastPongAt is the last observed heartbeat answer, maintained by the
	// connection supervisor.
	LastPongAt time.Time

	// Cached permission flags with their own short TTLs, so hot paths avoid
	// a store query per message. Guarded by permMu because the fan-out
	// goroutine consults the flags while handlers refresh them.
	permMu          sync.Mutex
	adminCached     bool
	adminCachedAt   time.Time
	premiumCached   bool
	premiumCachedAt time.Time

	// userCountStreaming is set while the per-admin user-count pusher runs,
	// so repeated re-authentications never stack a second one.
	userCountStreaming atomic.Bool

	// translator resolves localized messages for this session.
	translator Translator

	// reauth timer; guarded by timerMu because expiry fires on a timer
	// goroutine while disconnect cancels from the supervisor.
	timerMu     sync.Mutex
	reauthTimer *time.Timer
}

// New creates a session bound to a connection's send and close functions.
func New(send func(frame []byte) bool, close func(reason string), translator Translator) *Session {
	return &Session{
		ID:         uuid.NewString(),
		send:       send,
		close:      close,
		AccountID:  UnresolvedAccount,
		AuthMode:   ModeAnonymous,
		Locale:     constants.DefaultLocale,
		LastPongAt: time.Now(),
		translator: translator,
	}
}

// # Outbound Messaging

// Enqueue hands a pre-encoded frame to the connection's writer goroutine.
// Used by the fan-out path, which encodes once per notification rather than
// once per recipient. A false return means the send queue is saturated and
// the frame was dropped.
func (s *Session) Enqueue(frame []byte) bool {
	return s.send(frame)
}

// SendAction encodes and enqueues an action for this connection. A false
// return means the send queue is saturated and the frame was dropped.
func (s *Session) SendAction(action *protocol.Action) bool {
	if action == nil {
		return true
	}
	return s.send(action.Encode())
}

// SendChat renders a rich-text message in the user's chat.
func (s *Session) SendChat(component *protocol.Component) {
	if component == nil {
		return
	}
	s.SendAction(protocol.NewSendChatComponent(protocol.NewChatMessage(component)))
}

// SendLocalizedError resolves a translation key in the session's locale and
// sends it as a red chat message.
func (s *Session) SendLocalizedError(ctx context.Context, translationKey string, args ...any) {
	text := translationKey
	if s.translator != nil {
		text = s.translator.Translate(ctx, s.Locale, translationKey, args...)
	}
	s.SendChat(protocol.Text(text).SetColor(protocol.ColorRed))
}

// Translate resolves a translation key in the session's locale.
func (s *Session) Translate(ctx context.Context, key string, args ...any) string {
	if s.translator == nil {
		return key
	}
	return s.translator.Translate(ctx, s.Locale, key, args...)
}

// Disable force-terminates the connection after telling the client to shut
// the add-on down. Used for bans and detected identity spoofing.
func (s *Session) Disable(reason string) {
	s.SendAction(protocol.NewDisableClient(reason))
	s.close(reason)
}

// # Permission Flag Cache

// CachedAdmin returns the cached admin flag and whether it is still fresh.
func (s *Session) CachedAdmin() (value bool, fresh bool) {
	s.permMu.Lock()
	defer s.permMu.Unlock()
	return s.adminCached, time.Since(s.adminCachedAt) < constants.PermissionCacheTTL
}

// SetCachedAdmin stores the admin flag with a fresh TTL.
func (s *Session) SetCachedAdmin(value bool) {
	s.permMu.Lock()
	defer s.permMu.Unlock()
	s.adminCached = value
	s.adminCachedAt = time.Now()
}

// CachedPremium returns the cached premium flag and whether it is still fresh.
func (s *Session) CachedPremium() (value bool, fresh bool) {
	s.permMu.Lock()
	defer s.permMu.Unlock()
	return s.premiumCached, time.Since(s.premiumCachedAt) < constants.PermissionCacheTTL
}

// SetCachedPremium stores the premium flag with a fresh TTL.
func (s *Session) SetCachedPremium(value bool) {
	s.permMu.Lock()
	defer s.permMu.Unlock()
	s.premiumCached = value
	s.premiumCachedAt = time.Now()
}

// InvalidatePermissionCache drops cached flags so the next check re-reads
// the store. Called when auth state changes.
func (s *Session) InvalidatePermissionCache() {
	s.permMu.Lock()
	defer s.permMu.Unlock()
	s.adminCachedAt = time.Time{}
	s.premiumCachedAt = time.Time{}
}

// # User-Count Stream Guard

// BeginUserCountStream claims the per-session user-count pusher. It returns
// false when a pusher is already running, which happens on every periodic
// re-authentication of an admin connection.
func (s *Session) BeginUserCountStream() bool {
	return s.userCountStreaming.CompareAndSwap(false, true)
}

// EndUserCountStream releases the claim taken by BeginUserCountStream.
func (s *Session) EndUserCountStream() {
	s.userCountStreaming.Store(false)
}

// # Re-authentication Timer

// ArmReauthTimer schedules expire to run after ttl, replacing any previously
// armed timer. The session owns the timer: teardown cancels it by
// construction, so no timer fires after termination.
func (s *Session) ArmReauthTimer(ttl time.Duration, expire func()) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.reauthTimer != nil {
		s.reauthTimer.Stop()
	}
	s.reauthTimer = time.AfterFunc(ttl, expire)
}

// CancelReauthTimer stops any pending re-authentication timer.
func (s *Session) CancelReauthTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.reauthTimer != nil {
		s.reauthTimer.Stop()
		s.reauthTimer = nil
	}
}
