// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package handlers implements the serverbound half of the action protocol.

Each handler is a stateless method on [Handlers], bound to its action ID in
[RegisterAll]. Handlers own their authorization check as a first step:
identify-and-handshake actions run before any auth exists, admin mutations
gate on the session's cached admin flag, and the glyph mutation additionally
admits premium users for their own glyph.

Mutation handlers share one pipeline: authorize, parse, validate, write to
the authoritative store, append the edit log, write through the read-cache,
publish the change notification. Failures before the store write reject the
mutation with no partial state; failures after the cache write are repaired
by the next full cache populate.
*/
package handlers

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/vantari/loadout/internal/auth"
	"github.com/vantari/loadout/internal/dispatch"
	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// Handlers carries the collaborators every serverbound handler may need.
type Handlers struct {
	auth       *auth.Service
	authStore  auth.Store
	store      gamelist.Store
	cache      *gamelist.Cache
	bus        *gamelist.Bus
	redis      *redis.Client
	glyphProxy string
	logger     *slog.Logger
}

// New wires the handler set.
func New(authService *auth.Service, authStore auth.Store, store gamelist.Store, cache *gamelist.Cache, bus *gamelist.Bus, redisClient *redis.Client, glyphProxy string, logger *slog.Logger) *Handlers {
	return &Handlers{
		auth:       authService,
		authStore:  authStore,
		store:      store,
		cache:      cache,
		bus:        bus,
		redis:      redisClient,
		glyphProxy: glyphProxy,
		logger:     logger,
	}
}

// RegisterAll binds every serverbound action ID to its handler.
func (h *Handlers) RegisterAll(registry *dispatch.Registry) {
	registry.Register(protocol.IDInitializeClient, dispatch.HandlerFunc(h.InitializeClient))
	registry.Register(protocol.IDAuthMojangEndHandshake, dispatch.HandlerFunc(h.AuthMojangEndHandshake))
	registry.Register(protocol.IDAuthDiscordEndHandshake, dispatch.HandlerFunc(h.AuthDiscordEndHandshake))
	registry.Register(protocol.IDAuthGoogleEndHandshake, dispatch.HandlerFunc(h.AuthGoogleEndHandshake))
	registry.Register(protocol.IDAuthReestablishSession, dispatch.HandlerFunc(h.AuthReestablishSession))
	registry.Register(protocol.IDLinkDiscord, dispatch.HandlerFunc(h.LinkDiscord))
	registry.Register(protocol.IDLanguageChanged, dispatch.HandlerFunc(h.LanguageChanged))
	registry.Register(protocol.IDMigrateKeybinds, dispatch.HandlerFunc(h.MigrateKeybinds))
	registry.Register(protocol.IDServerJoined, dispatch.HandlerFunc(h.ServerJoined))
	registry.Register(protocol.IDServerLeft, dispatch.HandlerFunc(h.ServerLeft))
	registry.Register(protocol.IDLocationChanged, dispatch.HandlerFunc(h.LocationChanged))
	registry.Register(protocol.IDButtonPressed, dispatch.HandlerFunc(h.ButtonPressed))
	registry.Register(protocol.IDExceptionThrown, dispatch.HandlerFunc(h.ExceptionThrown))
	registry.Register(protocol.IDSetClientSettings, dispatch.HandlerFunc(h.SetClientSettings))
	registry.Register(protocol.IDAlterScreen, dispatch.HandlerFunc(h.AlterScreen))
	registry.Register(protocol.IDDeleteScreen, dispatch.HandlerFunc(h.DeleteScreen))
	registry.Register(protocol.IDAlterButton, dispatch.HandlerFunc(h.AlterButton))
	registry.Register(protocol.IDDeleteButton, dispatch.HandlerFunc(h.DeleteButton))
	registry.Register(protocol.IDAlterAliasedAction, dispatch.HandlerFunc(h.AlterAliasedAction))
	registry.Register(protocol.IDDeleteAliasedAction, dispatch.HandlerFunc(h.DeleteAliasedAction))
	registry.Register(protocol.IDAlterTranslation, dispatch.HandlerFunc(h.AlterTranslation))
	registry.Register(protocol.IDDeleteTranslation, dispatch.HandlerFunc(h.DeleteTranslation))
	registry.Register(protocol.IDAlterRegex, dispatch.HandlerFunc(h.AlterRegex))
	registry.Register(protocol.IDDeleteRegex, dispatch.HandlerFunc(h.DeleteRegex))
	registry.Register(protocol.IDAlterGlyph, dispatch.HandlerFunc(h.AlterGlyph))
	registry.Register(protocol.IDDeleteGlyph, dispatch.HandlerFunc(h.DeleteGlyph))
}

// # Permission Checks

// isAdmin resolves the session's admin flag through the short-lived
// per-session cache, falling back to the store when stale.
func (h *Handlers) isAdmin(ctx context.Context, sess *session.Session) bool {
	if !sess.Authed || sess.AccountID == session.UnresolvedAccount {
		return false
	}
	if value, fresh := sess.CachedAdmin(); fresh {
		return value
	}
	value, err := h.authStore.IsAdmin(ctx, sess.AccountID)
	if err != nil {
		h.logger.Warn("admin_check_failed",
			slog.Int64("account_id", sess.AccountID),
			slog.String("error", err.Error()))
		return false
	}
	sess.SetCachedAdmin(value)
	return value
}

// isPremium resolves the session's premium flag the same way.
func (h *Handlers) isPremium(ctx context.Context, sess *session.Session) bool {
	if !sess.Authed || sess.AccountID == session.UnresolvedAccount {
		return false
	}
	if value, fresh := sess.CachedPremium(); fresh {
		return value
	}
	value, _, err := h.authStore.PremiumUntil(ctx, sess.AccountID)
	if err != nil {
		h.logger.Warn("premium_check_failed",
			slog.Int64("account_id", sess.AccountID),
			slog.String("error", err.Error()))
		return false
	}
	sess.SetCachedPremium(value)
	return value
}

// requireAdmin is the mutation-handler gate.
func (h *Handlers) requireAdmin(ctx context.Context, sess *session.Session) error {
	if !h.isAdmin(ctx, sess) {
		return apperr.Unauthorized()
	}
	return nil
}

// unavailable wraps an infrastructure failure with a per-operation
// translation key so the client gets a specific message.
func unavailable(translationKey string, cause error) *apperr.AppError {
	return &apperr.AppError{
		Code:           apperr.CodeUnavailable,
		TranslationKey: translationKey,
		Cause:          cause,
	}
}

// restartHandshake re-begins a handshake cycle when an auth attempt dies,
// so the client is never left without a pending handshake.
func (h *Handlers) restartHandshake(ctx context.Context, sess *session.Session) {
	if err := h.auth.BeginHandshake(ctx, sess); err != nil && !apperr.HasCode(err, apperr.CodeRateLimited) {
		h.logger.Warn("handshake_restart_failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
	}
}
