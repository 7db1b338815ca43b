// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package gamelist

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// # Notification Bus
//
// The bus keeps every gateway instance convergent: a mutation handler writes
// the store, writes through the cache, then publishes a compact notification
// "actionID,key[,locale]". Every instance (including the publisher) receives
// it, re-reads the cache for that key, and fans the resulting clientbound
// push out to its locally held, authorized sockets.
//
// Delivery is at-least-once and last-value-wins per key: the cache is always
// re-read at notification time, so duplicated or reordered notifications for
// different keys are harmless.

// AdminGate reports whether a session may receive admin-only pushes. The
// production gate re-checks the authoritative store when the session's
// cached flag has aged out, so a revoked admin stops receiving pushes
// within the cache TTL.
type AdminGate func(ctx context.Context, sess *session.Session) bool

// Bus publishes and consumes change notifications over Redis pub/sub.
type Bus struct {
	client     *redis.Client
	cache      *Cache
	sessions   *session.Registry
	adminGate  AdminGate
	glyphProxy string
	logger     *slog.Logger
}

// NewBus creates the notification bus for this instance.
func NewBus(client *redis.Client, cache *Cache, sessions *session.Registry, adminGate AdminGate, glyphProxy string, logger *slog.Logger) *Bus {
	return &Bus{
		client:     client,
		cache:      cache,
		sessions:   sessions,
		adminGate:  adminGate,
		glyphProxy: glyphProxy,
		logger:     logger,
	}
}

// # Publishing

/*
Publish broadcasts one entity change on the shared channel.

Description: Must be called only after the corresponding WriteThrough (or
Remove) completed, so any subscriber's re-read observes at least that write.

Parameters:
  - ctx: context.Context
  - actionID: uint16 (the serverbound Alter or Delete ID, which encodes both
    entity type and change kind)
  - key: string
  - locale: ...string (translations only)

Returns:
  - error: Redis failures, classified transient
*/
func (bus *Bus) Publish(ctx context.Context, actionID uint16, key string, locale ...string) error {
	payload := strconv.Itoa(int(actionID)) + "," + key
	if len(locale) > 0 {
		payload += "," + locale[0]
	}
	if err := bus.client.Publish(ctx, constants.ChannelListChange, payload).Err(); err != nil {
		return apperr.Unavailable(fmt.Errorf("gamelist_bus_publish_failed: %w", err))
	}
	return nil
}

// PublishConnectionCount broadcasts the fleet-wide live connection count.
// Full values ride their own channel: re-reading the cache for a counter
// this hot would add latency for no benefit.
func (bus *Bus) PublishConnectionCount(ctx context.Context, count int64) error {
	err := bus.client.Publish(ctx, constants.ChannelConnNotif, strconv.FormatInt(count, 10)).Err()
	if err != nil {
		return apperr.Unavailable(fmt.Errorf("gamelist_bus_publish_failed: %w", err))
	}
	return nil
}

// # Subscribing

// Run subscribes to both channels and fans notifications out to local
// sessions until ctx is cancelled. It runs as a single process-wide task;
// per-socket sends go through each session's bounded queue so one slow
// client never stalls the loop.
func (bus *Bus) Run(ctx context.Context) error {
	subscriber := bus.client.Subscribe(ctx, constants.ChannelListChange, constants.ChannelConnNotif)
	defer func() { _ = subscriber.Close() }()

	channel := subscriber.Channel()
	bus.logger.Info("notification bus subscribed",
		slog.String("channels", constants.ChannelListChange+","+constants.ChannelConnNotif),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message, ok := <-channel:
			if !ok {
				return fmt.Errorf("gamelist: notification subscription closed")
			}
			bus.handle(ctx, message.Channel, message.Payload)
		}
	}
}

// handle routes one received notification.
func (bus *Bus) handle(ctx context.Context, channel, payload string) {
	switch channel {
	case constants.ChannelConnNotif:
		count, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			bus.logger.Warn("malformed connection count notification", slog.String("payload", payload))
			return
		}
		bus.fanOut(ctx, protocol.NewSetCurrentUserCount(count), true)
	case constants.ChannelListChange:
		bus.handleListChange(ctx, payload)
	}
}

// handleListChange re-reads the cache for the changed key and fans the
// resulting push out. The notification payload itself is never trusted as
// the value.
func (bus *Bus) handleListChange(ctx context.Context, payload string) {
	parts := strings.Split(payload, ",")
	if len(parts) < 2 {
		bus.logger.Warn("malformed list change notification", slog.String("payload", payload))
		return
	}
	actionID, err := strconv.Atoi(parts[0])
	if err != nil {
		bus.logger.Warn("malformed list change notification", slog.String("payload", payload))
		return
	}
	key := parts[1]

	push, adminOnly, err := bus.buildPush(ctx, uint16(actionID), key, parts)
	if err != nil {
		bus.logger.Error("failed to build change push",
			slog.String("payload", payload),
			slog.Any("error", err),
		)
		return
	}
	if push == nil {
		return
	}
	bus.fanOut(ctx, push, adminOnly)
}

// buildPush maps a notification to its clientbound action by re-reading the
// cache. A nil push means the entry vanished between publish and read, which
// a later notification will reconcile.
func (bus *Bus) buildPush(ctx context.Context, actionID uint16, key string, parts []string) (push *protocol.Action, adminOnly bool, err error) {
	switch actionID {
	case protocol.IDAlterScreen:
		screen, err := bus.cache.GetScreen(ctx, key)
		if err != nil || screen == nil {
			return nil, false, err
		}
		return screen.ToAction(), screen.AdminOnly, nil
	case protocol.IDDeleteScreen:
		return protocol.NewRemoveScreen(key), false, nil
	case protocol.IDAlterButton:
		button, err := bus.cache.GetButton(ctx, key)
		if err != nil || button == nil {
			return nil, false, err
		}
		return button.ToAction(), button.AdminOnly, nil
	case protocol.IDDeleteButton:
		return protocol.NewRemoveButton(key), false, nil
	case protocol.IDAlterAliasedAction:
		aliased, err := bus.cache.GetAliasedAction(ctx, key)
		if err != nil || aliased == nil {
			return nil, false, err
		}
		return aliased.ToAction(), aliased.AdminOnly, nil
	case protocol.IDDeleteAliasedAction:
		return protocol.NewRemoveAliasedAction(key), false, nil
	case protocol.IDAlterRegex:
		regex, err := bus.cache.GetRegex(ctx, key)
		if err != nil || regex == nil {
			return nil, false, err
		}
		return regex.ToAction(), false, nil
	case protocol.IDDeleteRegex:
		return protocol.NewRemoveRegex(key), false, nil
	case protocol.IDAlterGlyph:
		glyph, err := bus.cache.GetGlyph(ctx, key)
		if err != nil || glyph == nil {
			return nil, false, err
		}
		return glyph.ToAction(bus.glyphProxy), false, nil
	case protocol.IDDeleteGlyph:
		return protocol.NewRemoveGlyph(key), false, nil
	case protocol.IDAlterTranslation, protocol.IDDeleteTranslation:
		if len(parts) < 3 {
			return nil, false, fmt.Errorf("gamelist: translation notification missing locale")
		}
		bus.fanOutTranslation(ctx, key, parts[2], actionID == protocol.IDDeleteTranslation)
		return nil, false, nil
	default:
		bus.logger.Warn("unknown change notification action", slog.Int("action_id", int(actionID)))
		return nil, false, nil
	}
}

// fanOut delivers one push to every locally held socket whose session is
// authorized for it. Admin-only pushes go through the injected gate, which
// honors the permission cache TTL rather than trusting a stale flag forever.
func (bus *Bus) fanOut(ctx context.Context, push *protocol.Action, adminOnly bool) {
	frame := push.Encode()
	bus.sessions.ForEach(func(sess *session.Session) {
		if adminOnly {
			if !sess.Authed || bus.adminGate == nil || !bus.adminGate(ctx, sess) {
				return
			}
		}
		sess.Enqueue(frame)
	})
}

// fanOutTranslation delivers a translation change with per-session locale
// fallback: sessions in the changed locale get the value directly, sessions
// in other locales only see default-locale changes they don't override.
func (bus *Bus) fanOutTranslation(ctx context.Context, key, locale string, deleted bool) {
	bus.sessions.ForEach(func(sess *session.Session) {
		sessionLocale := CanonicalLocale(sess.Locale)
		if sessionLocale != locale && locale != constants.DefaultLocale {
			return
		}
		if deleted && sessionLocale == locale {
			sess.SendAction(protocol.NewRemoveTranslation(key, locale))
			return
		}
		// Re-read with fallback so a default-locale change doesn't clobber a
		// session whose own locale still overrides the key.
		value := bus.cache.Translate(ctx, sess.Locale, key)
		if value == key {
			sess.SendAction(protocol.NewRemoveTranslation(key, sessionLocale))
			return
		}
		sess.SendAction(protocol.NewSetTranslation(key, sessionLocale, value))
	})
}
