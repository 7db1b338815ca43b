// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package gamelist

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// # Test Doubles

// busRecorder captures a session's outbound frames. Guarded by a mutex
// because the bus delivers from its own goroutine in the pub/sub test.
type busRecorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *busRecorder) send(frame []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	return true
}

// actions decodes every captured frame.
func (r *busRecorder) actions(t *testing.T) []*protocol.Action {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	decoded := make([]*protocol.Action, 0, len(r.frames))
	for _, frame := range r.frames {
		action, err := protocol.Decode(frame)
		require.NoError(t, err)
		decoded = append(decoded, action)
	}
	return decoded
}

// newBusSession registers a recording session.
func newBusSession(registry *session.Registry) (*session.Session, *busRecorder) {
	recorder := &busRecorder{}
	sess := session.New(recorder.send, func(string) {}, nil)
	registry.Add(sess)
	return sess, recorder
}

// newTestBus wires a bus and cache against an embedded Redis.
func newTestBus(t *testing.T, sessions *session.Registry, gate AdminGate) (*Bus, *Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.DiscardHandler)
	cache := NewCache(client, &fakeListStore{}, logger)
	return NewBus(client, cache, sessions, gate, "https://glyphs.vantari.gg/", logger), cache, client
}

func listChangePayload(actionID uint16, parts ...string) string {
	payload := strconv.Itoa(int(actionID))
	for _, part := range parts {
		payload += "," + part
	}
	return payload
}

// # Notification Handling

/*
TestBus_ListChangeRereadsCache verifies the at-least-once contract: the
notification payload is never trusted as the value, so a delivered push
always reflects the cache at handling time, and a vanished entry produces
no push at all.
*/
func TestBus_ListChangeRereadsCache(t *testing.T) {
	registry := session.NewRegistry()
	_, recorder := newBusSession(registry)
	bus, cache, _ := newTestBus(t, registry, nil)
	ctx := context.Background()

	require.NoError(t, cache.WriteThrough(ctx, KindRegex, "chat.join", &Regex{Key: "chat.join", Value: "v1"}))
	payload := listChangePayload(protocol.IDAlterRegex, "chat.join")

	// A newer write lands before the notification is handled.
	require.NoError(t, cache.WriteThrough(ctx, KindRegex, "chat.join", &Regex{Key: "chat.join", Value: "v2"}))
	bus.handle(ctx, constants.ChannelListChange, payload)

	actions := recorder.actions(t)
	require.Len(t, actions, 1)
	assert.Equal(t, protocol.IDSetRegex, actions[0].ID)
	assert.Equal(t, "chat.join", actions[0].StringAt(0))
	assert.Equal(t, "v2", actions[0].StringAt(1), "push reflects the cache, not the notification")

	// Deletion: the entry is gone from the cache, the client gets a remove.
	require.NoError(t, cache.Remove(ctx, KindRegex, "chat.join"))
	bus.handle(ctx, constants.ChannelListChange, listChangePayload(protocol.IDDeleteRegex, "chat.join"))

	actions = recorder.actions(t)
	require.Len(t, actions, 2)
	assert.Equal(t, protocol.IDRemoveRegex, actions[1].ID)

	// An alter whose entry vanished between publish and read pushes nothing;
	// a later notification reconciles.
	bus.handle(ctx, constants.ChannelListChange, listChangePayload(protocol.IDAlterRegex, "chat.join"))
	assert.Len(t, recorder.actions(t), 2)
}

/*
TestBus_AdminOnlyFanOut verifies admin-only pushes go through the injected
gate: a session whose cached admin flag is stale-true but whose gate says
otherwise receives nothing, and anonymous sessions never qualify.
*/
func TestBus_AdminOnlyFanOut(t *testing.T) {
	registry := session.NewRegistry()

	admin, adminRec := newBusSession(registry)
	admin.Authed = true
	admin.AccountID = 1
	admin.SetCachedAdmin(true)

	revoked, revokedRec := newBusSession(registry)
	revoked.Authed = true
	revoked.AccountID = 2
	revoked.SetCachedAdmin(true)

	_, anonymousRec := newBusSession(registry)

	gate := func(_ context.Context, sess *session.Session) bool { return sess.AccountID == 1 }
	bus, cache, _ := newTestBus(t, registry, gate)
	ctx := context.Background()

	t.Run("admin_only_gated", func(t *testing.T) {
		screen := &Screen{Key: "admin.panel", ScreenType: ScreenTypeButtons, AdminOnly: true}
		require.NoError(t, cache.WriteThrough(ctx, KindScreen, screen.Key, screen))
		bus.handle(ctx, constants.ChannelListChange, listChangePayload(protocol.IDAlterScreen, screen.Key))

		actions := adminRec.actions(t)
		require.Len(t, actions, 1)
		assert.Equal(t, protocol.IDSetScreen, actions[0].ID)
		assert.Empty(t, revokedRec.actions(t), "stale cached flag must not bypass the gate")
		assert.Empty(t, anonymousRec.actions(t))
	})

	t.Run("public_delivered_to_all", func(t *testing.T) {
		screen := &Screen{Key: "main", ScreenType: ScreenTypeButtons, Visible: true}
		require.NoError(t, cache.WriteThrough(ctx, KindScreen, screen.Key, screen))
		bus.handle(ctx, constants.ChannelListChange, listChangePayload(protocol.IDAlterScreen, screen.Key))

		assert.Len(t, adminRec.actions(t), 2)
		assert.Len(t, revokedRec.actions(t), 1)
		assert.Len(t, anonymousRec.actions(t), 1)
	})

	t.Run("connection_count_admin_only", func(t *testing.T) {
		bus.handle(ctx, constants.ChannelConnNotif, "42")

		actions := adminRec.actions(t)
		require.Len(t, actions, 3)
		last := actions[2]
		assert.Equal(t, protocol.IDSetCurrentUserCount, last.ID)
		count, err := last.Int64At(0)
		require.NoError(t, err)
		assert.Equal(t, int64(42), count)
		assert.Len(t, revokedRec.actions(t), 1)
	})
}

/*
TestBus_TranslationFanOut verifies per-session locale fallback: sessions in
the changed locale get the value, sessions in other locales only observe
default-locale changes their own locale doesn't override.
*/
func TestBus_TranslationFanOut(t *testing.T) {
	registry := session.NewRegistry()
	english, englishRec := newBusSession(registry)
	english.Locale = "en_us"
	portuguese, portugueseRec := newBusSession(registry)
	portuguese.Locale = "pt_BR"

	bus, _, client := newTestBus(t, registry, nil)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "lang:en_us", "greet", "hello").Err())
	require.NoError(t, client.HSet(ctx, "lang:pt_br", "greet", "ola").Err())

	t.Run("default_locale_change", func(t *testing.T) {
		bus.handle(ctx, constants.ChannelListChange, listChangePayload(protocol.IDAlterTranslation, "greet", "en_us"))

		actions := englishRec.actions(t)
		require.Len(t, actions, 1)
		assert.Equal(t, protocol.IDSetTranslation, actions[0].ID)
		assert.Equal(t, "hello", actions[0].StringAt(2))

		// The Portuguese session re-reads through its own locale, so its
		// override survives a default-locale change.
		actions = portugueseRec.actions(t)
		require.Len(t, actions, 1)
		assert.Equal(t, "pt_br", actions[0].StringAt(1))
		assert.Equal(t, "ola", actions[0].StringAt(2))
	})

	t.Run("foreign_locale_change_skipped", func(t *testing.T) {
		bus.handle(ctx, constants.ChannelListChange, listChangePayload(protocol.IDAlterTranslation, "greet", "pt_br"))

		assert.Len(t, englishRec.actions(t), 1, "non-default foreign locale never reaches this session")
		actions := portugueseRec.actions(t)
		require.Len(t, actions, 2)
		assert.Equal(t, "ola", actions[1].StringAt(2))
	})

	t.Run("deletion_with_surviving_override", func(t *testing.T) {
		require.NoError(t, client.HDel(ctx, "lang:en_us", "greet").Err())
		bus.handle(ctx, constants.ChannelListChange, listChangePayload(protocol.IDDeleteTranslation, "greet", "en_us"))

		actions := englishRec.actions(t)
		require.Len(t, actions, 2)
		assert.Equal(t, protocol.IDRemoveTranslation, actions[1].ID)

		actions = portugueseRec.actions(t)
		require.Len(t, actions, 3)
		assert.Equal(t, protocol.IDSetTranslation, actions[2].ID, "override outlives the default-locale deletion")
	})
}

// # Pub/Sub Round Trip

/*
TestBus_PublishDelivery verifies the full path: Publish rides Redis pub/sub
into Run, which re-reads the cache and fans out to registered sessions.
*/
func TestBus_PublishDelivery(t *testing.T) {
	registry := session.NewRegistry()
	_, recorder := newBusSession(registry)
	bus, cache, _ := newTestBus(t, registry, nil)

	ctx := context.Background()
	require.NoError(t, cache.WriteThrough(ctx, KindRegex, "chat.join", &Regex{Key: "chat.join", Value: `^\w+ joined`}))

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(runCtx) }()

	// The subscription attaches asynchronously; republish until delivery.
	require.Eventually(t, func() bool {
		require.NoError(t, bus.Publish(ctx, protocol.IDAlterRegex, "chat.join"))
		return len(recorder.actions(t)) > 0
	}, 5*time.Second, 50*time.Millisecond)

	action := recorder.actions(t)[0]
	assert.Equal(t, protocol.IDSetRegex, action.ID)
	assert.Equal(t, "chat.join", action.StringAt(0))
}
