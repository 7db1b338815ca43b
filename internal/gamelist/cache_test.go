// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package gamelist

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantari/loadout/internal/platform/constants"
)

// # Test Doubles

// fakeListStore implements [Store] over in-memory maps. Only the read side
// matters for cache tests; writes are accepted and dropped.
type fakeListStore struct {
	screens      map[string]*Screen
	regexes      map[string]*Regex
	translations []Translation
}

func (s *fakeListStore) Keys(_ context.Context, kind Kind) ([]string, error) {
	var keys []string
	switch kind {
	case KindScreen:
		for key := range s.screens {
			keys = append(keys, key)
		}
	case KindRegex:
		for key := range s.regexes {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *fakeListStore) PullScreen(_ context.Context, key string) (*Screen, error) {
	return s.screens[key], nil
}

func (s *fakeListStore) PullRegex(_ context.Context, key string) (*Regex, error) {
	return s.regexes[key], nil
}

func (s *fakeListStore) Translations(_ context.Context) ([]Translation, error) {
	return s.translations, nil
}

func (s *fakeListStore) PullButton(context.Context, string) (*Button, error) { return nil, nil }
func (s *fakeListStore) PullAliasedAction(context.Context, string) (*AliasedAction, error) {
	return nil, nil
}
func (s *fakeListStore) PullTranslation(context.Context, string, string) (*Translation, error) {
	return nil, nil
}
func (s *fakeListStore) PullGlyph(context.Context, string) (*Glyph, error) { return nil, nil }

func (s *fakeListStore) UpsertScreen(context.Context, *Screen) error               { return nil }
func (s *fakeListStore) DeleteScreen(context.Context, string) error                { return nil }
func (s *fakeListStore) UpsertButton(context.Context, *Button) error               { return nil }
func (s *fakeListStore) DeleteButton(context.Context, string) error                { return nil }
func (s *fakeListStore) UpsertAliasedAction(context.Context, *AliasedAction) error { return nil }
func (s *fakeListStore) DeleteAliasedAction(context.Context, string) error         { return nil }
func (s *fakeListStore) UpsertTranslation(context.Context, *Translation) error     { return nil }
func (s *fakeListStore) DeleteTranslation(context.Context, string, string) error   { return nil }
func (s *fakeListStore) UpsertRegex(context.Context, *Regex) error                 { return nil }
func (s *fakeListStore) DeleteRegex(context.Context, string) error                 { return nil }
func (s *fakeListStore) UpsertGlyph(context.Context, *Glyph) error                 { return nil }
func (s *fakeListStore) DeleteGlyph(context.Context, string) error                 { return nil }
func (s *fakeListStore) AppendEditLog(context.Context, *EditLogEntry) error        { return nil }
func (s *fakeListStore) RecentEditLog(context.Context, int) ([]EditLogEntry, error) {
	return nil, nil
}
func (s *fakeListStore) RecordConnectionSnapshot(context.Context, int64) error { return nil }
func (s *fakeListStore) ConnectionHistory(context.Context, time.Time) ([]ConnectionDatapoint, error) {
	return nil, nil
}

// newTestCache wires a cache against an embedded Redis.
func newTestCache(t *testing.T, store Store) (*Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, store, slog.New(slog.DiscardHandler)), client
}

// # Projection Round Trips

/*
TestCache_WriteThroughThenGet verifies a write-through is immediately
readable (the invariant Publish relies on) and that Remove leaves a clean
nil read rather than an error.
*/
func TestCache_WriteThroughThenGet(t *testing.T) {
	cache, _ := newTestCache(t, &fakeListStore{})
	ctx := context.Background()

	screen := &Screen{Key: "main", ScreenType: ScreenTypeButtons, Visible: true, AdminOnly: true}
	require.NoError(t, cache.WriteThrough(ctx, KindScreen, screen.Key, screen))

	got, err := cache.GetScreen(ctx, "main")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, screen, got)

	require.NoError(t, cache.Remove(ctx, KindScreen, "main"))

	got, err = cache.GetScreen(ctx, "main")
	require.NoError(t, err)
	assert.Nil(t, got, "absent entry reads as nil, not an error")

	raw, err := cache.Get(ctx, KindScreen, "main")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

/*
TestCache_Populate verifies the startup rebuild is a full overwrite: store
rows land in their hashes and entries with no store row are dropped.
*/
func TestCache_Populate(t *testing.T) {
	store := &fakeListStore{
		screens: map[string]*Screen{
			"main":  {Key: "main", ScreenType: ScreenTypeButtons},
			"admin": {Key: "admin", ScreenType: ScreenTypeButtons, AdminOnly: true},
		},
		regexes: map[string]*Regex{
			"chat.join": {Key: "chat.join", Value: `^\w+ joined`},
		},
		translations: []Translation{
			{Key: "greet", Lang: "en_us", Value: "hello"},
			{Key: "greet", Lang: "pt_br", Value: "ola"},
		},
	}
	cache, client := newTestCache(t, store)
	ctx := context.Background()

	// A leftover from a previous process generation must not survive.
	require.NoError(t, client.HSet(ctx, constants.RedisHashScreens, "stale", "{}").Err())

	require.NoError(t, cache.Populate(ctx))

	screens, err := cache.All(ctx, KindScreen)
	require.NoError(t, err)
	assert.Len(t, screens, 2)
	assert.NotContains(t, screens, "stale")

	regex, err := cache.GetRegex(ctx, "chat.join")
	require.NoError(t, err)
	require.NotNil(t, regex)
	assert.Equal(t, `^\w+ joined`, regex.Value)

	merged, err := cache.AllTranslations(ctx, "pt_BR")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"greet": "ola"}, merged)
}

// # Localization

/*
TestCache_Translate verifies per-locale resolution with its two fallbacks:
the default locale, then the key itself.
*/
func TestCache_Translate(t *testing.T) {
	cache, client := newTestCache(t, &fakeListStore{})
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "lang:en_us", "greet", "hello %s").Err())
	require.NoError(t, client.HSet(ctx, "lang:en_us", "bye", "goodbye").Err())
	require.NoError(t, client.HSet(ctx, "lang:pt_br", "greet", "ola %s").Err())

	assert.Equal(t, "ola Notch", cache.Translate(ctx, "pt_BR", "greet", "Notch"))
	assert.Equal(t, "goodbye", cache.Translate(ctx, "pt_br", "bye"), "falls back to the default locale")
	assert.Equal(t, "missing.key", cache.Translate(ctx, "pt_br", "missing.key"))
}

/*
TestCache_AllTranslations verifies the merged table: the default locale as
the base with the requested locale's values overlaid.
*/
func TestCache_AllTranslations(t *testing.T) {
	cache, client := newTestCache(t, &fakeListStore{})
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "lang:en_us", "greet", "hello").Err())
	require.NoError(t, client.HSet(ctx, "lang:en_us", "bye", "goodbye").Err())
	require.NoError(t, client.HSet(ctx, "lang:pt_br", "greet", "ola").Err())

	merged, err := cache.AllTranslations(ctx, "pt_br")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"greet": "ola", "bye": "goodbye"}, merged)

	base, err := cache.AllTranslations(ctx, "en_us")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"greet": "hello", "bye": "goodbye"}, base)
}
