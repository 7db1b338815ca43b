// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package gamelist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/platform/constants"
)

// # Read-Cache

// Cache is the denormalized Redis projection of configuration entities.
//
// Entries are derived from the authoritative store and fully replaced on
// every mutation. WriteThrough always completes before Publish, so any
// instance receiving a notification can re-read a consistent value.
type Cache struct {
	client *redis.Client
	store  Store
	logger *slog.Logger
}

// NewCache creates a read-cache backed by the given Redis client and
// authoritative store.
func NewCache(client *redis.Client, store Store, logger *slog.Logger) *Cache {
	return &Cache{client: client, store: store, logger: logger}
}

// hashFor maps an entity kind to its Redis hash.
func hashFor(kind Kind) string {
	switch kind {
	case KindScreen:
		return constants.RedisHashScreens
	case KindButton:
		return constants.RedisHashButtons
	case KindAliasedAction:
		return constants.RedisHashAliasedActions
	case KindRegex:
		return constants.RedisHashRegexes
	case KindGlyph:
		return constants.RedisHashGlyphs
	default:
		return ""
	}
}

// langHash returns the Redis hash holding one locale's translations.
func langHash(locale string) string {
	return constants.RedisLangPrefix + locale
}

/*
Populate rebuilds the entire projection from the authoritative store.

Description: Used at process start. This is a full overwrite, not an
incremental merge, so it is not safe to run concurrently with live admin
traffic on a production fleet.

Parameters:
  - ctx: context.Context

Returns:
  - error: Store or Redis failures
*/
func (cache *Cache) Populate(ctx context.Context) error {
	for _, kind := range []Kind{KindScreen, KindButton, KindAliasedAction, KindRegex, KindGlyph} {
		if err := cache.populateKind(ctx, kind); err != nil {
			return err
		}
	}
	return cache.populateTranslations(ctx)
}

// populateKind rebuilds one entity hash from the store.
func (cache *Cache) populateKind(ctx context.Context, kind Kind) error {
	hash := hashFor(kind)
	if err := cache.client.Del(ctx, hash).Err(); err != nil {
		return fmt.Errorf("gamelist_cache_populate_del_failed: %w", err)
	}

	keys, err := cache.store.Keys(ctx, kind)
	if err != nil {
		return err
	}

	for _, key := range keys {
		entity, err := cache.pull(ctx, kind, key)
		if err != nil {
			return err
		}
		if entity == nil {
			continue
		}
		encoded, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("gamelist_cache_populate_marshal_failed: %w", err)
		}
		if err := cache.client.HSet(ctx, hash, key, encoded).Err(); err != nil {
			return fmt.Errorf("gamelist_cache_populate_set_failed: %w", err)
		}
	}

	cache.logger.Info("cache populated",
		slog.String("kind", string(kind)),
		slog.Int("entries", len(keys)),
	)
	return nil
}

// populateTranslations rebuilds every locale hash from the store.
func (cache *Cache) populateTranslations(ctx context.Context) error {
	translations, err := cache.store.Translations(ctx)
	if err != nil {
		return err
	}

	// Delete all current locale hashes before reinserting.
	locales := make(map[string]bool)
	for _, t := range translations {
		locales[t.Lang] = true
	}
	for locale := range locales {
		if err := cache.client.Del(ctx, langHash(locale)).Err(); err != nil {
			return fmt.Errorf("gamelist_cache_populate_lang_del_failed: %w", err)
		}
	}

	for _, t := range translations {
		if err := cache.client.HSet(ctx, langHash(t.Lang), t.Key, t.Value).Err(); err != nil {
			return fmt.Errorf("gamelist_cache_populate_lang_set_failed: %w", err)
		}
	}

	cache.logger.Info("translations populated",
		slog.Int("locales", len(locales)),
		slog.Int("entries", len(translations)),
	)
	return nil
}

// pull hydrates one entity of the given kind from the authoritative store.
func (cache *Cache) pull(ctx context.Context, kind Kind, key string) (any, error) {
	switch kind {
	case KindScreen:
		screen, err := cache.store.PullScreen(ctx, key)
		if screen == nil {
			return nil, err
		}
		return screen, err
	case KindButton:
		button, err := cache.store.PullButton(ctx, key)
		if button == nil {
			return nil, err
		}
		return button, err
	case KindAliasedAction:
		aliased, err := cache.store.PullAliasedAction(ctx, key)
		if aliased == nil {
			return nil, err
		}
		return aliased, err
	case KindRegex:
		regex, err := cache.store.PullRegex(ctx, key)
		if regex == nil {
			return nil, err
		}
		return regex, err
	case KindGlyph:
		glyph, err := cache.store.PullGlyph(ctx, key)
		if glyph == nil {
			return nil, err
		}
		return glyph, err
	default:
		return nil, fmt.Errorf("gamelist: unknown entity kind %q", kind)
	}
}

// # Reads

// Get returns the raw JSON projection of one entity, or nil when absent.
func (cache *Cache) Get(ctx context.Context, kind Kind, key string) ([]byte, error) {
	value, err := cache.client.HGet(ctx, hashFor(kind), key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable(fmt.Errorf("gamelist_cache_get_failed: %w", err))
	}
	return value, nil
}

// GetScreen decodes one cached screen, nil when absent.
func (cache *Cache) GetScreen(ctx context.Context, key string) (*Screen, error) {
	return decodeCached[Screen](cache, ctx, KindScreen, key)
}

// GetButton decodes one cached button, nil when absent.
func (cache *Cache) GetButton(ctx context.Context, key string) (*Button, error) {
	return decodeCached[Button](cache, ctx, KindButton, key)
}

// GetAliasedAction decodes one cached aliased action, nil when absent.
func (cache *Cache) GetAliasedAction(ctx context.Context, key string) (*AliasedAction, error) {
	return decodeCached[AliasedAction](cache, ctx, KindAliasedAction, key)
}

// GetRegex decodes one cached regex, nil when absent.
func (cache *Cache) GetRegex(ctx context.Context, key string) (*Regex, error) {
	return decodeCached[Regex](cache, ctx, KindRegex, key)
}

// GetGlyph decodes one cached glyph, nil when absent.
func (cache *Cache) GetGlyph(ctx context.Context, key string) (*Glyph, error) {
	return decodeCached[Glyph](cache, ctx, KindGlyph, key)
}

// decodeCached reads and unmarshals one projection entry.
func decodeCached[T any](cache *Cache, ctx context.Context, kind Kind, key string) (*T, error) {
	raw, err := cache.Get(ctx, kind, key)
	if err != nil || raw == nil {
		return nil, err
	}
	entity := new(T)
	if err := json.Unmarshal(raw, entity); err != nil {
		return nil, fmt.Errorf("gamelist_cache_decode_failed: %w", err)
	}
	return entity, nil
}

// All returns every projection entry of one kind, keyed by entity key.
func (cache *Cache) All(ctx context.Context, kind Kind) (map[string]string, error) {
	entries, err := cache.client.HGetAll(ctx, hashFor(kind)).Result()
	if err != nil {
		return nil, apperr.Unavailable(fmt.Errorf("gamelist_cache_all_failed: %w", err))
	}
	return entries, nil
}

// AllTranslations returns the merged translation table for a locale:
// the default locale overlaid with the requested locale's values.
func (cache *Cache) AllTranslations(ctx context.Context, locale string) (map[string]string, error) {
	merged, err := cache.client.HGetAll(ctx, langHash(constants.DefaultLocale)).Result()
	if err != nil {
		return nil, apperr.Unavailable(fmt.Errorf("gamelist_cache_lang_failed: %w", err))
	}

	locale = CanonicalLocale(locale)
	if locale != constants.DefaultLocale {
		local, err := cache.client.HGetAll(ctx, langHash(locale)).Result()
		if err != nil {
			return nil, apperr.Unavailable(fmt.Errorf("gamelist_cache_lang_failed: %w", err))
		}
		for key, value := range local {
			merged[key] = value
		}
	}
	return merged, nil
}

// # Write-Through

/*
WriteThrough fully replaces one projection entry after a successful store
write. Always called before Publish so subscribers re-reading the cache
observe at least this write.

Parameters:
  - ctx: context.Context
  - kind: Kind
  - key: string
  - entity: any (JSON-serializable entity)

Returns:
  - error: Redis failures, classified transient
*/
func (cache *Cache) WriteThrough(ctx context.Context, kind Kind, key string, entity any) error {
	encoded, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("gamelist_cache_marshal_failed: %w", err)
	}
	if err := cache.client.HSet(ctx, hashFor(kind), key, encoded).Err(); err != nil {
		return apperr.Unavailable(fmt.Errorf("gamelist_cache_write_through_failed: %w", err))
	}
	return nil
}

// WriteThroughTranslation replaces one translation value in its locale hash.
func (cache *Cache) WriteThroughTranslation(ctx context.Context, translation *Translation) error {
	err := cache.client.HSet(ctx, langHash(translation.Lang), translation.Key, translation.Value).Err()
	if err != nil {
		return apperr.Unavailable(fmt.Errorf("gamelist_cache_write_through_failed: %w", err))
	}
	return nil
}

// Remove deletes one projection entry after a successful store delete.
func (cache *Cache) Remove(ctx context.Context, kind Kind, key string) error {
	if err := cache.client.HDel(ctx, hashFor(kind), key).Err(); err != nil {
		return apperr.Unavailable(fmt.Errorf("gamelist_cache_remove_failed: %w", err))
	}
	return nil
}

// RemoveTranslation deletes one translation value from its locale hash.
func (cache *Cache) RemoveTranslation(ctx context.Context, key, lang string) error {
	if err := cache.client.HDel(ctx, langHash(lang), key).Err(); err != nil {
		return apperr.Unavailable(fmt.Errorf("gamelist_cache_remove_failed: %w", err))
	}
	return nil
}

// # Localization

/*
Translate resolves a translation key in the given locale, falling back to
the default locale, then to the key itself.

Implements the session.Translator contract.

Parameters:
  - ctx: context.Context
  - locale: string
  - key: string
  - args: ...any (formatting arguments, applied with fmt.Sprintf)

Returns:
  - string: The resolved text
*/
func (cache *Cache) Translate(ctx context.Context, locale, key string, args ...any) string {
	locale = CanonicalLocale(locale)

	value, err := cache.client.HGet(ctx, langHash(locale), key).Result()
	if err != nil && locale != constants.DefaultLocale {
		value, err = cache.client.HGet(ctx, langHash(constants.DefaultLocale), key).Result()
	}
	if err != nil {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(value, args...)
	}
	return value
}

// CanonicalLocale normalizes a client-reported locale tag ("en_US",
// "PT-br") to the lowercase underscore form used by the locale hashes.
// Unparseable tags fall back to the default locale.
func CanonicalLocale(locale string) string {
	if locale == "" {
		return constants.DefaultLocale
	}
	// Client locales use underscores; BCP 47 parsing expects hyphens.
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return constants.DefaultLocale
	}
	return strings.ToLower(strings.ReplaceAll(tag.String(), "-", "_"))
}
