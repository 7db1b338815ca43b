// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

/*
MigrateKeybinds converts legacy keybinds into targeted ones.

Description: Old clients stored keybinds against a button's rendered display
text instead of a stable button key. The migration resolves each untargeted
keybind back through the translation table of the session's locale to the
translation key, then to the button carrying that key, and rewrites the bind
to target the button directly. Binds that already carry a target pass through
untouched. Unresolvable binds are kept as-is and reported with a single
partial-failure chat line.

Payload order: keybinds JSON array. Each element is an object with at least a
name; extra client-side fields (key codes, modifiers) round-trip unchanged.
*/
func (h *Handlers) MigrateKeybinds(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	var keybinds []map[string]any
	if err := action.JSONAt(0, &keybinds); err != nil {
		h.logger.Warn("keybind_migration_unparseable", slog.String("error", err.Error()))
		return nil
	}
	if len(keybinds) == 0 {
		return nil
	}

	keyByValue, buttonByTranslationKey, err := h.keybindIndexes(ctx, sess.Locale)
	if err != nil {
		h.logger.Warn("keybind_migration_index_failed", slog.String("error", err.Error()))
		sess.SendChat(protocol.Text(sess.Translate(ctx, "loadout.migrationPartiallyFailed")).SetColor(protocol.ColorYellow))
		return nil
	}

	failures := 0
	for _, keybind := range keybinds {
		if target, ok := keybind["target"].(string); ok && target != "" {
			continue
		}
		name, _ := keybind["name"].(string)
		translationKey, ok := keyByValue[name]
		if !ok {
			failures++
			continue
		}
		buttonKey, ok := buttonByTranslationKey[translationKey]
		if !ok {
			failures++
			continue
		}
		keybind["target"] = buttonKey
	}

	migrated, err := json.Marshal(keybinds)
	if err != nil {
		h.logger.Warn("keybind_migration_marshal_failed", slog.String("error", err.Error()))
		return nil
	}
	sess.SendAction(protocol.NewSetKeybinds(migrated))

	if failures > 0 {
		sess.SendChat(protocol.Text(sess.Translate(ctx, "loadout.migrationPartiallyFailed")).SetColor(protocol.ColorYellow))
	}
	return nil
}

// keybindIndexes builds the two lookup tables the migration needs: rendered
// translation value back to translation key, and translation key to button key.
func (h *Handlers) keybindIndexes(ctx context.Context, locale string) (map[string]string, map[string]string, error) {
	translations, err := h.cache.AllTranslations(ctx, locale)
	if err != nil {
		return nil, nil, err
	}
	keyByValue := make(map[string]string, len(translations))
	for key, value := range translations {
		keyByValue[value] = key
	}

	buttons, err := h.cache.All(ctx, gamelist.KindButton)
	if err != nil {
		return nil, nil, err
	}
	buttonByTranslationKey := make(map[string]string, len(buttons))
	for key, raw := range buttons {
		var button gamelist.Button
		if err := json.Unmarshal([]byte(raw), &button); err != nil {
			continue
		}
		buttonByTranslationKey[button.TranslationKey] = key
	}
	return keyByValue, buttonByTranslationKey, nil
}
