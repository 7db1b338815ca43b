// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// # Full Game-List Push
//
// A connection receives its entire UI configuration on initialize and again
// on every locale change. Order matters to the client: translations first so
// later entities can resolve their keys, then regexes, aliased actions,
// buttons, and finally screens, which reference everything before them.

// sendGameList pushes the complete entity set to one session in its own
// locale. Push failures are logged but never fail the triggering action:
// a saturated send queue already closes the connection elsewhere.
func (h *Handlers) sendGameList(ctx context.Context, sess *session.Session) {
	translations, err := h.cache.AllTranslations(ctx, sess.Locale)
	if err != nil {
		h.logger.Warn("game_list_translations_failed", slog.String("error", err.Error()))
	}
	for key, value := range translations {
		sess.SendAction(protocol.NewSetTranslation(key, sess.Locale, value))
	}

	admin := h.isAdmin(ctx, sess)

	sendKind(h, ctx, sess, gamelist.KindRegex, admin)
	sendKind(h, ctx, sess, gamelist.KindAliasedAction, admin)
	sendKind(h, ctx, sess, gamelist.KindButton, admin)
	sendKind(h, ctx, sess, gamelist.KindScreen, admin)
}

// sendKind pushes every cached entity of one kind, skipping admin-only
// entries for non-admin sessions.
func sendKind(h *Handlers, ctx context.Context, sess *session.Session, kind gamelist.Kind, admin bool) {
	entries, err := h.cache.All(ctx, kind)
	if err != nil {
		h.logger.Warn("game_list_pull_failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return
	}
	for key, raw := range entries {
		push, adminOnly, err := decodeEntity(kind, []byte(raw), h.glyphProxy)
		if err != nil {
			h.logger.Warn("game_list_entry_malformed",
				slog.String("kind", string(kind)),
				slog.String("key", key),
				slog.String("error", err.Error()))
			continue
		}
		if adminOnly && !admin {
			continue
		}
		sess.SendAction(push)
	}
}

// decodeEntity turns one cached JSON projection into its clientbound push.
func decodeEntity(kind gamelist.Kind, raw []byte, glyphProxy string) (push *protocol.Action, adminOnly bool, err error) {
	switch kind {
	case gamelist.KindScreen:
		var screen gamelist.Screen
		if err := json.Unmarshal(raw, &screen); err != nil {
			return nil, false, err
		}
		return screen.ToAction(), screen.AdminOnly, nil
	case gamelist.KindButton:
		var button gamelist.Button
		if err := json.Unmarshal(raw, &button); err != nil {
			return nil, false, err
		}
		return button.ToAction(), button.AdminOnly, nil
	case gamelist.KindAliasedAction:
		var aliased gamelist.AliasedAction
		if err := json.Unmarshal(raw, &aliased); err != nil {
			return nil, false, err
		}
		return aliased.ToAction(), aliased.AdminOnly, nil
	case gamelist.KindRegex:
		var regex gamelist.Regex
		if err := json.Unmarshal(raw, &regex); err != nil {
			return nil, false, err
		}
		return regex.ToAction(), false, nil
	case gamelist.KindGlyph:
		var glyph gamelist.Glyph
		if err := json.Unmarshal(raw, &glyph); err != nil {
			return nil, false, err
		}
		return glyph.ToAction(glyphProxy), false, nil
	}
	return nil, false, fmt.Errorf("unprojectable_kind: %s", kind)
}

// sendGlyphs pushes every glyph with a usable path. Not locale-dependent.
func (h *Handlers) sendGlyphs(ctx context.Context, sess *session.Session) {
	entries, err := h.cache.All(ctx, gamelist.KindGlyph)
	if err != nil {
		h.logger.Warn("glyph_pull_failed", slog.String("error", err.Error()))
		return
	}
	for uuid, raw := range entries {
		var glyph gamelist.Glyph
		if err := json.Unmarshal([]byte(raw), &glyph); err != nil {
			h.logger.Warn("glyph_entry_malformed",
				slog.String("uuid", uuid),
				slog.String("error", err.Error()))
			continue
		}
		if glyph.Path == "" {
			continue
		}
		sess.SendAction(glyph.ToAction(h.glyphProxy))
	}
}
