// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"context"
	"strings"

	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// Glyph geometry defaults applied when the client omits or garbles a field.
const (
	defaultGlyphHeight  = 20
	defaultGlyphYOffset = 0.0
)

// glyphGate admits admins for any glyph and premium users for their own.
// Returns the caller's admin flag and their account UUID.
func (h *Handlers) glyphGate(ctx context.Context, sess *session.Session, targetUUID string) (admin bool, err error) {
	admin = h.isAdmin(ctx, sess)
	if !sess.Authed || (!admin && !h.isPremium(ctx, sess)) {
		return false, apperr.Unauthorized()
	}
	if admin {
		return true, nil
	}

	account, lookupErr := h.authStore.FindAccountByID(ctx, sess.AccountID)
	if lookupErr != nil {
		return false, unavailable("loadout.glyph.error", lookupErr)
	}
	if account == nil || account.MinecraftUUID == "" || account.MinecraftUUID != targetUUID {
		return false, apperr.Unauthorized()
	}
	return false, nil
}

/*
AlterGlyph creates or updates a glyph.

Description: Premium users may edit their own glyph; admins may edit any.
Fields are merged over the existing glyph so a client can submit a partial
update. The path must already be a URL; this gateway never fetches or
transcodes image data.

Payload order: glyph JSON (uuid plus any of path, height, yOffset,
displayInGames).
*/
func (h *Handlers) AlterGlyph(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	var submitted struct {
		UUID           string   `json:"uuid"`
		Path           *string  `json:"path"`
		Height         *int     `json:"height"`
		YOffset        *float64 `json:"yOffset"`
		DisplayInGames *bool    `json:"displayInGames"`
	}
	if err := action.JSONAt(0, &submitted); err != nil || submitted.UUID == "" {
		return apperr.Validation("loadout.glyph.error")
	}
	submitted.UUID = strings.ToLower(strings.ReplaceAll(submitted.UUID, "-", ""))

	if _, err := h.glyphGate(ctx, sess, submitted.UUID); err != nil {
		return err
	}

	glyph, err := h.store.PullGlyph(ctx, submitted.UUID)
	if err != nil {
		return unavailable("loadout.glyph.error", err)
	}
	if glyph == nil {
		glyph = &gamelist.Glyph{
			UUID:    submitted.UUID,
			Height:  defaultGlyphHeight,
			YOffset: defaultGlyphYOffset,
		}
	}

	if submitted.DisplayInGames != nil {
		glyph.DisplayInGames = *submitted.DisplayInGames
	}
	if submitted.Height != nil {
		glyph.Height = *submitted.Height
		if glyph.Height <= 0 {
			glyph.Height = defaultGlyphHeight
		}
	}
	if submitted.YOffset != nil {
		glyph.YOffset = *submitted.YOffset
	}
	if submitted.Path != nil {
		path := *submitted.Path
		if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
			return apperr.Validation("loadout.glyph.error")
		}
		glyph.Path = path
	}

	if err := h.store.UpsertGlyph(ctx, glyph); err != nil {
		return unavailable("loadout.glyph.error", err)
	}
	if err := h.finishMutation(ctx, sess, gamelist.KindGlyph, glyph.UUID, glyph, protocol.IDAlterGlyph, "loadout.glyph.error"); err != nil {
		return err
	}

	sess.SendChat(protocol.Text(sess.Translate(ctx, "loadout.glyph.complete")).SetColor(protocol.ColorGreen))
	return nil
}

/*
DeleteGlyph removes a glyph. Same gate as AlterGlyph.

Payload order: glyph owner UUID.
*/
func (h *Handlers) DeleteGlyph(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	uuid := strings.ToLower(strings.ReplaceAll(action.StringAt(0), "-", ""))
	if uuid == "" {
		return apperr.Validation("loadout.glyph.error")
	}

	if _, err := h.glyphGate(ctx, sess, uuid); err != nil {
		return err
	}

	if err := h.store.DeleteGlyph(ctx, uuid); err != nil {
		return unavailable("loadout.glyph.error", err)
	}
	if err := h.finishMutation(ctx, sess, gamelist.KindGlyph, uuid, nil, protocol.IDDeleteGlyph, "loadout.glyph.error"); err != nil {
		return err
	}

	sess.SendChat(protocol.Text(sess.Translate(ctx, "loadout.glyph.complete")).SetColor(protocol.ColorGreen))
	return nil
}
