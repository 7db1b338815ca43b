// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"context"

	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

/*
LanguageChanged switches the session's locale mid-connection.

Description: Re-sends the full game list so every translation the client
holds is replaced with the new locale's values. Entity pushes repeat too;
they are idempotent upserts on the client.

Payload order: locale tag.
*/
func (h *Handlers) LanguageChanged(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	locale := gamelist.CanonicalLocale(action.StringAt(0))
	if locale == sess.Locale {
		return nil
	}
	sess.Locale = locale
	h.sendGameList(ctx, sess)
	return nil
}
