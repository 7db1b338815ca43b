// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// Identifier types a client may present in InitializeClient.
const (
	identifierMojang  = "MOJANG"
	identifierGoogle  = "GOOGLE"
	identifierDiscord = "DISCORD"
)

// zeroUUID is the all-zeros UUID offline-mode clients report.
const zeroUUID = "00000000000000000000000000000000"

/*
InitializeClient records the connection's self-reported metadata and starts
the authentication cycle.

Description: Identification is not authentication: the reported identifier
only selects which account the connection will later prove control of, so
nothing secret is released on its basis. A Mojang identifier creates the
account on first contact; Google identifiers must already be linked; Discord
connections carry no pre-auth identity at all and resolve during the OAuth
callback. After identification the full game list and glyph set are pushed
and a handshake begins.

Payload order: identifier, identifier type, user agent, add-on version,
locale, game version, client version.
*/
func (h *Handlers) InitializeClient(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	identifier := action.StringAt(0)
	// Some client builds double-encode the type as a JSON string.
	identifierType := strings.ToUpper(strings.Trim(action.StringAt(1), `"`))
	if identifier == "" || identifierType == "" {
		return apperr.AuthFailed(errors.New("initialize_identifier_missing"))
	}

	sess.UserAgent = strings.ToLower(action.StringAt(2))
	sess.AddonVersion = action.StringAt(3)
	if locale := action.StringAt(4); locale != "" {
		sess.Locale = gamelist.CanonicalLocale(locale)
	}
	sess.GameVersion = action.StringAt(5)
	sess.ClientVersion = action.StringAt(6)

	switch identifierType {
	case identifierMojang:
		if len(identifier) == 36 {
			identifier = strings.ReplaceAll(identifier, "-", "")
		}
		identifier = strings.ToLower(identifier)
		if len(identifier) != 32 || identifier == zeroUUID {
			return apperr.AuthFailed(errors.New("initialize_uuid_malformed"))
		}
		account, err := h.authStore.FindOrCreateAccountByMinecraftUUID(ctx, identifier)
		if err != nil {
			return apperr.Unavailable(err)
		}
		sess.AccountID = account.ID
		sess.AuthMode = session.ModeMojang

	case identifierGoogle:
		account, err := h.authStore.FindAccountByGoogleID(ctx, identifier)
		if err != nil {
			return apperr.Unavailable(err)
		}
		if account == nil {
			return apperr.AuthFailed(errors.New("initialize_google_unlinked"))
		}
		sess.AccountID = account.ID
		sess.AuthMode = session.ModeGoogle

	case identifierDiscord:
		// Identity arrives with the OAuth callback.
		sess.AuthMode = session.ModeDiscord

	default:
		return apperr.AuthFailed(errors.New("initialize_identifier_type_unknown"))
	}

	if err := h.auth.BeginHandshake(ctx, sess); err != nil {
		return err
	}

	h.sendGameList(ctx, sess)
	h.sendGlyphs(ctx, sess)
	return nil
}
