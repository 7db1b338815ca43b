// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"

	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// # Server Recognition

// Recognized server display names.
const (
	serverNameHypixel      = "Hypixel Network"
	serverNameHypixelAlpha = "Hypixel Alpha Network"
	serverNameUnrecognized = "Unrecognized Server"
)

// hypixelAddressPattern matches any hypixel.net hostname or the network's
// direct-connect IP range, with an optional port.
var (
	hypixelAddressPattern = regexp.MustCompile(`(?i)^(?:(?:.*\.)?hypixel\.net|209\.222\.115\.\d{1,3})(?::\d{1,5})?$`)
	alphaAddressPattern   = regexp.MustCompile(`(?i)^alpha\.hypixel\.net(?::\d{1,5})?$`)
)

// recognizeServer maps a raw connect address to a display name.
func recognizeServer(address string) string {
	switch {
	case alphaAddressPattern.MatchString(address):
		return serverNameHypixelAlpha
	case hypixelAddressPattern.MatchString(address):
		return serverNameHypixel
	default:
		return serverNameUnrecognized
	}
}

/*
ServerJoined records which multiplayer server the client connected to.

Description: The client only unlocks server-specific behavior when the
gateway confirms the server, so the recognized name is echoed back.

Payload order: server address.
*/
func (h *Handlers) ServerJoined(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	name := recognizeServer(action.StringAt(0))
	sess.CurrentServer = name
	sess.SendAction(protocol.NewSetCurrentServer(name))
	return nil
}

// ServerLeft clears the current server.
func (h *Handlers) ServerLeft(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	sess.CurrentServer = ""
	sess.SendAction(protocol.NewSetCurrentServer(""))
	return nil
}

/*
LocationChanged records the client's in-game location.

Description: Location is informational only; nothing server-side keys off
it yet, so it is logged at debug for support investigations.

Payload order: location JSON.
*/
func (h *Handlers) LocationChanged(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	h.logger.Debug("client_location_changed",
		slog.String("session_id", sess.ID),
		slog.String("location", action.StringAt(0)))
	return nil
}

// ButtonPressed acknowledges a button press report. Usage analytics are not
// collected, so the report is dropped on the floor rather than rejected,
// which would surface an error toast on older clients.
func (h *Handlers) ButtonPressed(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	return nil
}

/*
SetClientSettings stores the settings blob the client reports on startup and
whenever the user changes an option.

Description: The blob is opaque to the gateway; it is kept on the session for
support investigations and future server-side behavior that keys off client
options. A blob that is not valid JSON is rejected with a chat warning, the
way a malformed report surfaced in older clients.

Payload order: settings JSON.
*/
func (h *Handlers) SetClientSettings(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	raw := action.BytesAt(0)
	if !json.Valid(raw) {
		h.logger.Warn("client_settings_invalid",
			slog.String("session_id", sess.ID),
			slog.String("addon_version", sess.AddonVersion))
		sess.SendAction(protocol.NewSystemOut("WARNING: Your client sent invalid settings. This may be a bug; consider updating the add-on."))
		return nil
	}
	sess.ClientSettings = append(sess.ClientSettings[:0], raw...)
	return nil
}

// ExceptionThrown records a client-side error report.
func (h *Handlers) ExceptionThrown(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	h.logger.Warn("client_exception_reported",
		slog.String("session_id", sess.ID),
		slog.String("user_agent", sess.UserAgent),
		slog.String("addon_version", sess.AddonVersion),
		slog.String("exception", action.StringAt(0)))
	return nil
}
