// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package dispatch routes decoded serverbound actions to their registered
handlers.

The registry is a fixed lookup table from action ID to handler, populated
once at startup. Handlers are stateless singletons; all mutable state lives
in the [session.Session] passed to each invocation or in the stores the
handler was constructed with.

Authorization is deliberately per-handler rather than cross-cutting
middleware: a few actions (initialize, handshake completion) must run before
authentication exists, so each handler evaluates its own precondition as its
first step and sends a localized denial on failure.
*/
package dispatch

import (
	"context"
	"log/slog"

	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// Handler processes one decoded serverbound action for one session.
type Handler interface {
	Handle(ctx context.Context, action *protocol.Action, sess *session.Session) error
}

// HandlerFunc adapts a function to the [Handler] interface.
type HandlerFunc func(ctx context.Context, action *protocol.Action, sess *session.Session) error

// Handle implements [Handler].
func (f HandlerFunc) Handle(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	return f(ctx, action, sess)
}

// # Registry

// Registry maps serverbound action IDs to handlers.
type Registry struct {
	handlers map[uint16]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty dispatch registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[uint16]Handler),
		logger:   logger,
	}
}

// Register binds an action ID to its handler. Registration happens once
// during startup wiring; the table is read-only afterwards.
func (r *Registry) Register(id uint16, handler Handler) {
	r.handlers[id] = handler
}

/*
Dispatch decodes a raw frame and invokes the bound handler.

Description: Framing errors drop the frame without crashing the connection.
Unknown IDs are logged and ignored, so newer clients degrade gracefully
against older gateways. Handler errors are translated into localized chat
messages; only the error is returned for the caller's logging.

Parameters:
  - ctx: context.Context
  - frame: []byte (raw bytes off the socket)
  - sess: *session.Session

Returns:
  - error: The handler's error, or the framing error. Already communicated
    to the client where appropriate.
*/
func (r *Registry) Dispatch(ctx context.Context, frame []byte, sess *session.Session) error {
	action, err := protocol.Decode(frame)
	if err != nil {
		r.logger.Warn("dropping malformed frame",
			slog.String("session", sess.ID),
			slog.Any("error", err),
		)
		return err
	}

	handler, ok := r.handlers[action.ID]
	if !ok {
		r.logger.Warn("no handler for action",
			slog.String("session", sess.ID),
			slog.Int("action_id", int(action.ID)),
		)
		return nil
	}

	if err := handler.Handle(ctx, action, sess); err != nil {
		r.translate(ctx, err, action.ID, sess)
		return err
	}
	return nil
}

// translate maps a handler error to the user-facing localized message per
// the gateway's error taxonomy.
func (r *Registry) translate(ctx context.Context, err error, actionID uint16, sess *session.Session) {
	ae := apperr.As(err)
	if ae == nil {
		// Unexpected error: generic retry message; the per-connection
		// supervisor logs the cause.
		sess.SendLocalizedError(ctx, "loadout.tryAgain")
		return
	}

	switch ae.Code {
	case apperr.CodeAuthFailed:
		// Verification failures yield the dedicated AuthFailed action and
		// never reveal which check failed.
		sess.SendAction(protocol.NewAuthFailed())
	case apperr.CodeSecurity:
		// Already handled by the auth service (disable + purge). Nothing
		// further to send on a connection being torn down.
	case apperr.CodeFraming:
		// Frame already dropped; nothing user-visible.
	default:
		sess.SendLocalizedError(ctx, ae.TranslationKey)
	}

	r.logger.Warn("handler rejected action",
		slog.String("session", sess.ID),
		slog.Int("action_id", int(actionID)),
		slog.String("code", string(ae.Code)),
		slog.Any("error", err),
	)
}
