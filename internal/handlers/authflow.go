// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// editHistoryLimit bounds the backlog pushed to a freshly authenticated admin.
const editHistoryLimit = 1000

// connectionHistoryWindow is how far back the connection chart reaches.
const connectionHistoryWindow = 24 * time.Hour

// adminRecheckLoops is how many 1-second count pushes pass between admin
// re-checks in the streaming loop.
const adminRecheckLoops = 120

/*
AuthMojangEndHandshake completes the Minecraft verification path.

Payload order: username.
*/
func (h *Handlers) AuthMojangEndHandshake(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if sess.Authed {
		return apperr.AuthFailed(errors.New("already_authed"))
	}

	if err := h.auth.CompleteMojang(ctx, sess, action.StringAt(0)); err != nil {
		return err
	}
	h.afterAuth(ctx, sess)
	return nil
}

/*
AuthDiscordEndHandshake completes the Discord OAuth path.

Payload order: authorization code, CSRF state.
*/
func (h *Handlers) AuthDiscordEndHandshake(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if sess.Authed {
		return apperr.AuthFailed(errors.New("already_authed"))
	}

	if err := h.auth.CompleteDiscord(ctx, sess, action.StringAt(0), action.StringAt(1)); err != nil {
		return err
	}
	// The connection's identity was unknown until now; the game list it got
	// at initialize used defaults, so resend with the account resolved.
	h.sendGameList(ctx, sess)
	h.afterAuth(ctx, sess)
	return nil
}

/*
LinkDiscord redeems a single-use link code after a Discord callback resolved
to an identity no account is linked to.

Payload order: link code.
*/
func (h *Handlers) LinkDiscord(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	return h.auth.LinkDiscord(ctx, sess, action.StringAt(0))
}

/*
AuthGoogleEndHandshake completes the Google OAuth path.

Payload order: authorization code, CSRF state.
*/
func (h *Handlers) AuthGoogleEndHandshake(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if sess.Authed {
		return apperr.AuthFailed(errors.New("already_authed"))
	}

	if err := h.auth.CompleteGoogle(ctx, sess, action.StringAt(0), action.StringAt(1)); err != nil {
		return err
	}
	h.afterAuth(ctx, sess)
	return nil
}

/*
AuthReestablishSession resumes authentication from a prior session token
without re-verifying against any provider.

Payload order: session token.
*/
func (h *Handlers) AuthReestablishSession(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	token := action.StringAt(0)
	if token == "" {
		return apperr.AuthFailed(errors.New("resume_token_missing"))
	}

	if err := h.auth.Resume(ctx, sess, token, sess.AccountID); err != nil {
		return err
	}
	h.afterAuth(ctx, sess)
	return nil
}

// # Post-Authentication Extras

// afterAuth pushes the admin dashboard data to freshly authenticated admin
// sessions: the edit-log backlog, the 24-hour connection chart, and a live
// user-count stream for as long as the connection (and adminship) lasts.
func (h *Handlers) afterAuth(ctx context.Context, sess *session.Session) {
	if !h.isAdmin(ctx, sess) {
		return
	}
	h.sendEditHistory(ctx, sess)
	h.sendConnectionHistory(ctx, sess)
	// Re-authentication runs afterAuth again every few hours on a live
	// connection; the guard keeps exactly one pusher per session.
	if sess.BeginUserCountStream() {
		go h.streamUserCount(ctx, sess)
	}
}

// sendEditHistory pushes the recent edit-log rows, newest first.
func (h *Handlers) sendEditHistory(ctx context.Context, sess *session.Session) {
	entries, err := h.store.RecentEditLog(ctx, editHistoryLimit)
	if err != nil {
		h.logger.Warn("edit_history_pull_failed", slog.String("error", err.Error()))
		return
	}
	for _, entry := range entries {
		sess.SendAction(protocol.NewPushEditHistoryEvent(
			time.UnixMilli(entry.Timestamp), entry.EditedBy, string(entry.ItemType),
			entry.ItemKey, entry.Deleted, entry.PrevVersion))
	}
}

// sendConnectionHistory pushes the connection chart datapoints. The first
// datapoint carries the reset flag so the client clears any previous chart.
func (h *Handlers) sendConnectionHistory(ctx context.Context, sess *session.Session) {
	datapoints, err := h.store.ConnectionHistory(ctx, time.Now().Add(-connectionHistoryWindow))
	if err != nil {
		h.logger.Warn("connection_history_pull_failed", slog.String("error", err.Error()))
		return
	}
	for i, dp := range datapoints {
		sess.SendAction(protocol.NewAddUserCountHistory(dp.Timestamp, dp.Count, i == 0))
	}
}

// streamUserCount pushes the fleet-wide connection count once a second until
// the connection context ends or the session loses adminship. ctx is the
// connection's lifetime context, so teardown stops the loop.
func (h *Handlers) streamUserCount(ctx context.Context, sess *session.Session) {
	defer sess.EndUserCountStream()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	loops := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		loops++
		if loops >= adminRecheckLoops {
			loops = 0
			if !h.isAdmin(ctx, sess) {
				return
			}
		}

		count, err := h.redis.Get(ctx, constants.RedisKeyConnections).Int64()
		if err != nil {
			continue
		}
		sess.SendAction(protocol.NewSetCurrentUserCount(count))
	}
}
