// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/platform/sec"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// # Collaborator Contracts

// Verifier performs the outbound identity-provider checks. [Providers] is the
// production implementation; tests substitute fakes.
type Verifier interface {
	VerifyMojang(ctx context.Context, username, serverIDSeed string) (string, error)
	VerifyDiscord(ctx context.Context, code string) (string, error)
	VerifyGoogle(ctx context.Context, code string) (string, error)
}

// RankResolver resolves external rank data, degrading to [NoRank] on failure.
type RankResolver interface {
	Resolve(ctx context.Context, minecraftUUID string) RankData
}

// # Authentication Service

// Service owns the per-connection authentication state machine. It mutates
// session auth state, persists credentials through [Store], and pushes the
// handshake protocol actions.
type Service struct {
	store    Store
	verifier Verifier
	rank     RankResolver
	logger   *slog.Logger
}

// NewService wires the authentication service.
func NewService(store Store, verifier Verifier, rank RankResolver, logger *slog.Logger) *Service {
	return &Service{store: store, verifier: verifier, rank: rank, logger: logger}
}

/*
BeginHandshake starts (or restarts) an authentication cycle for an
identified connection.

Description: Admission is throttled per account: a handshake issued within
the last five seconds rejects the new attempt outright, which bounds both
provider traffic and credential-stuffing speed. On success a fresh random
token is remembered on the session (it doubles as the OAuth CSRF state) and
pushed to the client. An identified connection also persists the token; an
unidentified one (OAuth modes, where identity arrives with the callback)
persists it only once the provider names the account.

Returns:
  - error: *apperr.AppError with CodeRateLimited when throttled
*/
func (service *Service) BeginHandshake(ctx context.Context, sess *session.Session) error {
	if sess.AccountID != session.UnresolvedAccount {
		recent, err := service.store.CountRecentHandshakes(ctx, sess.AccountID, time.Now().Add(-constants.HandshakeMinInterval))
		if err != nil {
			return apperr.Unavailable(fmt.Errorf("handshake_throttle_check_failed: %w", err))
		}
		if recent > 0 {
			return apperr.RateLimited()
		}
	}

	token, err := sec.GenerateToken(constants.TokenByteLength)
	if err != nil {
		return apperr.Unavailable(fmt.Errorf("handshake_token_generate_failed: %w", err))
	}
	if sess.AccountID != session.UnresolvedAccount {
		if err := service.store.CreateHandshake(ctx, sess.AccountID, token); err != nil {
			return apperr.Unavailable(err)
		}
	}

	sess.PendingHandshake = token
	sess.OAuthState = token
	sess.SendAction(protocol.NewAuthBeginHandshake(token))
	return nil
}

// # Verification Paths

/*
CompleteMojang finishes the Minecraft session-server verification path.

Description: The session server is asked whether the claimed username joined
the "server" named by our handshake digest. The verified UUID must match the
UUID the connection identified with: a mismatch means someone is completing a
handshake for an account they do not control, which is a security event that
disables the connection and purges its standing handshakes.

Parameters:
  - ctx: context.Context
  - sess: *session.Session holding a pending handshake
  - username: string claimed Minecraft username

Returns:
  - error: CodeAuthFailed on rejection, CodeSecurity on identity mismatch
*/
func (service *Service) CompleteMojang(ctx context.Context, sess *session.Session, username string) error {
	if sess.AccountID == session.UnresolvedAccount {
		return apperr.AuthFailed(errors.New("mojang_handshake_unidentified"))
	}

	account, err := service.store.FindAccountByID(ctx, sess.AccountID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if account == nil {
		return apperr.AuthFailed(errors.New("mojang_account_vanished"))
	}

	handshake, err := service.pendingHandshake(ctx, sess)
	if err != nil {
		return err
	}

	// The client derives the server id from the same concatenation.
	verifiedUUID, err := service.verifier.VerifyMojang(ctx, username, handshake+account.MinecraftUUID)
	if err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return apperr.AuthFailed(err)
	}

	if account.MinecraftUUID != verifiedUUID {
		return service.securityEvent(ctx, sess, fmt.Errorf(
			"mojang_uuid_mismatch: claimed account %d", sess.AccountID))
	}

	return service.complete(ctx, sess, account, session.ModeMojang)
}

/*
CompleteDiscord finishes the Discord OAuth2 verification path.

Description: The state parameter echoed by the OAuth redirect must equal the
handshake token we issued; any other value is a forged or replayed callback
and is treated as a security event. The exchanged Discord id must resolve to
a linked account, and when the connection already identified as a specific
account the two must agree.
*/
func (service *Service) CompleteDiscord(ctx context.Context, sess *session.Session, code, state string) error {
	if err := service.checkOAuthState(ctx, sess, state); err != nil {
		return err
	}

	discordID, err := service.verifier.VerifyDiscord(ctx, code)
	if err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return apperr.AuthFailed(err)
	}

	account, err := service.store.FindAccountByDiscordID(ctx, discordID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if account == nil {
		// The identity is verified, just unlinked. Remember it so the client
		// may redeem a link code over this connection and retry.
		sess.AwaitingDiscordLink = true
		sess.DiscordLinkSubject = discordID
		return apperr.AuthFailed(errors.New("discord_account_not_linked"))
	}
	if sess.AccountID != session.UnresolvedAccount && sess.AccountID != account.ID {
		return service.securityEvent(ctx, sess, fmt.Errorf(
			"discord_account_mismatch: session %d, linked %d", sess.AccountID, account.ID))
	}

	sess.AccountID = account.ID
	// Identity arrived with the callback, so the handshake row is persisted
	// now; promotion below rotates it into the session token.
	if err := service.store.CreateHandshake(ctx, account.ID, sess.OAuthState); err != nil {
		return apperr.Unavailable(err)
	}
	return service.complete(ctx, sess, account, session.ModeDiscord)
}

/*
LinkDiscord binds the Discord identity stashed by an unlinked OAuth callback
to an existing account, then restarts the handshake so the retried callback
resolves.

Description: The connection must have just failed CompleteDiscord with an
unlinked identity; any other connection state rejects outright. The code is
single-use and expires five minutes after issue. Linking refuses accounts
that already carry a Discord id, so a code cannot re-point someone else's
link.

Parameters:
  - ctx: context.Context
  - sess: *session.Session holding the stashed Discord subject
  - code: string link code the user obtained out of band

Returns:
  - error: CodeAuthFailed on ineligible connections, unknown or expired
    codes, and already-linked accounts
*/
func (service *Service) LinkDiscord(ctx context.Context, sess *session.Session, code string) error {
	if code == "" {
		return apperr.AuthFailed(errors.New("discord_link_code_missing"))
	}
	if sess.Authed || !sess.AwaitingDiscordLink || sess.DiscordLinkSubject == "" {
		return apperr.AuthFailed(errors.New("discord_link_not_pending"))
	}

	accountID, err := service.store.ConsumeLinkCode(ctx, code)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if accountID == 0 {
		return apperr.AuthFailed(errors.New("discord_link_code_invalid"))
	}

	linked, err := service.store.LinkDiscordID(ctx, accountID, sess.DiscordLinkSubject)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if !linked {
		return apperr.AuthFailed(fmt.Errorf("discord_link_conflict: account %d", accountID))
	}

	sess.AwaitingDiscordLink = false
	sess.DiscordLinkSubject = ""
	service.logger.Info("discord_linked",
		slog.String("session_id", sess.ID),
		slog.Int64("account_id", accountID))

	// The identity is linked now; a fresh handshake lets the client redo the
	// OAuth round trip and land in CompleteDiscord with a resolvable account.
	return service.BeginHandshake(ctx, sess)
}

// CompleteGoogle finishes the Google OAuth2 verification path. Identical
// shape to the Discord path with Google's subject id as the link key.
func (service *Service) CompleteGoogle(ctx context.Context, sess *session.Session, code, state string) error {
	if err := service.checkOAuthState(ctx, sess, state); err != nil {
		return err
	}

	googleID, err := service.verifier.VerifyGoogle(ctx, code)
	if err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return apperr.AuthFailed(err)
	}

	account, err := service.store.FindAccountByGoogleID(ctx, googleID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if account == nil {
		return apperr.AuthFailed(errors.New("google_account_not_linked"))
	}
	if sess.AccountID != session.UnresolvedAccount && sess.AccountID != account.ID {
		return service.securityEvent(ctx, sess, fmt.Errorf(
			"google_account_mismatch: session %d, linked %d", sess.AccountID, account.ID))
	}

	sess.AccountID = account.ID
	if err := service.store.CreateHandshake(ctx, account.ID, sess.OAuthState); err != nil {
		return apperr.Unavailable(err)
	}
	return service.complete(ctx, sess, account, session.ModeGoogle)
}

/*
Resume re-establishes authentication from a previously issued session token.

Description: The token must exist, be younger than its 3-hour lifetime, and
belong to the account the connection claims. A valid token skips provider
verification entirely; the re-auth timer is armed for the token's remaining
lifetime only, never a fresh 3 hours, so a token can never outlive its
original expiration through resumption.

Returns:
  - error: CodeAuthFailed on unknown, expired, or mismatched tokens; the
    connection stays anonymous
*/
func (service *Service) Resume(ctx context.Context, sess *session.Session, token string, accountID int64) error {
	found, err := service.store.FindSessionToken(ctx, token, constants.SessionTokenTTL)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if found == nil || found.AccountID != accountID {
		return apperr.AuthFailed(errors.New("session_token_invalid"))
	}

	account, err := service.store.FindAccountByID(ctx, found.AccountID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if account == nil || account.Banned {
		return apperr.AuthFailed(errors.New("session_token_account_unusable"))
	}

	sess.AccountID = account.ID
	expiration := found.IssuedAt.Add(constants.SessionTokenTTL)
	remaining := time.Until(expiration)
	if remaining <= 0 {
		return apperr.AuthFailed(errors.New("session_token_expired"))
	}

	service.markAuthenticated(ctx, sess, account, sess.AuthMode, token, expiration, remaining)
	return nil
}

// # Internal Transitions

// pendingHandshake returns the handshake the session must answer, recovering
// from the store when connection state was lost.
func (service *Service) pendingHandshake(ctx context.Context, sess *session.Session) (string, error) {
	if sess.PendingHandshake != "" {
		return sess.PendingHandshake, nil
	}
	handshake, err := service.store.LatestHandshake(ctx, sess.AccountID, constants.HandshakeValidity)
	if err != nil {
		return "", apperr.Unavailable(err)
	}
	if handshake == "" {
		return "", apperr.AuthFailed(errors.New("no_pending_handshake"))
	}
	return handshake, nil
}

// checkOAuthState rejects OAuth callbacks whose state does not match the
// handshake token issued to this connection. OAuth state lives only on the
// session, never in the store, so a reconnected socket cannot answer an old
// callback.
func (service *Service) checkOAuthState(ctx context.Context, sess *session.Session, state string) error {
	if sess.OAuthState == "" {
		return apperr.AuthFailed(errors.New("no_pending_oauth_state"))
	}
	if state != sess.OAuthState {
		return service.securityEvent(ctx, sess, errors.New("oauth_state_mismatch"))
	}
	return nil
}

// complete rotates the handshake into a session token and transitions the
// session to authenticated.
func (service *Service) complete(ctx context.Context, sess *session.Session, account *Account, mode session.AuthMode) error {
	if account.Banned {
		sess.Disable(sess.Translate(ctx, "loadout.banned"))
		return apperr.AuthFailed(fmt.Errorf("account_banned: %d", account.ID))
	}

	token, err := sec.GenerateToken(constants.TokenByteLength)
	if err != nil {
		return apperr.Unavailable(fmt.Errorf("session_token_generate_failed: %w", err))
	}
	if err := service.store.PromoteToSessionToken(ctx, account.ID, token); err != nil {
		return apperr.Unavailable(err)
	}
	if err := service.store.TouchLoginTimestamps(ctx, account.ID); err != nil {
		service.logger.Warn("touch_login_failed",
			slog.Int64("account_id", account.ID),
			slog.String("error", err.Error()))
	}

	expiration := time.Now().Add(constants.SessionTokenTTL)
	service.markAuthenticated(ctx, sess, account, mode, token, expiration, constants.SessionTokenTTL)
	return nil
}

// markAuthenticated applies the authenticated state to the session, arms the
// re-auth timer, and pushes the completion action with the account snapshot.
func (service *Service) markAuthenticated(ctx context.Context, sess *session.Session, account *Account, mode session.AuthMode, token string, expiration time.Time, ttl time.Duration) {
	premium, premiumExpiration, err := service.store.PremiumUntil(ctx, account.ID)
	if err != nil {
		service.logger.Warn("premium_lookup_failed",
			slog.Int64("account_id", account.ID),
			slog.String("error", err.Error()))
		premium = false
	}

	rank := NoRank()
	if service.rank != nil {
		rank = service.rank.Resolve(ctx, account.MinecraftUUID)
	}

	sess.Authed = true
	sess.AuthMode = mode
	sess.PendingHandshake = ""
	sess.OAuthState = ""
	sess.InvalidatePermissionCache()
	sess.SetCachedAdmin(account.IsAdmin)
	sess.SetCachedPremium(premium)

	// Expiry restarts the cycle on the timer goroutine; the context that
	// completed this auth is long gone by then.
	sess.ArmReauthTimer(ttl, func() { service.expire(sess) })

	snapshot := protocol.AuthSnapshot{
		MinecraftUUID:     account.MinecraftUUID,
		DiscordID:         account.DiscordID,
		GoogleID:          account.GoogleID,
		IsAdmin:           account.IsAdmin,
		IsPremium:         premium,
		PremiumExpiration: premiumExpiration,
		Rank:              rank.Rank,
		PackageRank:       rank.PackageRank,
		IsBuildTeam:       rank.IsBuildTeam,
		IsBuildTeamAdmin:  rank.IsBuildTeamAdmin,
	}
	sess.SendAction(protocol.NewAuthComplete(token, expiration, snapshot))

	service.logger.Info("auth_completed",
		slog.String("session_id", sess.ID),
		slog.Int64("account_id", account.ID),
		slog.String("mode", string(mode)))
}

// expire fires when a session token reaches end of life while the socket is
// still open. The auth flag drops and a fresh handshake begins, invisible to
// the user unless verification then fails.
func (service *Service) expire(sess *session.Session) {
	sess.Authed = false
	sess.InvalidatePermissionCache()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := service.BeginHandshake(ctx, sess); err != nil {
		service.logger.Warn("reauth_begin_failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
		sess.SendAction(protocol.NewAuthFailed())
	}
}

// securityEvent handles a detected identity mismatch: the connection is
// force-disabled and every standing handshake for the account is purged so
// the attacker cannot retry with stolen state.
func (service *Service) securityEvent(ctx context.Context, sess *session.Session, cause error) error {
	service.logger.Error("auth_security_event",
		slog.String("session_id", sess.ID),
		slog.Int64("account_id", sess.AccountID),
		slog.String("cause", cause.Error()))

	if sess.AccountID != session.UnresolvedAccount {
		if err := service.store.PurgeHandshakes(ctx, sess.AccountID); err != nil {
			service.logger.Error("handshake_purge_failed",
				slog.Int64("account_id", sess.AccountID),
				slog.String("error", err.Error()))
		}
	}
	sess.PendingHandshake = ""
	sess.OAuthState = ""
	sess.Disable(sess.Translate(ctx, "loadout.securityViolation"))
	return apperr.Security(cause)
}
