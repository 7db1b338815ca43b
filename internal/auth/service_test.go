// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// # Test Doubles

// fakeStore implements [Store] with overridable function fields. Unset fields
// behave as an empty database.
type fakeStore struct {
	findAccountByID        func(id int64) (*Account, error)
	findByDiscordID        func(discordID string) (*Account, error)
	findByGoogleID         func(googleID string) (*Account, error)
	countRecentHandshakes  func(accountID int64) (int, error)
	findSessionToken       func(token string) (*SessionToken, error)
	latestHandshake        func(accountID int64) (string, error)
	premiumUntil           func(accountID int64) (bool, time.Time, error)
	consumeLinkCode        func(code string) (int64, error)
	linkDiscordID          func(accountID int64, discordID string) (bool, error)
	linkedDiscordIDs       map[int64]string
	createdHandshakes      []string
	promotedTokens         []string
	purgedAccounts         []int64
	touchedAccounts        []int64
	upsertedMinecraftUUIDs []string
}

func (s *fakeStore) FindAccountByID(_ context.Context, id int64) (*Account, error) {
	if s.findAccountByID != nil {
		return s.findAccountByID(id)
	}
	return nil, nil
}

func (s *fakeStore) FindOrCreateAccountByMinecraftUUID(_ context.Context, uuid string) (*Account, error) {
	s.upsertedMinecraftUUIDs = append(s.upsertedMinecraftUUIDs, uuid)
	return &Account{ID: 1, MinecraftUUID: uuid}, nil
}

func (s *fakeStore) FindAccountByDiscordID(_ context.Context, discordID string) (*Account, error) {
	if s.findByDiscordID != nil {
		return s.findByDiscordID(discordID)
	}
	return nil, nil
}

func (s *fakeStore) FindAccountByGoogleID(_ context.Context, googleID string) (*Account, error) {
	if s.findByGoogleID != nil {
		return s.findByGoogleID(googleID)
	}
	return nil, nil
}

func (s *fakeStore) TouchLoginTimestamps(_ context.Context, accountID int64) error {
	s.touchedAccounts = append(s.touchedAccounts, accountID)
	return nil
}

func (s *fakeStore) PremiumUntil(_ context.Context, accountID int64) (bool, time.Time, error) {
	if s.premiumUntil != nil {
		return s.premiumUntil(accountID)
	}
	return false, time.Time{}, nil
}

func (s *fakeStore) IsAdmin(_ context.Context, _ int64) (bool, error) { return false, nil }

func (s *fakeStore) CountRecentHandshakes(_ context.Context, accountID int64, _ time.Time) (int, error) {
	if s.countRecentHandshakes != nil {
		return s.countRecentHandshakes(accountID)
	}
	return 0, nil
}

func (s *fakeStore) CreateHandshake(_ context.Context, _ int64, token string) error {
	s.createdHandshakes = append(s.createdHandshakes, token)
	return nil
}

func (s *fakeStore) LatestHandshake(_ context.Context, accountID int64, _ time.Duration) (string, error) {
	if s.latestHandshake != nil {
		return s.latestHandshake(accountID)
	}
	return "", nil
}

func (s *fakeStore) PurgeHandshakes(_ context.Context, accountID int64) error {
	s.purgedAccounts = append(s.purgedAccounts, accountID)
	return nil
}

func (s *fakeStore) PromoteToSessionToken(_ context.Context, _ int64, token string) error {
	s.promotedTokens = append(s.promotedTokens, token)
	return nil
}

func (s *fakeStore) FindSessionToken(_ context.Context, token string, _ time.Duration) (*SessionToken, error) {
	if s.findSessionToken != nil {
		return s.findSessionToken(token)
	}
	return nil, nil
}

func (s *fakeStore) ConsumeLinkCode(_ context.Context, code string) (int64, error) {
	if s.consumeLinkCode != nil {
		return s.consumeLinkCode(code)
	}
	return 0, nil
}

func (s *fakeStore) LinkDiscordID(_ context.Context, accountID int64, discordID string) (bool, error) {
	if s.linkDiscordID != nil {
		return s.linkDiscordID(accountID, discordID)
	}
	if s.linkedDiscordIDs == nil {
		s.linkedDiscordIDs = map[int64]string{}
	}
	s.linkedDiscordIDs[accountID] = discordID
	return true, nil
}

// fakeVerifier implements [Verifier] with canned answers.
type fakeVerifier struct {
	mojangUUID string
	mojangSeed string
	discordID  string
	googleID   string
	err        error
}

func (v *fakeVerifier) VerifyMojang(_ context.Context, _, serverIDSeed string) (string, error) {
	v.mojangSeed = serverIDSeed
	return v.mojangUUID, v.err
}

func (v *fakeVerifier) VerifyDiscord(_ context.Context, _ string) (string, error) {
	return v.discordID, v.err
}

func (v *fakeVerifier) VerifyGoogle(_ context.Context, _ string) (string, error) {
	return v.googleID, v.err
}

// fakeRank implements [RankResolver].
type fakeRank struct{ data RankData }

func (r *fakeRank) Resolve(_ context.Context, _ string) RankData { return r.data }

// capturedSession wires a session whose outbound actions and close reasons
// are recorded for assertions.
type capturedSession struct {
	sess    *session.Session
	actions []*protocol.Action
	closed  []string
}

func newCapturedSession(t *testing.T) *capturedSession {
	t.Helper()
	captured := &capturedSession{}
	captured.sess = session.New(
		func(frame []byte) bool {
			action, err := protocol.Decode(frame)
			require.NoError(t, err)
			captured.actions = append(captured.actions, action)
			return true
		},
		func(reason string) { captured.closed = append(captured.closed, reason) },
		nil,
	)
	t.Cleanup(captured.sess.CancelReauthTimer)
	return captured
}

// lastAction returns the newest captured action, failing when none exists.
func (c *capturedSession) lastAction(t *testing.T) *protocol.Action {
	t.Helper()
	require.NotEmpty(t, c.actions)
	return c.actions[len(c.actions)-1]
}

func newTestService(store Store, verifier Verifier, rank RankResolver) *Service {
	return NewService(store, verifier, rank, slog.New(slog.DiscardHandler))
}

// # Handshake Issue

/*
TestBeginHandshake_Identified verifies an identified connection persists the
handshake, stashes it on the session, and pushes it to the client.
*/
func TestBeginHandshake_Identified(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(store, &fakeVerifier{}, &fakeRank{})
	captured := newCapturedSession(t)
	captured.sess.AccountID = 7

	require.NoError(t, service.BeginHandshake(context.Background(), captured.sess))

	require.Len(t, store.createdHandshakes, 1)
	token := store.createdHandshakes[0]
	assert.NotEmpty(t, token)
	assert.Equal(t, token, captured.sess.PendingHandshake)
	assert.Equal(t, token, captured.sess.OAuthState)

	push := captured.lastAction(t)
	assert.Equal(t, protocol.IDAuthBeginHandshake, push.ID)
	assert.Equal(t, token, push.StringAt(0))
}

/*
TestBeginHandshake_Throttled verifies the per-account admission gate: a
handshake issued within the window rejects the new attempt before any token
is generated.
*/
func TestBeginHandshake_Throttled(t *testing.T) {
	store := &fakeStore{countRecentHandshakes: func(int64) (int, error) { return 1, nil }}
	service := newTestService(store, &fakeVerifier{}, &fakeRank{})
	captured := newCapturedSession(t)
	captured.sess.AccountID = 7

	err := service.BeginHandshake(context.Background(), captured.sess)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeRateLimited))
	assert.Empty(t, store.createdHandshakes)
	assert.Empty(t, captured.actions)
}

/*
TestBeginHandshake_Unidentified verifies an OAuth-mode connection gets a
handshake with nothing persisted: identity only arrives with the callback.
*/
func TestBeginHandshake_Unidentified(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(store, &fakeVerifier{}, &fakeRank{})
	captured := newCapturedSession(t)

	require.NoError(t, service.BeginHandshake(context.Background(), captured.sess))

	assert.Empty(t, store.createdHandshakes)
	assert.NotEmpty(t, captured.sess.OAuthState)
	assert.Equal(t, protocol.IDAuthBeginHandshake, captured.lastAction(t).ID)
}

// # Mojang Path

/*
TestCompleteMojang_Success verifies the full Minecraft verification: the
server id seed is the handshake concatenated with the UUID on file, the
handshake is promoted to a session token, and the completion push carries the
account snapshot.
*/
func TestCompleteMojang_Success(t *testing.T) {
	account := &Account{ID: 7, MinecraftUUID: "a1b2c3d4e5f6", IsAdmin: true}
	store := &fakeStore{findAccountByID: func(int64) (*Account, error) { return account, nil }}
	verifier := &fakeVerifier{mojangUUID: "a1b2c3d4e5f6"}
	service := newTestService(store, verifier, &fakeRank{data: RankData{Rank: "ADMIN", PackageRank: "NONE"}})

	captured := newCapturedSession(t)
	captured.sess.AccountID = 7
	captured.sess.PendingHandshake = "handshake-1"
	captured.sess.OAuthState = "handshake-1"

	require.NoError(t, service.CompleteMojang(context.Background(), captured.sess, "Notch"))

	assert.Equal(t, "handshake-1"+"a1b2c3d4e5f6", verifier.mojangSeed)
	require.Len(t, store.promotedTokens, 1)
	assert.Equal(t, []int64{7}, store.touchedAccounts)

	assert.True(t, captured.sess.Authed)
	assert.Equal(t, session.ModeMojang, captured.sess.AuthMode)
	assert.Empty(t, captured.sess.PendingHandshake)
	assert.Empty(t, captured.sess.OAuthState)

	push := captured.lastAction(t)
	assert.Equal(t, protocol.IDAuthComplete, push.ID)
	assert.Equal(t, store.promotedTokens[0], push.StringAt(0))
	assert.Equal(t, "a1b2c3d4e5f6", push.StringAt(2))
	assert.True(t, push.BoolAt(5), "isAdmin")
	assert.Equal(t, "ADMIN", push.StringAt(8))
}

/*
TestCompleteMojang_UUIDMismatch verifies a verified UUID differing from the
UUID on file is a security event: handshakes purged, connection disabled.
*/
func TestCompleteMojang_UUIDMismatch(t *testing.T) {
	account := &Account{ID: 7, MinecraftUUID: "a1b2c3d4e5f6"}
	store := &fakeStore{findAccountByID: func(int64) (*Account, error) { return account, nil }}
	service := newTestService(store, &fakeVerifier{mojangUUID: "ffffffffffff"}, &fakeRank{})

	captured := newCapturedSession(t)
	captured.sess.AccountID = 7
	captured.sess.PendingHandshake = "handshake-1"

	err := service.CompleteMojang(context.Background(), captured.sess, "Notch")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeSecurity))

	assert.Equal(t, []int64{7}, store.purgedAccounts)
	assert.NotEmpty(t, captured.closed, "connection must be torn down")
	assert.Equal(t, protocol.IDDisableClient, captured.lastAction(t).ID)
	assert.False(t, captured.sess.Authed)
}

/*
TestCompleteMojang_HandshakeRecovery verifies a session that lost its pending
handshake recovers the newest unconsumed one from the store.
*/
func TestCompleteMojang_HandshakeRecovery(t *testing.T) {
	account := &Account{ID: 7, MinecraftUUID: "a1b2c3d4e5f6"}
	store := &fakeStore{
		findAccountByID: func(int64) (*Account, error) { return account, nil },
		latestHandshake: func(int64) (string, error) { return "stored-handshake", nil },
	}
	verifier := &fakeVerifier{mojangUUID: "a1b2c3d4e5f6"}
	service := newTestService(store, verifier, &fakeRank{})

	captured := newCapturedSession(t)
	captured.sess.AccountID = 7

	require.NoError(t, service.CompleteMojang(context.Background(), captured.sess, "Notch"))
	assert.Equal(t, "stored-handshake"+"a1b2c3d4e5f6", verifier.mojangSeed)
}

/*
TestCompleteMojang_Banned verifies a banned account is disabled with no
session token issued.
*/
func TestCompleteMojang_Banned(t *testing.T) {
	account := &Account{ID: 7, MinecraftUUID: "a1b2c3d4e5f6", Banned: true}
	store := &fakeStore{findAccountByID: func(int64) (*Account, error) { return account, nil }}
	service := newTestService(store, &fakeVerifier{mojangUUID: "a1b2c3d4e5f6"}, &fakeRank{})

	captured := newCapturedSession(t)
	captured.sess.AccountID = 7
	captured.sess.PendingHandshake = "handshake-1"

	err := service.CompleteMojang(context.Background(), captured.sess, "Notch")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeAuthFailed))
	assert.Empty(t, store.promotedTokens)
	assert.Equal(t, protocol.IDDisableClient, captured.lastAction(t).ID)
}

// # OAuth Paths

/*
TestCompleteDiscord_Success verifies the OAuth completion: matching state,
linked account resolved, handshake persisted late, session authenticated.
*/
func TestCompleteDiscord_Success(t *testing.T) {
	account := &Account{ID: 9, MinecraftUUID: "a1b2c3d4e5f6", DiscordID: "discord-1"}
	store := &fakeStore{findByDiscordID: func(string) (*Account, error) { return account, nil }}
	service := newTestService(store, &fakeVerifier{discordID: "discord-1"}, &fakeRank{})

	captured := newCapturedSession(t)
	captured.sess.OAuthState = "state-1"

	require.NoError(t, service.CompleteDiscord(context.Background(), captured.sess, "code", "state-1"))

	assert.Equal(t, int64(9), captured.sess.AccountID)
	assert.Equal(t, []string{"state-1"}, store.createdHandshakes)
	require.Len(t, store.promotedTokens, 1)
	assert.True(t, captured.sess.Authed)
	assert.Equal(t, session.ModeDiscord, captured.sess.AuthMode)
}

/*
TestCompleteDiscord_StateMismatch verifies a forged or replayed OAuth
callback is a security event.
*/
func TestCompleteDiscord_StateMismatch(t *testing.T) {
	service := newTestService(&fakeStore{}, &fakeVerifier{}, &fakeRank{})
	captured := newCapturedSession(t)
	captured.sess.OAuthState = "state-1"

	err := service.CompleteDiscord(context.Background(), captured.sess, "code", "state-FORGED")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeSecurity))
	assert.NotEmpty(t, captured.closed)
}

/*
TestCompleteDiscord_NoPendingState verifies a callback with no outstanding
handshake fails closed without the security teardown.
*/
func TestCompleteDiscord_NoPendingState(t *testing.T) {
	service := newTestService(&fakeStore{}, &fakeVerifier{}, &fakeRank{})
	captured := newCapturedSession(t)

	err := service.CompleteDiscord(context.Background(), captured.sess, "code", "anything")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeAuthFailed))
	assert.Empty(t, captured.closed)
}

/*
TestCompleteDiscord_UnlinkedStashesIdentity verifies a verified-but-unlinked
Discord identity is remembered on the session so a link code can bind it.
*/
func TestCompleteDiscord_UnlinkedStashesIdentity(t *testing.T) {
	service := newTestService(&fakeStore{}, &fakeVerifier{discordID: "discord-9"}, &fakeRank{})
	captured := newCapturedSession(t)
	captured.sess.OAuthState = "state-1"

	err := service.CompleteDiscord(context.Background(), captured.sess, "code", "state-1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeAuthFailed))
	assert.True(t, captured.sess.AwaitingDiscordLink)
	assert.Equal(t, "discord-9", captured.sess.DiscordLinkSubject)
}

// # Discord Linking

/*
TestLinkDiscord_Success verifies redeeming a valid code binds the stashed
identity, clears the link state, and restarts the handshake so the retried
OAuth callback resolves.
*/
func TestLinkDiscord_Success(t *testing.T) {
	store := &fakeStore{consumeLinkCode: func(string) (int64, error) { return 5, nil }}
	service := newTestService(store, &fakeVerifier{}, &fakeRank{})

	captured := newCapturedSession(t)
	captured.sess.AwaitingDiscordLink = true
	captured.sess.DiscordLinkSubject = "discord-9"

	require.NoError(t, service.LinkDiscord(context.Background(), captured.sess, "code-1"))

	assert.Equal(t, map[int64]string{5: "discord-9"}, store.linkedDiscordIDs)
	assert.False(t, captured.sess.AwaitingDiscordLink)
	assert.Empty(t, captured.sess.DiscordLinkSubject)
	assert.Equal(t, protocol.IDAuthBeginHandshake, captured.lastAction(t).ID)
}

/*
TestLinkDiscord_Rejections verifies the link path fails closed: no code, no
pending link state, unknown or expired codes, and accounts that already
carry a Discord link all reject without touching the session.
*/
func TestLinkDiscord_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		awaiting bool
		store    *fakeStore
	}{
		{"missing_code", "", true, &fakeStore{}},
		{"not_pending", "code-1", false, &fakeStore{}},
		{"unknown_code", "code-1", true, &fakeStore{}},
		{"already_linked", "code-1", true, &fakeStore{
			consumeLinkCode: func(string) (int64, error) { return 5, nil },
			linkDiscordID:   func(int64, string) (bool, error) { return false, nil },
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(tt.store, &fakeVerifier{}, &fakeRank{})
			captured := newCapturedSession(t)
			captured.sess.AwaitingDiscordLink = tt.awaiting
			if tt.awaiting {
				captured.sess.DiscordLinkSubject = "discord-9"
			}

			err := service.LinkDiscord(context.Background(), captured.sess, tt.code)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeAuthFailed))
			assert.Empty(t, captured.actions, "no handshake restart on rejection")
		})
	}
}

/*
TestCompleteGoogle_NotLinked verifies an unlinked Google subject is a plain
auth failure: enrolling accounts happens elsewhere.
*/
func TestCompleteGoogle_NotLinked(t *testing.T) {
	service := newTestService(&fakeStore{}, &fakeVerifier{googleID: "google-1"}, &fakeRank{})
	captured := newCapturedSession(t)
	captured.sess.OAuthState = "state-1"

	err := service.CompleteGoogle(context.Background(), captured.sess, "code", "state-1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeAuthFailed))
}

// # Session Resumption

/*
TestResume_Success verifies a valid token authenticates without provider
contact and the pushed expiration reflects the original issue time.
*/
func TestResume_Success(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	account := &Account{ID: 7, MinecraftUUID: "a1b2c3d4e5f6"}
	store := &fakeStore{
		findAccountByID:  func(int64) (*Account, error) { return account, nil },
		findSessionToken: func(string) (*SessionToken, error) { return &SessionToken{Token: "tok", AccountID: 7, IssuedAt: issuedAt}, nil },
	}
	service := newTestService(store, &fakeVerifier{}, &fakeRank{})

	captured := newCapturedSession(t)
	captured.sess.AuthMode = session.ModeMojang

	require.NoError(t, service.Resume(context.Background(), captured.sess, "tok", 7))

	assert.True(t, captured.sess.Authed)
	assert.Empty(t, store.promotedTokens, "resume never rotates the token")

	push := captured.lastAction(t)
	assert.Equal(t, protocol.IDAuthComplete, push.ID)
	assert.Equal(t, "tok", push.StringAt(0))

	expirationMillis, err := push.Int64At(1)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(constants.SessionTokenTTL).UnixMilli(), expirationMillis)
}

/*
TestResume_Rejections verifies unknown tokens and account mismatches leave
the connection anonymous.
*/
func TestResume_Rejections(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	tests := []struct {
		name      string
		token     *SessionToken
		accountID int64
	}{
		{"unknown_token", nil, 7},
		{"account_mismatch", &SessionToken{Token: "tok", AccountID: 8, IssuedAt: issuedAt}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{findSessionToken: func(string) (*SessionToken, error) { return tt.token, nil }}
			service := newTestService(store, &fakeVerifier{}, &fakeRank{})
			captured := newCapturedSession(t)

			err := service.Resume(context.Background(), captured.sess, "tok", tt.accountID)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeAuthFailed))
			assert.False(t, captured.sess.Authed)
		})
	}
}

/*
TestResume_BannedAccount verifies a ban issued after the token prevents
resumption.
*/
func TestResume_BannedAccount(t *testing.T) {
	store := &fakeStore{
		findAccountByID:  func(int64) (*Account, error) { return &Account{ID: 7, Banned: true}, nil },
		findSessionToken: func(string) (*SessionToken, error) { return &SessionToken{Token: "tok", AccountID: 7, IssuedAt: time.Now()}, nil },
	}
	service := newTestService(store, &fakeVerifier{}, &fakeRank{})
	captured := newCapturedSession(t)

	err := service.Resume(context.Background(), captured.sess, "tok", 7)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeAuthFailed))
	assert.False(t, captured.sess.Authed)
}
