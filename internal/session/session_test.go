// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// frameRecorder captures outbound frames for assertions.
type frameRecorder struct {
	frames  [][]byte
	closed  []string
	decline bool
}

func (r *frameRecorder) send(frame []byte) bool {
	if r.decline {
		return false
	}
	r.frames = append(r.frames, frame)
	return true
}

func (r *frameRecorder) close(reason string) { r.closed = append(r.closed, reason) }

/*
TestSession_Defaults verifies a fresh session starts anonymous in the default
locale.
*/
func TestSession_Defaults(t *testing.T) {
	recorder := &frameRecorder{}
	sess := session.New(recorder.send, recorder.close, nil)

	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.Authed)
	assert.Equal(t, session.UnresolvedAccount, sess.AccountID)
	assert.Equal(t, session.ModeAnonymous, sess.AuthMode)
	assert.Equal(t, constants.DefaultLocale, sess.Locale)
}

/*
TestSession_SendAction verifies actions are encoded onto the send path and
that queue saturation is reported to the caller.
*/
func TestSession_SendAction(t *testing.T) {
	recorder := &frameRecorder{}
	sess := session.New(recorder.send, recorder.close, nil)

	assert.True(t, sess.SendAction(protocol.NewAuthFailed()))
	require.Len(t, recorder.frames, 1)

	decoded, err := protocol.Decode(recorder.frames[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.IDAuthFailed, decoded.ID)

	recorder.decline = true
	assert.False(t, sess.SendAction(protocol.NewAuthFailed()))
}

/*
TestSession_Disable verifies disabling pushes the shutdown action and then
requests connection teardown.
*/
func TestSession_Disable(t *testing.T) {
	recorder := &frameRecorder{}
	sess := session.New(recorder.send, recorder.close, nil)

	sess.Disable("banned")

	require.Len(t, recorder.frames, 1)
	decoded, err := protocol.Decode(recorder.frames[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.IDDisableClient, decoded.ID)
	assert.Equal(t, "banned", decoded.StringAt(0))
	assert.Equal(t, []string{"banned"}, recorder.closed)
}

/*
TestSession_PermissionCache verifies the flag cache: fresh after a set, stale
after invalidation.
*/
func TestSession_PermissionCache(t *testing.T) {
	recorder := &frameRecorder{}
	sess := session.New(recorder.send, recorder.close, nil)

	_, fresh := sess.CachedAdmin()
	assert.False(t, fresh, "never-set flag must read stale")

	sess.SetCachedAdmin(true)
	value, fresh := sess.CachedAdmin()
	assert.True(t, value)
	assert.True(t, fresh)

	sess.SetCachedPremium(true)
	sess.InvalidatePermissionCache()

	_, fresh = sess.CachedAdmin()
	assert.False(t, fresh)
	_, fresh = sess.CachedPremium()
	assert.False(t, fresh)
}

/*
TestSession_UserCountStreamGuard verifies the stream claim is exclusive: a
second authentication on the same connection cannot start a second pusher
until the first one ends.
*/
func TestSession_UserCountStreamGuard(t *testing.T) {
	recorder := &frameRecorder{}
	sess := session.New(recorder.send, recorder.close, nil)

	assert.True(t, sess.BeginUserCountStream())
	assert.False(t, sess.BeginUserCountStream(), "re-auth must not stack a second stream")

	sess.EndUserCountStream()
	assert.True(t, sess.BeginUserCountStream(), "claim is reusable once released")
}

/*
TestSession_ReauthTimer verifies arming replaces any previous timer and
cancellation prevents firing.
*/
func TestSession_ReauthTimer(t *testing.T) {
	recorder := &frameRecorder{}
	sess := session.New(recorder.send, recorder.close, nil)

	fired := make(chan string, 2)

	// The first timer is replaced before it can fire.
	sess.ArmReauthTimer(20*time.Millisecond, func() { fired <- "first" })
	sess.ArmReauthTimer(40*time.Millisecond, func() { fired <- "second" })

	select {
	case which := <-fired:
		assert.Equal(t, "second", which)
	case <-time.After(time.Second):
		t.Fatal("replacement timer never fired")
	}

	select {
	case <-fired:
		t.Fatal("replaced timer fired anyway")
	case <-time.After(60 * time.Millisecond):
	}

	sess.ArmReauthTimer(20*time.Millisecond, func() { fired <- "cancelled" })
	sess.CancelReauthTimer()

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

/*
TestSession_TranslateFallback verifies translation degrades to the key when no
translator is wired.
*/
func TestSession_TranslateFallback(t *testing.T) {
	recorder := &frameRecorder{}
	sess := session.New(recorder.send, recorder.close, nil)

	assert.Equal(t, "loadout.banned", sess.Translate(context.Background(), "loadout.banned"))
}

/*
TestRegistry verifies add/remove bookkeeping and snapshot iteration.
*/
func TestRegistry(t *testing.T) {
	registry := session.NewRegistry()
	recorder := &frameRecorder{}

	first := session.New(recorder.send, recorder.close, nil)
	second := session.New(recorder.send, recorder.close, nil)

	registry.Add(first)
	registry.Add(second)
	assert.Equal(t, 2, registry.Len())

	seen := map[string]bool{}
	registry.ForEach(func(s *session.Session) { seen[s.ID] = true })
	assert.True(t, seen[first.ID])
	assert.True(t, seen[second.ID])

	registry.Remove(first)
	assert.Equal(t, 1, registry.Len())

	// Removing twice is harmless.
	registry.Remove(first)
	assert.Equal(t, 1, registry.Len())
}
