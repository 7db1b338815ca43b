// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package protocol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantari/loadout/internal/protocol"
)

/*
TestNewAuthComplete_PayloadOrder pins the session-completion payload, the
widest clientbound action and the one an incompatible change would break most
visibly.
*/
func TestNewAuthComplete_PayloadOrder(t *testing.T) {
	expiration := time.UnixMilli(1_750_000_000_000)
	premiumUntil := time.UnixMilli(1_760_000_000_000)

	action := protocol.NewAuthComplete("session-token", expiration, protocol.AuthSnapshot{
		MinecraftUUID:     "a1b2c3",
		DiscordID:         "discord-1",
		GoogleID:          "google-1",
		IsAdmin:           true,
		IsPremium:         true,
		PremiumExpiration: premiumUntil,
		Rank:              "ADMIN",
		PackageRank:       "MVP_PLUS",
		IsBuildTeam:       true,
		IsBuildTeamAdmin:  false,
	})

	assert.Equal(t, protocol.IDAuthComplete, action.ID)
	require.Equal(t, 12, action.Len())

	assert.Equal(t, "session-token", action.StringAt(0))

	expirationMillis, err := action.Int64At(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_750_000_000_000), expirationMillis)

	assert.Equal(t, "a1b2c3", action.StringAt(2))
	assert.Equal(t, "discord-1", action.StringAt(3))
	assert.Equal(t, "google-1", action.StringAt(4))
	assert.True(t, action.BoolAt(5))
	assert.True(t, action.BoolAt(6))

	premiumMillis, err := action.Int64At(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1_760_000_000_000), premiumMillis)

	assert.Equal(t, "ADMIN", action.StringAt(8))
	assert.Equal(t, "MVP_PLUS", action.StringAt(9))
	assert.True(t, action.BoolAt(10))
	assert.False(t, action.BoolAt(11))
}

/*
TestNewAuthComplete_NoPremium verifies a zero premium expiration encodes as
millis zero rather than a huge negative timestamp.
*/
func TestNewAuthComplete_NoPremium(t *testing.T) {
	action := protocol.NewAuthComplete("t", time.Now(), protocol.AuthSnapshot{})

	premiumMillis, err := action.Int64At(7)
	require.NoError(t, err)
	assert.Zero(t, premiumMillis)
}

/*
TestNewSetAliasedAction_WrappedFrame verifies the wrapped action rides as a
complete nested frame that decodes on its own.
*/
func TestNewSetAliasedAction_WrappedFrame(t *testing.T) {
	wrapped := protocol.New(protocol.IDOpenScreen).AddString("main_menu")
	action := protocol.NewSetAliasedAction("open_main", []string{"1.8.9"}, ">=47", wrapped)

	require.Equal(t, 4, action.Len())
	assert.Equal(t, "open_main", action.StringAt(0))
	assert.Equal(t, `["1.8.9"]`, action.StringAt(1))
	assert.Equal(t, ">=47", action.StringAt(2))

	nested, err := protocol.Decode(action.BytesAt(3))
	require.NoError(t, err)
	assert.Equal(t, protocol.IDOpenScreen, nested.ID)
	assert.Equal(t, "main_menu", nested.StringAt(0))
}

/*
TestNewDisableClient_DefaultReason verifies the empty reason fallback.
*/
func TestNewDisableClient_DefaultReason(t *testing.T) {
	action := protocol.NewDisableClient("")
	assert.Equal(t, "No reason provided", action.StringAt(0))
}

/*
TestNewAddUserCountHistory_PayloadOrder pins the admin chart datapoint layout.
*/
func TestNewAddUserCountHistory_PayloadOrder(t *testing.T) {
	at := time.UnixMilli(1_750_000_000_000)
	action := protocol.NewAddUserCountHistory(at, 421, true)

	timestamp, err := action.Int64At(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1_750_000_000_000), timestamp)

	count, err := action.Int64At(1)
	require.NoError(t, err)
	assert.Equal(t, int64(421), count)

	assert.True(t, action.BoolAt(2))
}
