// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

/*
TestCountRecentHandshakes_ExcludesPromotedRows verifies the admission gate
counts only unconsumed handshakes. Promotion rewrites a row's created
timestamp, so without the token/handshake filters a connection that just
authenticated would be throttled out of its next handshake.
*/
func TestCountRecentHandshakes_ExcludesPromotedRows(t *testing.T) {
	store, mock := newMockedStore(t)

	mock.ExpectQuery(`SELECT count\(id\) FROM auth_sessions\s+WHERE account = \$1 AND token IS NULL AND handshake IS NOT NULL AND created > \$2`).
		WithArgs(int64(7), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	count, err := store.CountRecentHandshakes(context.Background(), 7, time.Now().Add(-5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestConsumeLinkCode verifies redemption returns the issuing account and that
an unknown or expired code reads as 0 without error.
*/
func TestConsumeLinkCode(t *testing.T) {
	t.Run("redeemed", func(t *testing.T) {
		store, mock := newMockedStore(t)
		mock.ExpectQuery(`DELETE FROM discord_link_codes\s+WHERE code = \$1 AND created > now\(\) - interval '5 minutes'\s+RETURNING account`).
			WithArgs("code-1").
			WillReturnRows(pgxmock.NewRows([]string{"account"}).AddRow(int64(5)))

		accountID, err := store.ConsumeLinkCode(context.Background(), "code-1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), accountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown_code", func(t *testing.T) {
		store, mock := newMockedStore(t)
		mock.ExpectQuery(`DELETE FROM discord_link_codes`).
			WithArgs("code-2").
			WillReturnRows(pgxmock.NewRows([]string{"account"}))

		accountID, err := store.ConsumeLinkCode(context.Background(), "code-2")
		require.NoError(t, err)
		assert.Zero(t, accountID)
	})
}

/*
TestLinkDiscordID verifies the bind refuses accounts that already carry a
Discord link: the UPDATE is guarded on discord_id IS NULL and zero affected
rows reads as not linked.
*/
func TestLinkDiscordID(t *testing.T) {
	t.Run("linked", func(t *testing.T) {
		store, mock := newMockedStore(t)
		mock.ExpectExec(`UPDATE accounts SET discord_id = \$2 WHERE id = \$1 AND discord_id IS NULL`).
			WithArgs(int64(5), "discord-9").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		linked, err := store.LinkDiscordID(context.Background(), 5, "discord-9")
		require.NoError(t, err)
		assert.True(t, linked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already_linked", func(t *testing.T) {
		store, mock := newMockedStore(t)
		mock.ExpectExec(`UPDATE accounts SET discord_id`).
			WithArgs(int64(5), "discord-9").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		linked, err := store.LinkDiscordID(context.Background(), 5, "discord-9")
		require.NoError(t, err)
		assert.False(t, linked)
	})
}
