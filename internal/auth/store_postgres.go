// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the slice of the pgx pool surface the store uses. Satisfied by
// *pgxpool.Pool in production and by pgxmock pools in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements [Store] using pgx.
//
// Handshakes and session tokens share the auth_sessions table: a row starts
// life holding a handshake and is promoted in place to a session token, which
// also enforces "at most one outstanding handshake per account".
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore creates the PostgreSQL implementation of [Store].
func NewPostgresStore(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const accountColumns = `
	id, mc_uuid, COALESCE(discord_id, ''), COALESCE(google_id, ''),
	is_admin, banned, COALESCE(first_login, 'epoch'::timestamptz), COALESCE(last_login, 'epoch'::timestamptz)`

// scanAccount hydrates one account row.
func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.MinecraftUUID,
		&account.DiscordID,
		&account.GoogleID,
		&account.IsAdmin,
		&account.Banned,
		&account.FirstLogin,
		&account.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth_store_scan_account_failed: %w", err)
	}
	return account, nil
}

// FindAccountByID returns the account with the given row id, nil when absent.
func (store *PostgresStore) FindAccountByID(ctx context.Context, id int64) (*Account, error) {
	row := store.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

/*
FindOrCreateAccountByMinecraftUUID identifies or enrolls an account by its
Minecraft UUID.

Description: The UPSERT makes concurrent first contacts from the same UUID
race-safe; both connections resolve to the same row.

Parameters:
  - ctx: context.Context
  - uuid: string (32-char undashed UUID)

Returns:
  - *Account: The bound account
  - error: Persistence failures
*/
func (store *PostgresStore) FindOrCreateAccountByMinecraftUUID(ctx context.Context, uuid string) (*Account, error) {
	const query = `
		INSERT INTO accounts (mc_uuid) VALUES ($1)
		ON CONFLICT (mc_uuid) DO UPDATE SET mc_uuid = EXCLUDED.mc_uuid
		RETURNING ` + accountColumns

	row := store.pool.QueryRow(ctx, query, uuid)
	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("auth_store_find_or_create_failed: %w", err)
	}
	return account, nil
}

// FindAccountByDiscordID returns the account linked to a Discord subject id.
func (store *PostgresStore) FindAccountByDiscordID(ctx context.Context, discordID string) (*Account, error) {
	row := store.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE discord_id = $1`, discordID)
	return scanAccount(row)
}

// FindAccountByGoogleID returns the account linked to a Google subject id.
func (store *PostgresStore) FindAccountByGoogleID(ctx context.Context, googleID string) (*Account, error) {
	row := store.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE google_id = $1`, googleID)
	return scanAccount(row)
}

// TouchLoginTimestamps updates last_login, and first_login when unset.
func (store *PostgresStore) TouchLoginTimestamps(ctx context.Context, accountID int64) error {
	const query = `
		UPDATE accounts SET
			last_login = now(),
			first_login = COALESCE(first_login, now())
		WHERE id = $1`

	if _, err := store.pool.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("auth_store_touch_login_failed: %w", err)
	}
	return nil
}

// PremiumUntil reports an active, unbanned premium subscription and its expiry.
func (store *PostgresStore) PremiumUntil(ctx context.Context, accountID int64) (bool, time.Time, error) {
	const query = `
		SELECT p.expires
		FROM premium_subscriptions p
		JOIN accounts a ON a.id = p.account
		WHERE p.account = $1
		  AND p.activate_date < now()
		  AND p.expires > now()
		  AND a.banned = false
		LIMIT 1`

	var expires time.Time
	err := store.pool.QueryRow(ctx, query, accountID).Scan(&expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("auth_store_premium_failed: %w", err)
	}
	return true, expires, nil
}

// IsAdmin reports the account's admin flag.
func (store *PostgresStore) IsAdmin(ctx context.Context, accountID int64) (bool, error) {
	var isAdmin bool
	err := store.pool.QueryRow(ctx,
		`SELECT is_admin FROM accounts WHERE id = $1`, accountID).Scan(&isAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("auth_store_is_admin_failed: %w", err)
	}
	return isAdmin, nil
}

// # Handshake Lifecycle

// CountRecentHandshakes counts unconsumed handshakes issued for the account
// since the given instant. Promoted rows are session tokens, not handshakes;
// counting them would throttle an account that just finished authenticating.
func (store *PostgresStore) CountRecentHandshakes(ctx context.Context, accountID int64, since time.Time) (int, error) {
	var count int
	err := store.pool.QueryRow(ctx,
		`SELECT count(id) FROM auth_sessions
		 WHERE account = $1 AND token IS NULL AND handshake IS NOT NULL AND created > $2`,
		accountID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("auth_store_count_handshakes_failed: %w", err)
	}
	return count, nil
}

// CreateHandshake persists a fresh handshake token for the account.
func (store *PostgresStore) CreateHandshake(ctx context.Context, accountID int64, token string) error {
	_, err := store.pool.Exec(ctx,
		`INSERT INTO auth_sessions (account, handshake, created) VALUES ($1, $2, now())`,
		accountID, token)
	if err != nil {
		return fmt.Errorf("auth_store_create_handshake_failed: %w", err)
	}
	return nil
}

// LatestHandshake returns the newest unconsumed handshake token no older
// than maxAge, or "" when none exists.
func (store *PostgresStore) LatestHandshake(ctx context.Context, accountID int64, maxAge time.Duration) (string, error) {
	const query = `
		SELECT handshake FROM auth_sessions
		WHERE account = $1
		  AND token IS NULL
		  AND handshake IS NOT NULL
		  AND created > now() - $2::interval
		ORDER BY created DESC LIMIT 1`

	var token string
	err := store.pool.QueryRow(ctx, query, accountID, maxAge.String()).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("auth_store_latest_handshake_failed: %w", err)
	}
	return token, nil
}

// PurgeHandshakes invalidates every outstanding handshake for the account.
func (store *PostgresStore) PurgeHandshakes(ctx context.Context, accountID int64) error {
	_, err := store.pool.Exec(ctx,
		`DELETE FROM auth_sessions WHERE account = $1 AND token IS NULL`, accountID)
	if err != nil {
		return fmt.Errorf("auth_store_purge_handshakes_failed: %w", err)
	}
	return nil
}

// # Session Token Lifecycle

// PromoteToSessionToken replaces the account's outstanding handshake with a
// session token in one write.
func (store *PostgresStore) PromoteToSessionToken(ctx context.Context, accountID int64, token string) error {
	_, err := store.pool.Exec(ctx,
		`UPDATE auth_sessions SET token = $1, handshake = NULL, created = now() WHERE account = $2`,
		token, accountID)
	if err != nil {
		return fmt.Errorf("auth_store_promote_token_failed: %w", err)
	}
	return nil
}

// FindSessionToken returns the session token row no older than maxAge, nil
// when unknown or expired.
func (store *PostgresStore) FindSessionToken(ctx context.Context, token string, maxAge time.Duration) (*SessionToken, error) {
	const query = `
		SELECT token, account, created FROM auth_sessions
		WHERE token = $1 AND created > now() - $2::interval`

	sessionToken := &SessionToken{}
	err := store.pool.QueryRow(ctx, query, token, maxAge.String()).
		Scan(&sessionToken.Token, &sessionToken.AccountID, &sessionToken.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth_store_find_session_token_failed: %w", err)
	}
	return sessionToken, nil
}

// # Discord Linking

// ConsumeLinkCode redeems a single-use link code, sweeping expired codes in
// the same statement. Returns the issuing account id, 0 when the code is
// unknown or older than five minutes.
func (store *PostgresStore) ConsumeLinkCode(ctx context.Context, code string) (int64, error) {
	const query = `
		WITH swept AS (
			DELETE FROM discord_link_codes
			WHERE created < now() - interval '5 minutes'
		)
		DELETE FROM discord_link_codes
		WHERE code = $1 AND created > now() - interval '5 minutes'
		RETURNING account`

	var accountID int64
	err := store.pool.QueryRow(ctx, query, code).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("auth_store_consume_link_code_failed: %w", err)
	}
	return accountID, nil
}

// LinkDiscordID binds a Discord subject id to an unlinked account. The guard
// on discord_id keeps a redeemed code from re-pointing an existing link.
func (store *PostgresStore) LinkDiscordID(ctx context.Context, accountID int64, discordID string) (bool, error) {
	tag, err := store.pool.Exec(ctx,
		`UPDATE accounts SET discord_id = $2 WHERE id = $1 AND discord_id IS NULL`,
		accountID, discordID)
	if err != nil {
		return false, fmt.Errorf("auth_store_link_discord_failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
