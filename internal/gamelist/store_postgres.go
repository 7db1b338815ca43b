// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package gamelist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements [Store] using pgx.
//
// # Error Mapping
//
// Absent rows are returned as nil entities rather than errors; storage
// failures wrap the pgx error and are classified by the caller.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the PostgreSQL implementation of [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// keysTable maps entity kinds to the table their keys live in.
func keysTable(kind Kind) (table, column string, ok bool) {
	switch kind {
	case KindScreen:
		return "screens", "key", true
	case KindButton:
		return "buttons", "key", true
	case KindAliasedAction:
		return "aliased_actions", "key", true
	case KindRegex:
		return "regexes", "key", true
	case KindGlyph:
		return "glyphs", "owner_uuid", true
	default:
		return "", "", false
	}
}

// Keys lists every key of the given entity kind.
func (store *PostgresStore) Keys(ctx context.Context, kind Kind) ([]string, error) {
	table, column, ok := keysTable(kind)
	if !ok {
		return nil, fmt.Errorf("gamelist: kind %q has no key table", kind)
	}

	// Table and column come from the fixed map above, never from input.
	rows, err := store.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s`, column, table))
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_keys_failed: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("gamelist_store_keys_scan_failed: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// # Screens

// PullScreen hydrates one screen from the authoritative store.
func (store *PostgresStore) PullScreen(ctx context.Context, key string) (*Screen, error) {
	const query = `
		SELECT key, screen_type, available_on, protocol, buttons,
		       back_button_actions, translation_key, image_url, visible, admin_only
		FROM screens WHERE key = $1`

	screen := &Screen{}
	err := store.pool.QueryRow(ctx, query, key).Scan(
		&screen.Key,
		&screen.ScreenType,
		&screen.AvailableOn,
		&screen.Protocol,
		&screen.Buttons,
		&screen.BackButtonActions,
		&screen.TranslationKey,
		&screen.ImageURL,
		&screen.Visible,
		&screen.AdminOnly,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_pull_screen_failed: %w", err)
	}
	return screen, nil
}

// UpsertScreen creates or fully replaces a screen row.
func (store *PostgresStore) UpsertScreen(ctx context.Context, screen *Screen) error {
	const query = `
		INSERT INTO screens (
			key, screen_type, available_on, protocol, buttons,
			back_button_actions, translation_key, image_url, visible, admin_only
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (key) DO UPDATE SET
			screen_type = EXCLUDED.screen_type,
			available_on = EXCLUDED.available_on,
			protocol = EXCLUDED.protocol,
			buttons = EXCLUDED.buttons,
			back_button_actions = EXCLUDED.back_button_actions,
			translation_key = EXCLUDED.translation_key,
			image_url = EXCLUDED.image_url,
			visible = EXCLUDED.visible,
			admin_only = EXCLUDED.admin_only`

	_, err := store.pool.Exec(ctx, query,
		screen.Key,
		screen.ScreenType,
		screen.AvailableOn,
		screen.Protocol,
		screen.Buttons,
		screen.BackButtonActions,
		screen.TranslationKey,
		screen.ImageURL,
		screen.Visible,
		screen.AdminOnly,
	)
	if err != nil {
		return fmt.Errorf("gamelist_store_upsert_screen_failed: %w", err)
	}
	return nil
}

// DeleteScreen removes a screen row. Deleting an absent key is a no-op.
func (store *PostgresStore) DeleteScreen(ctx context.Context, key string) error {
	if _, err := store.pool.Exec(ctx, `DELETE FROM screens WHERE key = $1`, key); err != nil {
		return fmt.Errorf("gamelist_store_delete_screen_failed: %w", err)
	}
	return nil
}

// # Buttons

// PullButton hydrates one button from the authoritative store.
func (store *PostgresStore) PullButton(ctx context.Context, key string) (*Button, error) {
	const query = `
		SELECT key, available_on, protocol, actions, image_url,
		       translation_key, visible, admin_only
		FROM buttons WHERE key = $1`

	button := &Button{}
	err := store.pool.QueryRow(ctx, query, key).Scan(
		&button.Key,
		&button.AvailableOn,
		&button.Protocol,
		&button.Actions,
		&button.ImageURL,
		&button.TranslationKey,
		&button.Visible,
		&button.AdminOnly,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_pull_button_failed: %w", err)
	}
	return button, nil
}

// UpsertButton creates or fully replaces a button row.
func (store *PostgresStore) UpsertButton(ctx context.Context, button *Button) error {
	const query = `
		INSERT INTO buttons (
			key, available_on, protocol, actions, image_url,
			translation_key, visible, admin_only
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE SET
			available_on = EXCLUDED.available_on,
			protocol = EXCLUDED.protocol,
			actions = EXCLUDED.actions,
			image_url = EXCLUDED.image_url,
			translation_key = EXCLUDED.translation_key,
			visible = EXCLUDED.visible,
			admin_only = EXCLUDED.admin_only`

	_, err := store.pool.Exec(ctx, query,
		button.Key,
		button.AvailableOn,
		button.Protocol,
		button.Actions,
		button.ImageURL,
		button.TranslationKey,
		button.Visible,
		button.AdminOnly,
	)
	if err != nil {
		return fmt.Errorf("gamelist_store_upsert_button_failed: %w", err)
	}
	return nil
}

// DeleteButton removes a button row.
func (store *PostgresStore) DeleteButton(ctx context.Context, key string) error {
	if _, err := store.pool.Exec(ctx, `DELETE FROM buttons WHERE key = $1`, key); err != nil {
		return fmt.Errorf("gamelist_store_delete_button_failed: %w", err)
	}
	return nil
}

// # Aliased Actions

// PullAliasedAction hydrates one aliased action from the authoritative store.
func (store *PostgresStore) PullAliasedAction(ctx context.Context, key string) (*AliasedAction, error) {
	const query = `
		SELECT key, available_on, protocol, admin_only, action_id, args
		FROM aliased_actions WHERE key = $1`

	aliased := &AliasedAction{}
	err := store.pool.QueryRow(ctx, query, key).Scan(
		&aliased.Key,
		&aliased.AvailableOn,
		&aliased.Protocol,
		&aliased.AdminOnly,
		&aliased.ActionID,
		&aliased.Args,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_pull_aliased_action_failed: %w", err)
	}
	return aliased, nil
}

// UpsertAliasedAction creates or fully replaces an aliased action row.
func (store *PostgresStore) UpsertAliasedAction(ctx context.Context, aliased *AliasedAction) error {
	const query = `
		INSERT INTO aliased_actions (
			key, available_on, protocol, admin_only, action_id, args
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			available_on = EXCLUDED.available_on,
			protocol = EXCLUDED.protocol,
			admin_only = EXCLUDED.admin_only,
			action_id = EXCLUDED.action_id,
			args = EXCLUDED.args`

	_, err := store.pool.Exec(ctx, query,
		aliased.Key,
		aliased.AvailableOn,
		aliased.Protocol,
		aliased.AdminOnly,
		aliased.ActionID,
		aliased.Args,
	)
	if err != nil {
		return fmt.Errorf("gamelist_store_upsert_aliased_action_failed: %w", err)
	}
	return nil
}

// DeleteAliasedAction removes an aliased action row.
func (store *PostgresStore) DeleteAliasedAction(ctx context.Context, key string) error {
	if _, err := store.pool.Exec(ctx, `DELETE FROM aliased_actions WHERE key = $1`, key); err != nil {
		return fmt.Errorf("gamelist_store_delete_aliased_action_failed: %w", err)
	}
	return nil
}

// # Translations

// Translations returns every translation row.
func (store *PostgresStore) Translations(ctx context.Context) ([]Translation, error) {
	rows, err := store.pool.Query(ctx, `SELECT key, lang, value FROM translations`)
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_translations_failed: %w", err)
	}
	defer rows.Close()

	var translations []Translation
	for rows.Next() {
		var t Translation
		if err := rows.Scan(&t.Key, &t.Lang, &t.Value); err != nil {
			return nil, fmt.Errorf("gamelist_store_translations_scan_failed: %w", err)
		}
		translations = append(translations, t)
	}
	return translations, rows.Err()
}

// PullTranslation hydrates one translation value.
func (store *PostgresStore) PullTranslation(ctx context.Context, key, lang string) (*Translation, error) {
	translation := &Translation{}
	err := store.pool.QueryRow(ctx,
		`SELECT key, lang, value FROM translations WHERE key = $1 AND lang = $2`,
		key, lang,
	).Scan(&translation.Key, &translation.Lang, &translation.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_pull_translation_failed: %w", err)
	}
	return translation, nil
}

// UpsertTranslation creates or replaces one translation value.
func (store *PostgresStore) UpsertTranslation(ctx context.Context, translation *Translation) error {
	const query = `
		INSERT INTO translations (key, lang, value) VALUES ($1, $2, $3)
		ON CONFLICT (key, lang) DO UPDATE SET value = EXCLUDED.value`

	_, err := store.pool.Exec(ctx, query, translation.Key, translation.Lang, translation.Value)
	if err != nil {
		return fmt.Errorf("gamelist_store_upsert_translation_failed: %w", err)
	}
	return nil
}

// DeleteTranslation removes one translation value.
func (store *PostgresStore) DeleteTranslation(ctx context.Context, key, lang string) error {
	_, err := store.pool.Exec(ctx,
		`DELETE FROM translations WHERE key = $1 AND lang = $2`, key, lang)
	if err != nil {
		return fmt.Errorf("gamelist_store_delete_translation_failed: %w", err)
	}
	return nil
}

// # Regexes

// PullRegex hydrates one regex row.
func (store *PostgresStore) PullRegex(ctx context.Context, key string) (*Regex, error) {
	regex := &Regex{}
	err := store.pool.QueryRow(ctx,
		`SELECT key, value FROM regexes WHERE key = $1`, key,
	).Scan(&regex.Key, &regex.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_pull_regex_failed: %w", err)
	}
	return regex, nil
}

// UpsertRegex creates or replaces a regex row.
func (store *PostgresStore) UpsertRegex(ctx context.Context, regex *Regex) error {
	const query = `
		INSERT INTO regexes (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	if _, err := store.pool.Exec(ctx, query, regex.Key, regex.Value); err != nil {
		return fmt.Errorf("gamelist_store_upsert_regex_failed: %w", err)
	}
	return nil
}

// DeleteRegex removes a regex row.
func (store *PostgresStore) DeleteRegex(ctx context.Context, key string) error {
	if _, err := store.pool.Exec(ctx, `DELETE FROM regexes WHERE key = $1`, key); err != nil {
		return fmt.Errorf("gamelist_store_delete_regex_failed: %w", err)
	}
	return nil
}

// # Glyphs

// PullGlyph hydrates one glyph by its owner's uuid.
func (store *PostgresStore) PullGlyph(ctx context.Context, ownerUUID string) (*Glyph, error) {
	glyph := &Glyph{}
	err := store.pool.QueryRow(ctx,
		`SELECT owner_uuid, path, height, y_offset, display_in_games FROM glyphs WHERE owner_uuid = $1`,
		ownerUUID,
	).Scan(&glyph.UUID, &glyph.Path, &glyph.Height, &glyph.YOffset, &glyph.DisplayInGames)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_pull_glyph_failed: %w", err)
	}
	return glyph, nil
}

// UpsertGlyph creates or replaces a glyph row.
func (store *PostgresStore) UpsertGlyph(ctx context.Context, glyph *Glyph) error {
	const query = `
		INSERT INTO glyphs (owner_uuid, path, height, y_offset, display_in_games)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_uuid) DO UPDATE SET
			path = EXCLUDED.path,
			height = EXCLUDED.height,
			y_offset = EXCLUDED.y_offset,
			display_in_games = EXCLUDED.display_in_games`

	_, err := store.pool.Exec(ctx, query,
		glyph.UUID, glyph.Path, glyph.Height, glyph.YOffset, glyph.DisplayInGames)
	if err != nil {
		return fmt.Errorf("gamelist_store_upsert_glyph_failed: %w", err)
	}
	return nil
}

// DeleteGlyph removes a glyph row.
func (store *PostgresStore) DeleteGlyph(ctx context.Context, ownerUUID string) error {
	if _, err := store.pool.Exec(ctx, `DELETE FROM glyphs WHERE owner_uuid = $1`, ownerUUID); err != nil {
		return fmt.Errorf("gamelist_store_delete_glyph_failed: %w", err)
	}
	return nil
}

// # Edit Log

// AppendEditLog records one admin mutation in the audit trail.
func (store *PostgresStore) AppendEditLog(ctx context.Context, entry *EditLogEntry) error {
	const query = `
		INSERT INTO edit_log (timestamp, edited_by, item_type, item_key, deleted, prev_version)
		VALUES (to_timestamp($1 / 1000.0), $2, $3, $4, $5, $6)`

	_, err := store.pool.Exec(ctx, query,
		entry.Timestamp,
		entry.EditedBy,
		string(entry.ItemType),
		entry.ItemKey,
		entry.Deleted,
		entry.PrevVersion,
	)
	if err != nil {
		return fmt.Errorf("gamelist_store_append_edit_log_failed: %w", err)
	}
	return nil
}

// RecentEditLog returns the newest limit edit-log rows, newest first.
func (store *PostgresStore) RecentEditLog(ctx context.Context, limit int) ([]EditLogEntry, error) {
	const query = `
		SELECT (extract(epoch FROM timestamp) * 1000)::bigint, edited_by, item_type,
		       item_key, deleted, prev_version
		FROM edit_log ORDER BY timestamp DESC LIMIT $1`

	rows, err := store.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_recent_edit_log_failed: %w", err)
	}
	defer rows.Close()

	var entries []EditLogEntry
	for rows.Next() {
		var entry EditLogEntry
		var itemType string
		if err := rows.Scan(&entry.Timestamp, &entry.EditedBy, &itemType,
			&entry.ItemKey, &entry.Deleted, &entry.PrevVersion); err != nil {
			return nil, fmt.Errorf("gamelist_store_recent_edit_log_scan_failed: %w", err)
		}
		entry.ItemType = Kind(itemType)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// # Connection Snapshots

// RecordConnectionSnapshot appends one fleet-wide connection count datapoint.
//
// The explicit table lock serializes instances so only one wins the
// duplicate check per interval. See DESIGN.md for the advisory-lock
// alternative.
func (store *PostgresStore) RecordConnectionSnapshot(ctx context.Context, count int64) error {
	tx, err := store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("gamelist_store_snapshot_begin_failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Short critical section: the lock only covers the duplicate check and
	// the insert.
	if _, err := tx.Exec(ctx, `LOCK TABLE connection_chart_datapoints IN ACCESS EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("gamelist_store_snapshot_lock_failed: %w", err)
	}

	var recent int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM connection_chart_datapoints WHERE timestamp > now() - interval '55 seconds'`,
	).Scan(&recent)
	if err != nil {
		return fmt.Errorf("gamelist_store_snapshot_check_failed: %w", err)
	}
	if recent > 0 {
		// Another instance already recorded this interval's datapoint.
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO connection_chart_datapoints (timestamp, connection_count) VALUES (now(), $1)`,
		count,
	); err != nil {
		return fmt.Errorf("gamelist_store_snapshot_insert_failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("gamelist_store_snapshot_commit_failed: %w", err)
	}
	return nil
}

// ConnectionHistory returns datapoints newer than since, oldest first.
func (store *PostgresStore) ConnectionHistory(ctx context.Context, since time.Time) ([]ConnectionDatapoint, error) {
	rows, err := store.pool.Query(ctx,
		`SELECT timestamp, connection_count FROM connection_chart_datapoints
		 WHERE timestamp > $1 ORDER BY timestamp ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("gamelist_store_connection_history_failed: %w", err)
	}
	defer rows.Close()

	var points []ConnectionDatapoint
	for rows.Next() {
		var point ConnectionDatapoint
		if err := rows.Scan(&point.Timestamp, &point.Count); err != nil {
			return nil, fmt.Errorf("gamelist_store_connection_history_scan_failed: %w", err)
		}
		points = append(points, point)
	}
	return points, rows.Err()
}
