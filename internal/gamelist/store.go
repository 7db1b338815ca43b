// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package gamelist

import (
	"context"
	"time"
)

// # Authoritative Store Contract

// Store defines the data access contract for configuration entities. The
// concrete implementation is PostgreSQL; the interface exists so handler and
// cache tests can substitute fakes.
type Store interface {

	// Keys lists every key of the given entity kind (translations list
	// distinct locales instead; use Translations).
	Keys(ctx context.Context, kind Kind) ([]string, error)

	/*
		PullScreen hydrates one screen from the authoritative store.

		Returns:
		  - *Screen: Hydrated entity, nil when absent
		  - error: Retrieval failures
	*/
	PullScreen(ctx context.Context, key string) (*Screen, error)

	// UpsertScreen creates or fully replaces a screen row.
	UpsertScreen(ctx context.Context, screen *Screen) error

	// DeleteScreen removes a screen row. Deleting an absent key is a no-op.
	DeleteScreen(ctx context.Context, key string) error

	// PullButton hydrates one button, nil when absent.
	PullButton(ctx context.Context, key string) (*Button, error)

	// UpsertButton creates or fully replaces a button row.
	UpsertButton(ctx context.Context, button *Button) error

	// DeleteButton removes a button row.
	DeleteButton(ctx context.Context, key string) error

	// PullAliasedAction hydrates one aliased action, nil when absent.
	PullAliasedAction(ctx context.Context, key string) (*AliasedAction, error)

	// UpsertAliasedAction creates or fully replaces an aliased action row.
	UpsertAliasedAction(ctx context.Context, aliased *AliasedAction) error

	// DeleteAliasedAction removes an aliased action row.
	DeleteAliasedAction(ctx context.Context, key string) error

	// Translations returns every translation row, optionally filtered by key.
	Translations(ctx context.Context) ([]Translation, error)

	// PullTranslation hydrates one translation value, nil when absent.
	PullTranslation(ctx context.Context, key, lang string) (*Translation, error)

	// UpsertTranslation creates or replaces one translation value.
	UpsertTranslation(ctx context.Context, translation *Translation) error

	// DeleteTranslation removes one translation value.
	DeleteTranslation(ctx context.Context, key, lang string) error

	// PullRegex hydrates one regex, nil when absent.
	PullRegex(ctx context.Context, key string) (*Regex, error)

	// UpsertRegex creates or replaces a regex row.
	UpsertRegex(ctx context.Context, regex *Regex) error

	// DeleteRegex removes a regex row.
	DeleteRegex(ctx context.Context, key string) error

	// PullGlyph hydrates one glyph by owner uuid, nil when absent.
	PullGlyph(ctx context.Context, ownerUUID string) (*Glyph, error)

	// UpsertGlyph creates or replaces a glyph row.
	UpsertGlyph(ctx context.Context, glyph *Glyph) error

	// DeleteGlyph removes a glyph row.
	DeleteGlyph(ctx context.Context, ownerUUID string) error

	/*
		AppendEditLog records one admin mutation in the audit trail.

		Parameters:
		  - ctx: context.Context
		  - entry: *EditLogEntry
	*/
	AppendEditLog(ctx context.Context, entry *EditLogEntry) error

	// RecentEditLog returns the newest limit edit-log rows, newest first.
	RecentEditLog(ctx context.Context, limit int) ([]EditLogEntry, error)

	/*
		RecordConnectionSnapshot appends one fleet-wide connection count
		datapoint. Mutual exclusion across instances is the implementation's
		concern (a short table-lock critical section; see DESIGN.md).
	*/
	RecordConnectionSnapshot(ctx context.Context, count int64) error

	// ConnectionHistory returns datapoints newer than since, oldest first.
	ConnectionHistory(ctx context.Context, since time.Time) ([]ConnectionDatapoint, error)
}

// ConnectionDatapoint is one periodic snapshot of the fleet-wide live
// connection count.
type ConnectionDatapoint struct {
	Timestamp time.Time
	Count     int64
}
