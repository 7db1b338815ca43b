// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package gamelist implements the configuration entities distributed to game
clients, their authoritative PostgreSQL store, the denormalized Redis
read-cache, and the cross-instance notification bus.

# Architecture

  - Entities: Screen, Button, AliasedAction, Translation, Regex, Glyph.
    The authoritative copy lives in PostgreSQL; a JSON projection lives in
    Redis keyed by (entity hash, key) or (locale, translation key).
  - Store: parameterized pgx queries only. Every mutation appends an edit
    log row.
  - Cache: derived, never hand-edited. Entries are fully replaced on every
    mutation (no partial patch semantics), written through synchronously
    before the change notification is published.
  - Bus: at-least-once, last-value-wins per key. Subscribers re-read the
    cache at notification time rather than trusting the notification payload.
*/
package gamelist

import (
	"strings"

	"github.com/vantari/loadout/internal/protocol"
)

// # Entity Kinds

// Kind identifies a configuration entity type in edit logs and notifications.
type Kind string

const (
	KindScreen        Kind = "screen"
	KindButton        Kind = "button"
	KindAliasedAction Kind = "aliased_action"
	KindTranslation   Kind = "translation"
	KindRegex         Kind = "regex"
	KindGlyph         Kind = "glyph"
)

// Screen types understood by the client renderer.
const (
	ScreenTypeImages  = "IMAGES"
	ScreenTypeButtons = "BUTTONS"
)

// # Entities

// Screen is a named client UI screen: a grid of buttons or images plus
// back-navigation actions.
type Screen struct {
	Key               string   `json:"key"`
	ScreenType        string   `json:"screenType"`
	AvailableOn       []string `json:"availableOn"`
	Protocol          string   `json:"protocol"`
	Buttons           []string `json:"buttons"`
	BackButtonActions []string `json:"backButtonActions"`
	TranslationKey    string   `json:"translationKey"`
	ImageURL          string   `json:"imageURL"`
	Visible           bool     `json:"visible"`
	AdminOnly         bool     `json:"adminOnly"`
}

// ToAction builds the clientbound upsert push for this screen.
func (s *Screen) ToAction() *protocol.Action {
	return protocol.NewSetScreen(s.Key, s.AvailableOn, s.Protocol, s.ScreenType,
		s.Buttons, s.BackButtonActions, s.TranslationKey, s.ImageURL, s.Visible, s.AdminOnly)
}

// Button is a clickable element referencing an ordered list of aliased
// action keys.
type Button struct {
	Key            string   `json:"key"`
	AvailableOn    []string `json:"availableOn"`
	Protocol       string   `json:"protocol"`
	Actions        []string `json:"actions"`
	ImageURL       string   `json:"imageURL"`
	TranslationKey string   `json:"translationKey"`
	Visible        bool     `json:"visible"`
	AdminOnly      bool     `json:"adminOnly"`
}

// ToAction builds the clientbound upsert push for this button.
func (b *Button) ToAction() *protocol.Action {
	return protocol.NewSetButton(b.Key, b.AvailableOn, b.Protocol, b.Actions,
		b.ImageURL, b.TranslationKey, b.Visible, b.AdminOnly)
}

// AliasedAction names exactly one protocol action template so buttons can
// reference behavior indirectly.
type AliasedAction struct {
	Key         string   `json:"key"`
	AvailableOn []string `json:"availableOn"`
	Protocol    string   `json:"protocol"`
	AdminOnly   bool     `json:"adminOnly"`
	// ActionID plus Args form the wrapped action template sent verbatim to
	// the client when the alias fires.
	ActionID uint16   `json:"actionId"`
	Args     []string `json:"args"`
}

// ToAction builds the clientbound upsert push for this aliased action.
func (a *AliasedAction) ToAction() *protocol.Action {
	wrapped := protocol.New(a.ActionID)
	for _, arg := range a.Args {
		wrapped.AddString(arg)
	}
	return protocol.NewSetAliasedAction(a.Key, a.AvailableOn, a.Protocol, wrapped)
}

// Translation is one localized string value.
type Translation struct {
	Key   string `json:"key"`
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// ToAction builds the clientbound upsert push for this translation.
func (t *Translation) ToAction() *protocol.Action {
	return protocol.NewSetTranslation(t.Key, t.Lang, t.Value)
}

// Regex is a named regular expression clients use for chat matching.
type Regex struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ToAction builds the clientbound upsert push for this regex.
func (r *Regex) ToAction() *protocol.Action {
	return protocol.NewSetRegex(r.Key, r.Value)
}

// Glyph is a user decoration rendered above the player. The image pipeline
// that produces Path is an external collaborator; only the resulting URL is
// distributed.
type Glyph struct {
	UUID           string  `json:"uuid"`
	Path           string  `json:"path"`
	Height         int     `json:"height"`
	YOffset        float64 `json:"yOffset"`
	DisplayInGames bool    `json:"displayInGames"`
}

// ToAction builds the clientbound upsert push for this glyph. glyphProxy is
// prepended when Path is not already an absolute URL.
func (g *Glyph) ToAction(glyphProxy string) *protocol.Action {
	path := g.Path
	if path != "" && !strings.HasPrefix(path, "http") {
		path = glyphProxy + path
	}
	return protocol.NewSetGlyphForUser(g.UUID, path, g.Height, g.YOffset, g.DisplayInGames)
}

// # Edit Log

// EditLogEntry records one admin mutation for the audit trail pushed to
// admin sessions.
type EditLogEntry struct {
	Timestamp   int64  `json:"timestamp"`
	EditedBy    int64  `json:"editedBy"`
	ItemType    Kind   `json:"itemType"`
	ItemKey     string `json:"itemKey"`
	Deleted     bool   `json:"deleted"`
	PrevVersion string `json:"prevVersion"`
}
