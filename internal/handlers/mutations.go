// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/protocol"
	"github.com/vantari/loadout/internal/session"
)

// Field length bounds shared by entity validation.
const (
	maxKeyLength            = 64
	maxImageURLLength       = 512
	maxTranslationKeyLength = 256
	maxLangLength           = 16
	maxTranslationLength    = 512
)

// Commands an aliased action may never run on the user's behalf: chat and
// social commands would let a malicious list edit impersonate users.
var bannedAliasCommands = []string{
	"me", "msg", "message", "w", "whisper", "tell", "r", "reply", "ac",
	"achat", "gc", "gchat", "pc", "pchat", "oc", "ochat", "staff", "sc", "schat",
	"f", "friend", "g", "guild", "ignore", "chatreport", "wdr", "ban", "mute",
}

// # Screens

/*
AlterScreen creates or replaces a screen.

Payload order: key, screen JSON.
*/
func (h *Handlers) AlterScreen(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	key := action.StringAt(0)
	var screen gamelist.Screen
	if err := action.JSONAt(1, &screen); err != nil {
		return apperr.Validation("loadout.alterScreenFailed")
	}
	screen.Key = key

	if key == "" || len(key) > maxKeyLength ||
		len(screen.ImageURL) > maxImageURLLength ||
		(screen.ScreenType != gamelist.ScreenTypeButtons && screen.ScreenType != gamelist.ScreenTypeImages) {
		return apperr.Validation("loadout.alterScreenFailed")
	}

	if err := h.store.UpsertScreen(ctx, &screen); err != nil {
		return unavailable("loadout.alterScreenFailed", err)
	}
	return h.finishMutation(ctx, sess, gamelist.KindScreen, key, &screen, protocol.IDAlterScreen, "loadout.alterScreenFailed")
}

// DeleteScreen removes a screen by key.
//
// Payload order: key.
func (h *Handlers) DeleteScreen(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	key := action.StringAt(0)
	if err := h.store.DeleteScreen(ctx, key); err != nil {
		return unavailable("loadout.alterScreenFailed", err)
	}
	return h.finishMutation(ctx, sess, gamelist.KindScreen, key, nil, protocol.IDDeleteScreen, "loadout.alterScreenFailed")
}

// # Buttons

/*
AlterButton creates or replaces a button.

Payload order: key, button JSON.
*/
func (h *Handlers) AlterButton(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	key := action.StringAt(0)
	var button gamelist.Button
	if err := action.JSONAt(1, &button); err != nil {
		return apperr.Validation("loadout.alterButtonFailed")
	}
	button.Key = key

	if key == "" || len(key) > maxKeyLength ||
		len(button.ImageURL) > maxImageURLLength ||
		button.TranslationKey == "" {
		return apperr.Validation("loadout.alterButtonFailed")
	}

	if err := h.store.UpsertButton(ctx, &button); err != nil {
		return unavailable("loadout.alterButtonFailed", err)
	}
	return h.finishMutation(ctx, sess, gamelist.KindButton, key, &button, protocol.IDAlterButton, "loadout.alterButtonFailed")
}

// DeleteButton removes a button by key.
//
// Payload order: key.
func (h *Handlers) DeleteButton(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	key := action.StringAt(0)
	if err := h.store.DeleteButton(ctx, key); err != nil {
		return unavailable("loadout.alterButtonFailed", err)
	}
	return h.finishMutation(ctx, sess, gamelist.KindButton, key, nil, protocol.IDDeleteButton, "loadout.alterButtonFailed")
}

// # Aliased Actions

/*
AlterAliasedAction creates or replaces an aliased action.

Description: The wrapped action template is restricted to OpenScreen and
SendChatCommand, and chat commands may not start with a banned social
command, so a compromised admin account cannot turn the button list into a
command-injection vector.

Payload order: key, aliased action JSON.
*/
func (h *Handlers) AlterAliasedAction(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	key := action.StringAt(0)
	var aliased gamelist.AliasedAction
	if err := action.JSONAt(1, &aliased); err != nil {
		return apperr.Validation("loadout.alterAliasedActionFailed")
	}
	aliased.Key = key

	if key == "" || len(key) > maxKeyLength || !wrappedActionAllowed(&aliased) {
		return apperr.Validation("loadout.alterAliasedActionFailed")
	}

	if err := h.store.UpsertAliasedAction(ctx, &aliased); err != nil {
		return unavailable("loadout.alterAliasedActionFailed", err)
	}
	return h.finishMutation(ctx, sess, gamelist.KindAliasedAction, key, &aliased, protocol.IDAlterAliasedAction, "loadout.alterAliasedActionFailed")
}

// wrappedActionAllowed reports whether the alias wraps a permitted template.
func wrappedActionAllowed(aliased *gamelist.AliasedAction) bool {
	switch aliased.ActionID {
	case protocol.IDOpenScreen:
		return true
	case protocol.IDSendChatCommand:
		if len(aliased.Args) == 0 {
			return false
		}
		cmd := aliased.Args[0]
		if !strings.HasPrefix(cmd, "/") {
			cmd = "/" + cmd
		}
		for _, banned := range bannedAliasCommands {
			if cmd == "/"+banned || strings.HasPrefix(cmd, "/"+banned+" ") {
				return false
			}
		}
		return true
	}
	return false
}

// DeleteAliasedAction removes an aliased action by key.
//
// Payload order: key.
func (h *Handlers) DeleteAliasedAction(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	key := action.StringAt(0)
	if err := h.store.DeleteAliasedAction(ctx, key); err != nil {
		return unavailable("loadout.alterAliasedActionFailed", err)
	}
	return h.finishMutation(ctx, sess, gamelist.KindAliasedAction, key, nil, protocol.IDDeleteAliasedAction, "loadout.alterAliasedActionFailed")
}

// # Translations

/*
AlterTranslation creates or replaces one localized string.

Payload order: key, lang, value. Commas are banned in key and lang because
both travel inside the comma-separated notification payload.
*/
func (h *Handlers) AlterTranslation(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	translation := gamelist.Translation{
		Key:   action.StringAt(0),
		Lang:  strings.ToLower(action.StringAt(1)),
		Value: action.StringAt(2),
	}

	if translation.Key == "" || len(translation.Key) > maxTranslationKeyLength ||
		translation.Lang == "" || len(translation.Lang) > maxLangLength ||
		translation.Value == "" || len(translation.Value) > maxTranslationLength ||
		strings.Contains(translation.Key, ",") || strings.Contains(translation.Lang, ",") {
		return apperr.Validation("loadout.alterTranslationFailed")
	}

	prev, err := h.store.PullTranslation(ctx, translation.Key, translation.Lang)
	if err != nil {
		return unavailable("loadout.alterTranslationFailed", err)
	}
	if err := h.store.UpsertTranslation(ctx, &translation); err != nil {
		return unavailable("loadout.alterTranslationFailed", err)
	}
	h.appendEditLog(ctx, sess, gamelist.KindTranslation, translation.Key, false, prev)

	if err := h.cache.WriteThroughTranslation(ctx, &translation); err != nil {
		return unavailable("loadout.alterTranslationFailed", err)
	}
	if err := h.bus.Publish(ctx, protocol.IDAlterTranslation, translation.Key, translation.Lang); err != nil {
		return unavailable("loadout.alterTranslationFailed", err)
	}
	return nil
}

// DeleteTranslation removes one localized string.
//
// Payload order: key, lang.
func (h *Handlers) DeleteTranslation(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	key := action.StringAt(0)
	lang := strings.ToLower(action.StringAt(1))

	prev, err := h.store.PullTranslation(ctx, key, lang)
	if err != nil {
		return unavailable("loadout.alterTranslationFailed", err)
	}
	if err := h.store.DeleteTranslation(ctx, key, lang); err != nil {
		return unavailable("loadout.alterTranslationFailed", err)
	}
	h.appendEditLog(ctx, sess, gamelist.KindTranslation, key, true, prev)

	if err := h.cache.RemoveTranslation(ctx, key, lang); err != nil {
		return unavailable("loadout.alterTranslationFailed", err)
	}
	if err := h.bus.Publish(ctx, protocol.IDDeleteTranslation, key, lang); err != nil {
		return unavailable("loadout.alterTranslationFailed", err)
	}
	return nil
}

// # Regexes

/*
AlterRegex creates or replaces a named regular expression.

Payload order: key, pattern. The pattern must compile; clients treat these
as trusted and compile them blindly.
*/
func (h *Handlers) AlterRegex(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	regex := gamelist.Regex{
		Key:   action.StringAt(0),
		Value: action.StringAt(1),
	}

	if regex.Key == "" || len(regex.Key) > maxKeyLength || strings.Contains(regex.Key, ",") || regex.Value == "" {
		return apperr.Validation("loadout.alterRegexFailed")
	}
	if _, err := regexp.Compile(regex.Value); err != nil {
		return apperr.Validation("loadout.alterRegexFailed")
	}

	if err := h.store.UpsertRegex(ctx, &regex); err != nil {
		return unavailable("loadout.alterRegexFailed", err)
	}
	return h.finishMutation(ctx, sess, gamelist.KindRegex, regex.Key, &regex, protocol.IDAlterRegex, "loadout.alterRegexFailed")
}

// DeleteRegex removes a regular expression by key.
//
// Payload order: key.
func (h *Handlers) DeleteRegex(ctx context.Context, action *protocol.Action, sess *session.Session) error {
	if err := h.requireAdmin(ctx, sess); err != nil {
		return err
	}

	key := action.StringAt(0)
	if err := h.store.DeleteRegex(ctx, key); err != nil {
		return unavailable("loadout.alterRegexFailed", err)
	}
	return h.finishMutation(ctx, sess, gamelist.KindRegex, key, nil, protocol.IDDeleteRegex, "loadout.alterRegexFailed")
}

// # Shared Mutation Tail

// finishMutation runs the common post-store steps: edit log, cache
// write-through (or removal when entity is nil), and change publication.
// The store write already happened; cache or publish failures surface to the
// admin but are eventually repaired by the next full populate.
func (h *Handlers) finishMutation(ctx context.Context, sess *session.Session, kind gamelist.Kind, key string, entity any, actionID uint16, translationKey string) error {
	deleted := entity == nil
	h.appendEditLogRaw(ctx, sess, kind, key, deleted)

	if deleted {
		if err := h.cache.Remove(ctx, kind, key); err != nil {
			return unavailable(translationKey, err)
		}
	} else {
		if err := h.cache.WriteThrough(ctx, kind, key, entity); err != nil {
			return unavailable(translationKey, err)
		}
	}

	if err := h.bus.Publish(ctx, actionID, key); err != nil {
		return unavailable(translationKey, err)
	}
	return nil
}

// appendEditLogRaw records a mutation with the pre-mutation cache projection
// as the previous version.
func (h *Handlers) appendEditLogRaw(ctx context.Context, sess *session.Session, kind gamelist.Kind, key string, deleted bool) {
	prevRaw, err := h.cache.Get(ctx, kind, key)
	if err != nil {
		prevRaw = nil
	}
	entry := &gamelist.EditLogEntry{
		Timestamp:   time.Now().UnixMilli(),
		EditedBy:    sess.AccountID,
		ItemType:    kind,
		ItemKey:     key,
		Deleted:     deleted,
		PrevVersion: string(prevRaw),
	}
	if err := h.store.AppendEditLog(ctx, entry); err != nil {
		h.logger.Warn("edit_log_append_failed", slog.String("error", err.Error()))
	}
}

// appendEditLog records a translation mutation with its previous row.
func (h *Handlers) appendEditLog(ctx context.Context, sess *session.Session, kind gamelist.Kind, key string, deleted bool, prev *gamelist.Translation) {
	prevJSON := ""
	if prev != nil {
		if raw, err := json.Marshal(prev); err == nil {
			prevJSON = string(raw)
		}
	}
	entry := &gamelist.EditLogEntry{
		Timestamp:   time.Now().UnixMilli(),
		EditedBy:    sess.AccountID,
		ItemType:    kind,
		ItemKey:     key,
		Deleted:     deleted,
		PrevVersion: prevJSON,
	}
	if err := h.store.AppendEditLog(ctx, entry); err != nil {
		h.logger.Warn("edit_log_append_failed", slog.String("error", err.Error()))
	}
}
