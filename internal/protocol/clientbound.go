// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package protocol

import "time"

// # Clientbound Constructors
//
// One constructor per clientbound action, reproducing the documented payload
// order exactly. Payload order is part of the wire contract and is never
// reordered.

// NewEnableClient tells the client the add-on may activate.
func NewEnableClient() *Action {
	return New(IDEnableClient)
}

// NewDisableClient instructs the client to shut the add-on down.
//
// Payload order: reason.
func NewDisableClient(reason string) *Action {
	if reason == "" {
		reason = "No reason provided"
	}
	return New(IDDisableClient).AddString(reason)
}

// NewSendChatComponent renders a rich-text message in the user's chat.
//
// Payload order: chat message JSON.
func NewSendChatComponent(message *ChatMessage) *Action {
	return New(IDSendChatComponent).AddJSON(message)
}

// NewSystemOut prints a plain line to the client's log.
//
// Payload order: text.
func NewSystemOut(text string) *Action {
	return New(IDSystemOut).AddString(text)
}

// NewResetConfig wipes the client's local configuration state.
func NewResetConfig() *Action {
	return New(IDResetConfig)
}

// NewSendChatCommand runs a chat command on behalf of the user. The leading
// slash is added back by the client.
//
// Payload order: command.
func NewSendChatCommand(command string) *Action {
	return New(IDSendChatCommand).AddString(command)
}

// NewSetCurrentServer notifies the client of the recognized server it joined.
//
// Payload order: server name.
func NewSetCurrentServer(serverName string) *Action {
	return New(IDSetCurrentServer).AddString(serverName)
}

// NewRefreshCache asks the client to re-request its configuration.
func NewRefreshCache() *Action {
	return New(IDRefreshCache)
}

// NewOpenScreen opens a configured screen by key.
//
// Payload order: screen key.
func NewOpenScreen(key string) *Action {
	return New(IDOpenScreen).AddString(key)
}

// # Config Entity Pushes

// NewSetAliasedAction upserts an aliased action on the client.
//
// Payload order: key, availableOn JSON, protocol, wrapped action frame.
func NewSetAliasedAction(key string, availableOn []string, protocolConstraint string, wrapped *Action) *Action {
	action := New(IDSetAliasedAction).
		AddString(key).
		AddJSON(nonNil(availableOn)).
		AddString(protocolConstraint)
	if wrapped != nil {
		action.AddPayload(wrapped.Encode())
	} else {
		action.AddPayload(nil)
	}
	return action
}

// NewSetButton upserts a button on the client.
//
// Payload order: key, availableOn JSON, protocol, actions JSON (aliased
// action keys), imageURL, translationKey, visible, adminOnly.
func NewSetButton(key string, availableOn []string, protocolConstraint string, actions []string, imageURL, translationKey string, visible, adminOnly bool) *Action {
	return New(IDSetButton).
		AddString(key).
		AddJSON(nonNil(availableOn)).
		AddString(protocolConstraint).
		AddJSON(nonNil(actions)).
		AddString(imageURL).
		AddString(translationKey).
		AddBool(visible).
		AddBool(adminOnly)
}

// NewSetScreen upserts a screen on the client.
//
// Payload order: key, availableOn JSON, protocol, screenType, buttons JSON
// (button keys), backButtonActions JSON (aliased action keys), translationKey,
// imageURL, visible, adminOnly.
func NewSetScreen(key string, availableOn []string, protocolConstraint, screenType string, buttons, backButtonActions []string, translationKey, imageURL string, visible, adminOnly bool) *Action {
	return New(IDSetScreen).
		AddString(key).
		AddJSON(nonNil(availableOn)).
		AddString(protocolConstraint).
		AddString(screenType).
		AddJSON(nonNil(buttons)).
		AddJSON(nonNil(backButtonActions)).
		AddString(translationKey).
		AddString(imageURL).
		AddBool(visible).
		AddBool(adminOnly)
}

// NewSetTranslation upserts one translation value.
//
// Payload order: key, lang, value.
func NewSetTranslation(key, lang, value string) *Action {
	return New(IDSetTranslation).
		AddString(key).
		AddString(lang).
		AddString(value)
}

// NewSetRegex upserts one named regular expression.
//
// Payload order: key, value.
func NewSetRegex(key, value string) *Action {
	return New(IDSetRegex).
		AddString(key).
		AddString(value)
}

// NewSetGlyphForUser upserts one user's decoration.
//
// Payload order: owner uuid, image URL, height, yOffset, displayInGames.
func NewSetGlyphForUser(ownerUUID, imageURL string, height int, yOffset float64, displayInGames bool) *Action {
	return New(IDSetGlyphForUser).
		AddString(ownerUUID).
		AddString(imageURL).
		AddJSON(height).
		AddJSON(yOffset).
		AddBool(displayInGames)
}

// # Config Entity Removals

// NewRemoveScreen deletes a screen from the client.
//
// Payload order: key.
func NewRemoveScreen(key string) *Action {
	return New(IDRemoveScreen).AddString(key)
}

// NewRemoveButton deletes a button from the client.
//
// Payload order: key.
func NewRemoveButton(key string) *Action {
	return New(IDRemoveButton).AddString(key)
}

// NewRemoveAliasedAction deletes an aliased action from the client.
//
// Payload order: key.
func NewRemoveAliasedAction(key string) *Action {
	return New(IDRemoveAliasedAction).AddString(key)
}

// NewRemoveTranslation deletes one translation value from the client.
//
// Payload order: key, lang.
func NewRemoveTranslation(key, lang string) *Action {
	return New(IDRemoveTranslation).AddString(key).AddString(lang)
}

// NewRemoveRegex deletes one regular expression from the client.
//
// Payload order: key.
func NewRemoveRegex(key string) *Action {
	return New(IDRemoveRegex).AddString(key)
}

// NewRemoveGlyph deletes one user's decoration from the client.
//
// Payload order: owner uuid.
func NewRemoveGlyph(ownerUUID string) *Action {
	return New(IDRemoveGlyph).AddString(ownerUUID)
}

// # Authentication

// NewAuthBeginHandshake starts an authentication cycle.
//
// Payload order: handshake token.
func NewAuthBeginHandshake(handshakeToken string) *Action {
	return New(IDAuthBeginHandshake).AddString(handshakeToken)
}

// AuthSnapshot is the account-derived data pushed alongside a session token.
type AuthSnapshot struct {
	MinecraftUUID     string
	DiscordID         string
	GoogleID          string
	IsAdmin           bool
	IsPremium         bool
	PremiumExpiration time.Time
	Rank              string
	PackageRank       string
	IsBuildTeam       bool
	IsBuildTeamAdmin  bool
}

// NewAuthComplete finalizes authentication: session token, expiration, and a
// snapshot of account-derived state.
//
// Payload order: session token, expiration millis (8-byte BE), mc uuid,
// discord id, google id, isAdmin, isPremium, premium expiration millis
// (8-byte BE, zero when not premium), rank, packageRank, isBuildTeam,
// isBuildTeamAdmin.
func NewAuthComplete(sessionToken string, expiration time.Time, snapshot AuthSnapshot) *Action {
	var premiumExpiration int64
	if !snapshot.PremiumExpiration.IsZero() {
		premiumExpiration = snapshot.PremiumExpiration.UnixMilli()
	}
	return New(IDAuthComplete).
		AddString(sessionToken).
		AddInt64(expiration.UnixMilli()).
		AddString(snapshot.MinecraftUUID).
		AddString(snapshot.DiscordID).
		AddString(snapshot.GoogleID).
		AddBool(snapshot.IsAdmin).
		AddBool(snapshot.IsPremium).
		AddInt64(premiumExpiration).
		AddString(snapshot.Rank).
		AddString(snapshot.PackageRank).
		AddBool(snapshot.IsBuildTeam).
		AddBool(snapshot.IsBuildTeamAdmin)
}

// NewAuthFailed reports a failed authentication attempt. Deliberately carries
// no payload: the client is never told which check failed.
func NewAuthFailed() *Action {
	return New(IDAuthFailed)
}

// NewSetKeybinds replaces the client's keybind list wholesale.
//
// Payload order: keybinds JSON array.
func NewSetKeybinds(keybindsJSON []byte) *Action {
	return New(IDSetKeybinds).AddPayload(keybindsJSON)
}

// # Admin Telemetry

// NewSetCurrentUserCount pushes the fleet-wide live connection count.
//
// Payload order: count (8-byte BE).
func NewSetCurrentUserCount(count int64) *Action {
	return New(IDSetCurrentUserCount).AddInt64(count)
}

// NewAddUserCountHistory pushes one historical connection-count datapoint.
//
// Payload order: timestamp millis (8-byte BE), count (8-byte BE), reset flag.
func NewAddUserCountHistory(timestamp time.Time, count int64, reset bool) *Action {
	return New(IDAddUserCountHistory).
		AddInt64(timestamp.UnixMilli()).
		AddInt64(count).
		AddBool(reset)
}

// NewPushEditHistoryEvent pushes one admin edit-log row.
//
// Payload order: timestamp millis (8-byte BE), edited by, item type, item
// key, deleted flag, previous version JSON.
func NewPushEditHistoryEvent(timestamp time.Time, editedBy int64, itemType, itemKey string, deleted bool, prevVersion string) *Action {
	return New(IDPushEditHistoryEvent).
		AddInt64(timestamp.UnixMilli()).
		AddInt64(editedBy).
		AddString(itemType).
		AddString(itemKey).
		AddBool(deleted).
		AddString(prevVersion)
}

// nonNil normalizes a nil slice to an empty one so JSON payloads encode as
// [] rather than null.
func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
