// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package protocol

// # Action ID Table
//
// The table is append-only: new action types get new IDs, and an existing
// ID's payload order is never changed, so already-deployed clients keep
// working against newer gateways.

// Clientbound action IDs. The gateway builds these; clients consume them.
const (
	IDEnableClient         uint16 = 1
	IDDisableClient        uint16 = 2
	IDSendChatComponent    uint16 = 3
	IDSystemOut            uint16 = 4
	IDResetConfig          uint16 = 5
	IDSendChatCommand      uint16 = 6
	IDSetAliasedAction     uint16 = 7
	IDSetButton            uint16 = 8
	IDSetScreen            uint16 = 9
	IDOpenGui              uint16 = 10
	IDOpenScreen           uint16 = 11
	IDRefreshCache         uint16 = 12
	IDSetCurrentServer     uint16 = 13
	IDSetGlyphForUser      uint16 = 14
	IDSetKeybinds          uint16 = 15
	IDSetPremiumAbout      uint16 = 16
	IDSetTranslation       uint16 = 17
	IDSetRegex             uint16 = 18
	IDSetCurrentUserCount  uint16 = 19
	IDPushEditHistoryEvent uint16 = 20
	IDAddUserCountHistory  uint16 = 21
	IDRemoveScreen         uint16 = 22
	IDRemoveButton         uint16 = 23
	IDRemoveAliasedAction  uint16 = 24
	IDAuthBeginHandshake   uint16 = 26
	IDAuthComplete         uint16 = 28
	IDAuthFailed           uint16 = 29
	IDRemoveTranslation    uint16 = 30
	IDRemoveRegex          uint16 = 31
	IDRemoveGlyph          uint16 = 32
)

// Serverbound action IDs. Clients build these; the gateway dispatches them
// to registered handlers.
const (
	IDInitializeClient        uint16 = 25
	IDAuthMojangEndHandshake  uint16 = 27
	IDAuthReestablishSession  uint16 = 33
	IDAuthDiscordEndHandshake uint16 = 34
	IDAuthGoogleEndHandshake  uint16 = 35
	IDLanguageChanged         uint16 = 36
	IDMigrateKeybinds         uint16 = 37
	IDServerJoined            uint16 = 38
	IDServerLeft              uint16 = 39
	IDLocationChanged         uint16 = 40
	IDButtonPressed           uint16 = 41
	IDExceptionThrown         uint16 = 42
	IDAlterScreen             uint16 = 43
	IDDeleteScreen            uint16 = 44
	IDAlterButton             uint16 = 45
	IDDeleteButton            uint16 = 46
	IDAlterAliasedAction      uint16 = 47
	IDDeleteAliasedAction     uint16 = 48
	IDAlterTranslation        uint16 = 49
	IDDeleteTranslation       uint16 = 50
	IDAlterRegex              uint16 = 51
	IDDeleteRegex             uint16 = 52
	IDAlterGlyph              uint16 = 53
	IDDeleteGlyph             uint16 = 54
	IDSetClientSettings       uint16 = 55
	IDLinkDiscord             uint16 = 56
)
