// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/protocol"
)

/*
TestWrappedActionAllowed verifies the aliased action template restrictions:
only OpenScreen and SendChatCommand templates pass, and chat commands may
not start with a social command that could impersonate the user.
*/
func TestWrappedActionAllowed(t *testing.T) {
	tests := []struct {
		name     string
		actionID uint16
		args     []string
		want     bool
	}{
		{"open_screen", protocol.IDOpenScreen, []string{"main"}, true},
		{"chat_command", protocol.IDSendChatCommand, []string{"/play bedwars_four"}, true},
		{"chat_command_without_slash", protocol.IDSendChatCommand, []string{"play bedwars_four"}, true},
		{"chat_command_no_args", protocol.IDSendChatCommand, nil, false},
		{"banned_exact", protocol.IDSendChatCommand, []string{"/msg"}, false},
		{"banned_with_argument", protocol.IDSendChatCommand, []string{"/msg Player hello"}, false},
		{"banned_without_slash", protocol.IDSendChatCommand, []string{"guild invite Player"}, false},
		{"banned_prefix_of_longer_command", protocol.IDSendChatCommand, []string{"/msgboard"}, true},
		{"other_action", protocol.IDSendChatComponent, []string{"{}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aliased := &gamelist.AliasedAction{ActionID: tt.actionID, Args: tt.args}
			assert.Equal(t, tt.want, wrappedActionAllowed(aliased))
		})
	}
}
