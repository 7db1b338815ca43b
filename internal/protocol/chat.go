// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package protocol

// # Chat Components
//
// Chat components mirror the game client's own rich-text JSON format. They
// are serialized into SendChatComponent payloads and rendered verbatim by
// the client, so the field names below are part of the wire contract.

// Formatting color codes understood by the client.
const (
	ColorWhite  = "white"
	ColorRed    = "red"
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorGray   = "gray"
	ColorAqua   = "aqua"
	ColorGold   = "gold"
)

// Component is a single rich-text node with optional styled siblings.
type Component struct {
	Text          string       `json:"text"`
	Color         string       `json:"color,omitempty"`
	Bold          bool         `json:"bold,omitempty"`
	Italic        bool         `json:"italic,omitempty"`
	Underline     bool         `json:"underline,omitempty"`
	Strikethrough bool         `json:"strikethrough,omitempty"`
	Obfuscated    bool         `json:"obfuscated,omitempty"`
	Extra         []*Component `json:"extra,omitempty"`
}

// Text creates a plain white component.
func Text(text string) *Component {
	return &Component{Text: text, Color: ColorWhite}
}

// SetColor sets the component color and returns the component for chaining.
func (c *Component) SetColor(color string) *Component {
	c.Color = color
	return c
}

// SetBold sets the bold flag and returns the component for chaining.
func (c *Component) SetBold(bold bool) *Component {
	c.Bold = bold
	return c
}

// AppendSibling appends a styled sibling rendered after this component.
func (c *Component) AppendSibling(sibling *Component) *Component {
	c.Extra = append(c.Extra, sibling)
	return c
}

// ChatMessage wraps a component with client-side display options.
type ChatMessage struct {
	Message *Component `json:"message"`
	// Separators renders horizontal rules around the message.
	Separators bool `json:"separators"`
	// BypassEnabledSetting shows the message even when the user has the
	// add-on's chat output disabled.
	BypassEnabledSetting bool `json:"bypassEnabledSetting"`
}

// NewChatMessage wraps a component in a [ChatMessage] with default options.
func NewChatMessage(component *Component) *ChatMessage {
	return &ChatMessage{Message: component}
}
