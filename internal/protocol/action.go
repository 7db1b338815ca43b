// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package protocol implements the binary action protocol spoken between the
gateway and the game-client add-on.

Actions are the core communication unit: small framed packets that instruct
the client what to do next (set a button, open a screen, begin a handshake),
or inform the gateway of a client-side event.

Frame layout:

	ID            - 2 bytes, big-endian
	Payload length - 4 bytes, big-endian
	Payload        - as many bytes as the previous field declared
	(length + payload repeat for every further payload item)

Payload items are opaque byte strings at this layer; callers interpret them
as UTF-8 text, JSON, or fixed-width binary fields per action type. Encoding
is byte-for-byte deterministic for a given (ID, payload) pair, which is
required for compatibility with already-deployed clients.

The action ID table is append-only: existing IDs and their payload order are
never changed.
*/
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/vantari/loadout/internal/platform/apperr"
)

// # Wire Format

const (
	// idWidth is the size of the action ID prefix.
	idWidth = 2
	// lengthWidth is the size of each payload item's length prefix.
	lengthWidth = 4
)

// Action is a single protocol message: a numeric ID plus an ordered sequence
// of opaque payload items.
//
// Received actions are immutable once decoded; outbound actions are built
// incrementally via [Action.AddPayload] and serialized exactly once.
type Action struct {
	ID      uint16
	Payload [][]byte
}

// New creates an empty outbound action with the given ID.
func New(id uint16) *Action {
	return &Action{ID: id}
}

// AddPayload appends one opaque item to the payload sequence.
func (a *Action) AddPayload(item []byte) *Action {
	a.Payload = append(a.Payload, item)
	return a
}

// AddString appends a UTF-8 string payload item.
func (a *Action) AddString(item string) *Action {
	return a.AddPayload([]byte(item))
}

// AddJSON appends a JSON-serialized payload item.
func (a *Action) AddJSON(value any) *Action {
	encoded, err := json.Marshal(value)
	if err != nil {
		// Only unmarshalable Go values (channels, funcs) can land here, which
		// would be a programming error. Encode an empty item instead.
		encoded = []byte("null")
	}
	return a.AddPayload(encoded)
}

// AddInt64 appends an 8-byte big-endian integer payload item. Used for
// millisecond timestamps such as session expirations.
func (a *Action) AddInt64(value int64) *Action {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	return a.AddPayload(buf)
}

// AddBool appends a single-byte boolean payload item.
func (a *Action) AddBool(value bool) *Action {
	if value {
		return a.AddPayload([]byte{1})
	}
	return a.AddPayload([]byte{0})
}

// # Encoding

/*
Encode serializes the action into a wire frame.

Returns:
  - []byte: The framed bytes, ready to send over the socket.
*/
func (a *Action) Encode() []byte {
	size := idWidth
	for _, item := range a.Payload {
		size += lengthWidth + len(item)
	}

	frame := make([]byte, size)
	binary.BigEndian.PutUint16(frame[0:idWidth], a.ID)

	offset := idWidth
	for _, item := range a.Payload {
		binary.BigEndian.PutUint32(frame[offset:offset+lengthWidth], uint32(len(item)))
		offset += lengthWidth
		copy(frame[offset:], item)
		offset += len(item)
	}

	return frame
}

// # Decoding

/*
Decode parses a wire frame into an [Action].

Description: Reads payload items until the buffer is exhausted. A declared
item length that would run past the end of the buffer is a framing error;
decoding never reads out of bounds.

Parameters:
  - frame: []byte

Returns:
  - *Action: Decoded action
  - error: apperr with [apperr.CodeFraming] on malformed input
*/
func Decode(frame []byte) (*Action, error) {
	if len(frame) < idWidth {
		return nil, &apperr.AppError{
			Code:  apperr.CodeFraming,
			Cause: fmt.Errorf("protocol: frame too short: %d bytes", len(frame)),
		}
	}

	action := &Action{ID: binary.BigEndian.Uint16(frame[0:idWidth])}

	offset := idWidth
	for offset < len(frame) {
		if offset+lengthWidth > len(frame) {
			return nil, &apperr.AppError{
				Code:  apperr.CodeFraming,
				Cause: fmt.Errorf("protocol: truncated length prefix at offset %d", offset),
			}
		}
		length := int(binary.BigEndian.Uint32(frame[offset : offset+lengthWidth]))
		offset += lengthWidth

		if length < 0 || offset+length > len(frame) {
			return nil, &apperr.AppError{
				Code:  apperr.CodeFraming,
				Cause: fmt.Errorf("protocol: declared item length %d overruns frame of %d bytes", length, len(frame)),
			}
		}

		item := make([]byte, length)
		copy(item, frame[offset:offset+length])
		action.Payload = append(action.Payload, item)
		offset += length
	}

	return action, nil
}

// # Payload Accessors

// StringAt returns payload item i as a UTF-8 string, or "" if absent.
func (a *Action) StringAt(i int) string {
	if i < 0 || i >= len(a.Payload) {
		return ""
	}
	return string(a.Payload[i])
}

// BytesAt returns payload item i, or nil if absent.
func (a *Action) BytesAt(i int) []byte {
	if i < 0 || i >= len(a.Payload) {
		return nil
	}
	return a.Payload[i]
}

// Int64At returns payload item i interpreted as an 8-byte big-endian integer.
func (a *Action) Int64At(i int) (int64, error) {
	item := a.BytesAt(i)
	if len(item) != 8 {
		return 0, fmt.Errorf("protocol: payload item %d is not an 8-byte integer", i)
	}
	return int64(binary.BigEndian.Uint64(item)), nil
}

// BoolAt returns payload item i interpreted as a single-byte boolean.
func (a *Action) BoolAt(i int) bool {
	item := a.BytesAt(i)
	return len(item) == 1 && item[0] == 1
}

// JSONAt unmarshals payload item i into target.
func (a *Action) JSONAt(i int, target any) error {
	item := a.BytesAt(i)
	if item == nil {
		return fmt.Errorf("protocol: payload item %d is absent", i)
	}
	if err := json.Unmarshal(item, target); err != nil {
		return fmt.Errorf("protocol: payload item %d is not valid JSON: %w", i, err)
	}
	return nil
}

// Len returns the number of payload items.
func (a *Action) Len() int { return len(a.Payload) }
