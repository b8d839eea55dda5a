// Package pagination holds the limit, offset and keyset-cursor helpers shared
// by the listing endpoints.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 200
	// MaxPage keeps (page-1)*limit well inside the int range.
	MaxPage = 1 << 20
)

// Cursor is a keyset position: the createdAt and id of the last row a client
// has seen. Clients only ever echo its encoded form.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type cursorWire struct {
	At int64     `json:"t"`
	ID uuid.UUID `json:"id"`
}

// Encode renders the cursor as unpadded URL-safe base64 of a small JSON
// document. Nanosecond precision keeps the keyset comparison exact.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(cursorWire{At: c.CreatedAt.UnixNano(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor decodes an encoded cursor. Blank input is not an error and
// yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var wire cursorWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if wire.At <= 0 || wire.ID == uuid.Nil {
		return nil, errors.New("cursor is missing its position")
	}
	return &Cursor{CreatedAt: time.Unix(0, wire.At).UTC(), ID: wire.ID}, nil
}

// Clamp applies DefaultLimit to non-positive limits and caps at MaxLimit.
func Clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Probe is the row count to fetch for a keyset page: one extra row tells
// whether another page exists.
func Probe(limit int) int {
	return Clamp(limit) + 1
}

// Offset converts a 1-based page into a row offset.
func Offset(page, limit int) int {
	if page <= 1 {
		return 0
	}
	return (page - 1) * Clamp(limit)
}

// NextPage trims a Probe-sized result to limit and, when the extra row was
// present, returns the cursor of the last row kept.
func NextPage[T any](rows []T, limit int, position func(T) Cursor) ([]T, *string) {
	if len(rows) <= limit || limit <= 0 {
		return rows, nil
	}
	rows = rows[:limit]
	next := position(rows[limit-1]).Encode()
	return rows, &next
}
