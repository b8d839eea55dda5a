package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

// ErrEmptyData means the envelope decoded but carries no event body.
var ErrEmptyData = errors.New("outbox: envelope has no data")

// Actor identifies the principal whose request produced the event.
type Actor struct {
	PrincipalID   uuid.UUID           `json:"principalId"`
	PrincipalKind enums.PrincipalKind `json:"principalKind"`
	StoreID       uuid.UUID           `json:"storeId"`
	Role          string              `json:"role,omitempty"`
}

// Envelope is what outbox_events.payload holds and what subscribers
// receive as the message body.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// OpenEnvelope decodes a stored payload. A literal null body counts as empty.
func OpenEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	body := bytes.TrimSpace(env.Data)
	if len(body) == 0 || string(body) == "null" {
		return env, ErrEmptyData
	}
	return env, nil
}

// Into unmarshals the event body into dst.
func (e Envelope) Into(dst any) error {
	return json.Unmarshal(e.Data, dst)
}
