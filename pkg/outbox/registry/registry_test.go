package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox/payloads"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(config.PubSubConfig{SalesTopic: "sales-topic"})
	require.NoError(t, err)
	return reg
}

func saleRow(t *testing.T, data any) models.OutboxEvent {
	t.Helper()
	row, err := outbox.Seal(outbox.Event{
		Type:      enums.EventSaleTransactionRecorded,
		Aggregate: enums.AggregateSaleTransaction,
		SubjectID: uuid.New(),
		Data:      data,
	}, time.Now())
	require.NoError(t, err)
	return row
}

func TestResolveSaleEvent(t *testing.T) {
	reg := newTestRegistry(t)
	txID := uuid.New()
	row := saleRow(t, payloads.SaleTransactionRecordedEvent{
		TransactionID: txID,
		ItemsCount:    2,
		Total:         json.Number("1300"),
	})

	resolved, err := reg.Resolve(row)
	require.NoError(t, err)
	require.Equal(t, "sales-topic", resolved.Route.Topic)
	require.Equal(t, row.ID.String(), resolved.Envelope.EventID)

	payload, ok := resolved.Payload.(*payloads.SaleTransactionRecordedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	require.Equal(t, txID, payload.TransactionID)
	require.Equal(t, "1300", payload.Total.String())
}

func TestResolveFailuresArePermanent(t *testing.T) {
	reg := newTestRegistry(t)

	unknown := saleRow(t, map[string]string{})
	unknown.EventType = "something_else"

	mismatch := saleRow(t, map[string]string{})
	mismatch.AggregateType = "other"

	orphan := saleRow(t, map[string]string{})
	orphan.AggregateID = uuid.Nil

	garbage := saleRow(t, map[string]string{})
	garbage.Payload = json.RawMessage(`not-json`)

	cases := map[string]models.OutboxEvent{
		"unknown":  unknown,
		"mismatch": mismatch,
		"orphan":   orphan,
		"empty":    saleRow(t, nil),
		"garbage":  garbage,
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			require.Error(t, err)
			require.True(t, IsPermanent(err), "got %v", err)
		})
	}
}

func TestPermanent(t *testing.T) {
	require.NoError(t, Permanent(nil))
	require.False(t, IsPermanent(errors.New("plain")))

	base := errors.New("base")
	wrapped := Permanent(base)
	require.ErrorIs(t, wrapped, base)
	require.Equal(t, "base", wrapped.Error())
}

func TestTopicsAreDistinct(t *testing.T) {
	require.Equal(t, []string{"sales-topic"}, newTestRegistry(t).Topics())
}

func TestNewRequiresTopic(t *testing.T) {
	_, err := New(config.PubSubConfig{})
	require.Error(t, err)
}
