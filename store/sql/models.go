package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-trm/webhooks"
	"github.com/uptrace/bun"
)

type deliveryRecord struct {
	bun.BaseModel `bun:"table:trm_webhook_deliveries,alias:twd"`

	ID         string    `bun:"id,pk"`
	Event      string    `bun:"event,notnull"`
	Outcome    string    `bun:"outcome,notnull"`
	Error      string    `bun:"error,notnull"`
	Payload    []byte    `bun:"payload"`
	ReceivedAt time.Time `bun:"received_at,nullzero,notnull,default:current_timestamp"`
}

func newDeliveryRecord(delivery webhooks.Delivery, now time.Time) *deliveryRecord {
	receivedAt := delivery.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	return &deliveryRecord{
		ID:         strings.TrimSpace(delivery.ID),
		Event:      strings.TrimSpace(delivery.Event),
		Outcome:    strings.TrimSpace(delivery.Outcome),
		Error:      delivery.Error,
		Payload:    append([]byte(nil), delivery.Payload...),
		ReceivedAt: receivedAt.UTC(),
	}
}

func (r *deliveryRecord) toDomain() webhooks.Delivery {
	if r == nil {
		return webhooks.Delivery{}
	}
	return webhooks.Delivery{
		ID:         r.ID,
		Event:      r.Event,
		Outcome:    r.Outcome,
		Error:      r.Error,
		Payload:    append([]byte(nil), r.Payload...),
		ReceivedAt: r.ReceivedAt.UTC(),
	}
}
