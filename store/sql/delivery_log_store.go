package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-trm/webhooks"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500

	deliveryEventIndex = "idx_trm_webhook_deliveries_event_received"
)

// DeliveryLogStore persists webhook deliveries recorded by a
// webhooks.Dispatcher.
type DeliveryLogStore struct {
	db   *bun.DB
	repo repository.Repository[*deliveryRecord]
	now  func() time.Time
}

func NewDeliveryLogStore(db *bun.DB) (*DeliveryLogStore, error) {
	if db == nil {
		return nil, storeError("sqlstore: bun db is required", goerrors.CategoryBadInput, nil)
	}
	repo := repository.NewRepository[*deliveryRecord](db, deliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, storeWrapError(err, "sqlstore: invalid delivery repository wiring", nil)
		}
	}
	return &DeliveryLogStore{db: db, repo: repo, now: time.Now}, nil
}

// NewDeliveryLogStoreFromPersistence accepts a *bun.DB or any client that
// exposes DB() *bun.DB, such as a go-persistence-bun client.
func NewDeliveryLogStoreFromPersistence(client any) (*DeliveryLogStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewDeliveryLogStore(db)
}

// EnsureSchema creates the delivery table and its event index when they do
// not exist. Deployments that run the embedded migrations do not need it.
func (s *DeliveryLogStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return storeError("sqlstore: delivery log store is not configured", goerrors.CategoryInternal, nil)
	}
	if _, err := s.db.NewCreateTable().
		Model((*deliveryRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return storeWrapError(err, "sqlstore: create delivery table", nil)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*deliveryRecord)(nil)).
		Index(deliveryEventIndex).
		IfNotExists().
		Column("event", "received_at").
		Exec(ctx); err != nil {
		return storeWrapError(err, "sqlstore: create delivery index", nil)
	}
	return nil
}

func (s *DeliveryLogStore) RecordDelivery(ctx context.Context, delivery webhooks.Delivery) error {
	if s == nil || s.repo == nil {
		return storeError("sqlstore: delivery log store is not configured", goerrors.CategoryInternal, nil)
	}
	if strings.TrimSpace(delivery.Outcome) == "" {
		return storeError("sqlstore: delivery outcome is required", goerrors.CategoryBadInput, map[string]any{
			"delivery_id": delivery.ID,
		})
	}
	record := newDeliveryRecord(delivery, s.now().UTC())
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		return storeWrapError(err, "sqlstore: record delivery", map[string]any{
			"delivery_id": record.ID,
			"event":       record.Event,
		})
	}
	return nil
}

func (s *DeliveryLogStore) Get(ctx context.Context, id string) (webhooks.Delivery, error) {
	if s == nil || s.db == nil {
		return webhooks.Delivery{}, storeError("sqlstore: delivery log store is not configured", goerrors.CategoryInternal, nil)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return webhooks.Delivery{}, storeError("sqlstore: delivery id is required", goerrors.CategoryBadInput, nil)
	}

	record := &deliveryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return webhooks.Delivery{}, storeError("sqlstore: delivery not found", goerrors.CategoryNotFound, map[string]any{
				"delivery_id": id,
			})
		}
		return webhooks.Delivery{}, storeWrapError(err, "sqlstore: load delivery", map[string]any{"delivery_id": id})
	}
	return record.toDomain(), nil
}

// ListByEvent returns the newest deliveries for event. An empty event lists
// deliveries of every event.
func (s *DeliveryLogStore) ListByEvent(ctx context.Context, event string, limit int) ([]webhooks.Delivery, error) {
	if s == nil || s.repo == nil {
		return nil, storeError("sqlstore: delivery log store is not configured", goerrors.CategoryInternal, nil)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	selectors := []repository.SelectCriteria{
		repository.OrderBy("received_at DESC"),
		repository.SelectPaginate(limit, 0),
	}
	if event = strings.TrimSpace(event); event != "" {
		selectors = append(selectors, repository.SelectBy("event", "=", event))
	}

	records, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, storeWrapError(err, "sqlstore: list deliveries", map[string]any{"event": event})
	}
	deliveries := make([]webhooks.Delivery, 0, len(records))
	for _, record := range records {
		deliveries = append(deliveries, record.toDomain())
	}
	return deliveries, nil
}
