package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-trm/webhooks"
)

const deliveryCacheKeyPrefix = "go-trm::webhook_delivery::v1"

// DeliveryLog is the read and write surface shared by DeliveryLogStore and
// CachedDeliveryLog.
type DeliveryLog interface {
	webhooks.DeliveryRecorder
	Get(ctx context.Context, id string) (webhooks.Delivery, error)
	ListByEvent(ctx context.Context, event string, limit int) ([]webhooks.Delivery, error)
}

// CachedDeliveryLog serves Get from a cache and invalidates the entry
// whenever the same delivery id is recorded again. Lists always hit the base.
type CachedDeliveryLog struct {
	base  DeliveryLog
	cache repositorycache.CacheService
}

func NewCachedDeliveryLog(base DeliveryLog, cacheService repositorycache.CacheService) (*CachedDeliveryLog, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base delivery log is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: delivery cache service is required")
	}
	return &CachedDeliveryLog{base: base, cache: cacheService}, nil
}

// DeliveryCacheKey returns go-trm::webhook_delivery::v1::<id> with the id
// URL-path escaped.
func DeliveryCacheKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("sqlstore: delivery id is required")
	}
	return strings.Join([]string{deliveryCacheKeyPrefix, url.PathEscape(id)}, "::"), nil
}

func (s *CachedDeliveryLog) Get(ctx context.Context, id string) (webhooks.Delivery, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return webhooks.Delivery{}, fmt.Errorf("sqlstore: cached delivery log is not configured")
	}
	cacheKey, err := DeliveryCacheKey(id)
	if err != nil {
		return webhooks.Delivery{}, err
	}
	delivery, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (webhooks.Delivery, error) {
		fetched, fetchErr := s.base.Get(ctx, strings.TrimSpace(id))
		if fetchErr != nil {
			return webhooks.Delivery{}, fetchErr
		}
		return cloneDelivery(fetched), nil
	})
	if err != nil {
		return webhooks.Delivery{}, err
	}
	return cloneDelivery(delivery), nil
}

func (s *CachedDeliveryLog) RecordDelivery(ctx context.Context, delivery webhooks.Delivery) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached delivery log is not configured")
	}
	if err := s.base.RecordDelivery(ctx, delivery); err != nil {
		return err
	}
	if strings.TrimSpace(delivery.ID) == "" {
		return nil
	}
	return s.Invalidate(ctx, delivery.ID)
}

func (s *CachedDeliveryLog) ListByEvent(ctx context.Context, event string, limit int) ([]webhooks.Delivery, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached delivery log is not configured")
	}
	return s.base.ListByEvent(ctx, event, limit)
}

func (s *CachedDeliveryLog) Invalidate(ctx context.Context, id string) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached delivery log is not configured")
	}
	cacheKey, err := DeliveryCacheKey(id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneDelivery(delivery webhooks.Delivery) webhooks.Delivery {
	cloned := delivery
	cloned.Payload = append([]byte(nil), delivery.Payload...)
	cloned.ReceivedAt = delivery.ReceivedAt.UTC()
	return cloned
}
