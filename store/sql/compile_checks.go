package sqlstore

import "github.com/goliatone/go-trm/webhooks"

var (
	_ webhooks.DeliveryRecorder = (*DeliveryLogStore)(nil)
	_ webhooks.DeliveryRecorder = (*CachedDeliveryLog)(nil)
	_ DeliveryLog               = (*DeliveryLogStore)(nil)
	_ DeliveryLog               = (*CachedDeliveryLog)(nil)
)
