// Package services holds the marketplace core: accounts, catalog, carts, the
// order lifecycle and delivery tracking. Every operation takes the verified
// caller as a models.Actor and returns apperr errors for caller mistakes.
package services

import (
	"time"

	"food-marketplace-api/metrics"
	"food-marketplace-api/notify"

	"gorm.io/gorm"
)

// base is shared by every service of a Services bundle so that carts, orders
// and tracking use the same locks.
type base struct {
	db       *gorm.DB
	locker   *KeyedMutex
	notifier notify.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time

	// locations is optional.
	locations LocationPublisher
}

type option func(*base)

// WithNotifier sets the sink for user notifications.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(n notify.Notifier) option {
	return func(b *base) {
		b.notifier = n
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithMetrics(m *metrics.Metrics) option {
	return func(b *base) {
		b.metrics = m
	}
}

// WithClock overrides the time source used for timestamps.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(b *base) {
		b.now = now
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocker(l *KeyedMutex) option {
	return func(b *base) {
		b.locker = l
	}
}

type Services struct {
	Users    *UserService
	Catalog  *CatalogService
	Carts    *CartService
	Orders   *OrderService
	Tracking *TrackingService
}

func New(db *gorm.DB, opts ...option) *Services {
	b := &base{
		db:       db,
		locker:   NewKeyedMutex(),
		notifier: notify.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	return &Services{
		Users:    &UserService{base: b},
		Catalog:  &CatalogService{base: b},
		Carts:    &CartService{base: b},
		Orders:   &OrderService{base: b},
		Tracking: &TrackingService{base: b},
	}
}
