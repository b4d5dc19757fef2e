// Package reports computes dashboard figures for merchants and drivers.
package reports

import (
	"context"
	"fmt"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DriverCommission is the share of delivered order totals paid to drivers.
var DriverCommission = decimal.RequireFromString("0.10")

type Reports struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Reports {
	return &Reports{db: db, now: time.Now}
}

// MerchantStats summarises the orders of a merchant's foods. Revenue is
// reported twice over delivered orders: from the stored order totals, which
// keep the price paid at checkout, and from the current food price.
type MerchantStats struct {
	TotalOrders            int64                        `json:"totalOrders"`
	PendingOrders          int64                        `json:"pendingOrders"`
	AcceptedOrders         int64                        `json:"acceptedOrders"`
	PreparingOrders        int64                        `json:"preparingOrders"`
	ReadyOrders            int64                        `json:"readyOrders"`
	CompletedOrders        int64                        `json:"completedOrders"`
	ByStatus               map[models.OrderStatus]int64 `json:"byStatus"`
	RevenueFromOrderTotals decimal.Decimal              `json:"revenueFromOrderTotals"`
	RevenueFromFoodPrice   decimal.Decimal              `json:"revenueFromFoodPrice"`
}

type DriverStats struct {
	TotalDeliveries  int64           `json:"totalDeliveries"`
	ActiveDeliveries int64           `json:"activeDeliveries"`
	TodayDeliveries  int64           `json:"todayDeliveries"`
	TotalEarnings    decimal.Decimal `json:"totalEarnings"`
}

func merchantScope(b sq.SelectBuilder, actor models.Actor) sq.SelectBuilder {
	b = b.From("orders o").LeftJoin("foods f ON f.id = o.food_id")
	if actor.IsAdmin() {
		return b
	}
	return b.Where(sq.Or{
		sq.Eq{"f.created_by": actor.ID},
		sq.Eq{"o.merchant_id": actor.ID},
	})
}

func (r *Reports) raw(ctx context.Context, b sq.SelectBuilder, dest any) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return r.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error
}

func (r *Reports) MerchantStats(ctx context.Context, actor models.Actor) (*MerchantStats, error) {
	if actor.Role != models.RoleMerchant && !actor.IsAdmin() {
		return nil, apperr.Forbidden("merchant role required")
	}

	var counts []struct {
		Status models.OrderStatus
		Count  int64
	}
	q := merchantScope(sq.Select("o.status AS status", "COUNT(*) AS count"), actor).GroupBy("o.status")
	if err := r.raw(ctx, q, &counts); err != nil {
		return nil, fmt.Errorf("count merchant orders: %w", err)
	}

	stats := &MerchantStats{ByStatus: make(map[models.OrderStatus]int64, len(models.AllStatuses))}
	for _, s := range models.AllStatuses {
		stats.ByStatus[s] = 0
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.TotalOrders += c.Count
	}
	stats.PendingOrders = stats.ByStatus[models.StatusPending]
	stats.AcceptedOrders = stats.ByStatus[models.StatusAccepted]
	stats.PreparingOrders = stats.ByStatus[models.StatusPreparing]
	stats.ReadyOrders = stats.ByStatus[models.StatusReady]
	stats.CompletedOrders = stats.ByStatus[models.StatusDelivered]

	var revenue struct {
		FromTotals decimal.Decimal
		FromPrice  decimal.Decimal
	}
	q = merchantScope(sq.Select(
		"COALESCE(SUM(o.total_amount), 0) AS from_totals",
		"COALESCE(SUM(f.price * o.quantity), 0) AS from_price",
	), actor).Where(sq.Eq{"o.status": string(models.StatusDelivered)})
	if err := r.raw(ctx, q, &revenue); err != nil {
		return nil, fmt.Errorf("sum merchant revenue: %w", err)
	}
	stats.RevenueFromOrderTotals = revenue.FromTotals.Round(2)
	stats.RevenueFromFoodPrice = revenue.FromPrice.Round(2)

	return stats, nil
}

func (r *Reports) DriverStats(ctx context.Context, actor models.Actor) (*DriverStats, error) {
	if actor.Role != models.RoleDriver && !actor.IsAdmin() {
		return nil, apperr.Forbidden("driver role required")
	}

	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var row struct {
		Delivered int64
		Active    int64
		Today     int64
		Earned    decimal.Decimal
	}
	delivered := string(models.StatusDelivered)
	q := sq.Select().
		Column("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS delivered", delivered).
		Column("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active", string(models.StatusOutForDelivery)).
		Column("COALESCE(SUM(CASE WHEN status = ? AND delivered_at >= ? THEN 1 ELSE 0 END), 0) AS today", delivered, today).
		Column("COALESCE(SUM(CASE WHEN status = ? THEN total_amount ELSE 0 END), 0) AS earned", delivered).
		From("orders").
		Where(sq.Eq{"driver_id": actor.ID})
	if err := r.raw(ctx, q, &row); err != nil {
		return nil, fmt.Errorf("driver stats: %w", err)
	}

	return &DriverStats{
		TotalDeliveries:  row.Delivered,
		ActiveDeliveries: row.Active,
		TodayDeliveries:  row.Today,
		TotalEarnings:    row.Earned.Mul(DriverCommission).Round(2),
	}, nil
}
