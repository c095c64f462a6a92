package system

import (
	"context"
	"time"

	"github.com/nerrad567/coupon-core/internal/coupon"
	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
	"github.com/nerrad567/coupon-core/internal/sweep"
)

// CouponExpiry adapts the coupon repository to sweep.DataAccess.
type CouponExpiry struct {
	repo *coupon.SQLiteRepository
}

// NewCouponExpiry builds the sweep's data access over pool. It has the
// DataAccessFunc signature.
func NewCouponExpiry(pool *database.Pool) sweep.DataAccess {
	return &CouponExpiry{repo: coupon.NewSQLiteRepository(pool)}
}

// CouponLinkages returns the join tables the sweep clears before removing a coupon.
func CouponLinkages() []string {
	kinds := make([]string, len(coupon.Linkages))
	for i, l := range coupon.Linkages {
		kinds[i] = string(l)
	}
	return kinds
}

// FindExpired returns coupons whose end date is before the day of now.
func (e *CouponExpiry) FindExpired(ctx context.Context, now time.Time) ([]sweep.Record, error) {
	coupons, err := e.repo.FindExpired(ctx, now)
	if err != nil {
		return nil, err
	}
	records := make([]sweep.Record, len(coupons))
	for i, c := range coupons {
		records[i] = sweep.Record{ID: c.ID, Label: c.Title, EndDate: c.EndDate}
	}
	return records, nil
}

// RemoveLinkage removes the coupon's rows from one join table.
func (e *CouponExpiry) RemoveLinkage(ctx context.Context, kind string, id int64) error {
	return e.repo.RemoveLinkage(ctx, coupon.Linkage(kind), id)
}

// RemoveRecord removes the coupon row.
func (e *CouponExpiry) RemoveRecord(ctx context.Context, id int64) error {
	return e.repo.RemoveRecord(ctx, id)
}
