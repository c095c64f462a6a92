package facade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/coupon-core/internal/coupon"
	"github.com/nerrad567/coupon-core/internal/customer"
)

// CustomerFacade purchases and lists coupons for one customer.
type CustomerFacade struct {
	svc        *Service
	customerID int64
}

// Info returns the customer's own record.
func (f *CustomerFacade) Info(ctx context.Context) (*customer.Customer, error) {
	c, err := f.svc.deps.Customers.GetByID(ctx, f.customerID)
	if err != nil {
		return nil, customerError(err)
	}
	return c, nil
}

// Purchase buys one unit of a coupon. A missing coupon returns ErrNotFound;
// an expired, sold out or already owned coupon returns ErrPurchase.
func (f *CustomerFacade) Purchase(ctx context.Context, couponID int64) error {
	err := f.svc.deps.Coupons.Purchase(ctx, f.customerID, couponID, f.svc.today())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, coupon.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, coupon.ErrExpired), errors.Is(err, coupon.ErrSoldOut), errors.Is(err, coupon.ErrAlreadyPurchased):
		return fmt.Errorf("%w: %w", ErrPurchase, err)
	}
	return err
}

// ListPurchased returns the customer's coupons narrowed by filter.
// EndsBy is ignored.
func (f *CustomerFacade) ListPurchased(ctx context.Context, filter coupon.Filter) ([]coupon.Coupon, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	filter.EndsBy = time.Time{}
	return f.svc.deps.Coupons.ListByCustomer(ctx, f.customerID, filter)
}
