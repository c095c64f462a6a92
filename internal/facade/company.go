package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/coupon-core/internal/company"
	"github.com/nerrad567/coupon-core/internal/coupon"
)

// CompanyFacade manages the coupons of one company.
type CompanyFacade struct {
	svc       *Service
	companyID int64
}

// Info returns the company's own record.
func (f *CompanyFacade) Info(ctx context.Context) (*company.Company, error) {
	c, err := f.svc.deps.Companies.GetByID(ctx, f.companyID)
	if err != nil {
		return nil, companyError(err)
	}
	return c, nil
}

// CreateCoupon validates c, checks its title is unused and stores it owned by
// this company. c.ID is set on success.
func (f *CompanyFacade) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	if c != nil {
		c.Title = strings.TrimSpace(c.Title)
	}
	if err := ValidateCoupon(c, f.svc.today()); err != nil {
		return err
	}

	repo := f.svc.deps.Coupons
	taken, err := repo.TitleExists(ctx, c.Title)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: coupon title %q is taken", ErrConflict, c.Title)
	}
	return repo.Create(ctx, c, f.companyID)
}

// RemoveCoupon deletes one of this company's coupons with all its links.
func (f *CompanyFacade) RemoveCoupon(ctx context.Context, couponID int64) error {
	if err := f.requireOwned(ctx, couponID); err != nil {
		return err
	}
	return couponError(f.svc.deps.Coupons.Delete(ctx, couponID))
}

// UpdateCoupon changes the end date and price of one of this company's
// coupons. Other fields keep their stored values.
func (f *CompanyFacade) UpdateCoupon(ctx context.Context, couponID int64, endDate time.Time, price float64) (*coupon.Coupon, error) {
	if err := f.requireOwned(ctx, couponID); err != nil {
		return nil, err
	}
	c, err := f.svc.deps.Coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, couponError(err)
	}

	problems := dateProblems(c.StartDate, endDate, f.svc.today())
	if price < 0 {
		problems = append(problems, "price cannot be negative")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}

	c.EndDate = endDate
	c.Price = price
	if err := f.svc.deps.Coupons.Update(ctx, c); err != nil {
		return nil, couponError(err)
	}
	return c, nil
}

// GetCoupon returns one of this company's coupons.
func (f *CompanyFacade) GetCoupon(ctx context.Context, couponID int64) (*coupon.Coupon, error) {
	if err := f.requireOwned(ctx, couponID); err != nil {
		return nil, err
	}
	c, err := f.svc.deps.Coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, couponError(err)
	}
	return c, nil
}

// ListCoupons returns this company's coupons narrowed by filter.
func (f *CompanyFacade) ListCoupons(ctx context.Context, filter coupon.Filter) ([]coupon.Coupon, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return f.svc.deps.Coupons.ListByCompany(ctx, f.companyID, filter)
}

// requireOwned reports coupons of other companies as not found.
func (f *CompanyFacade) requireOwned(ctx context.Context, couponID int64) error {
	owned, err := f.svc.deps.Coupons.OwnedBy(ctx, f.companyID, couponID)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("%w: coupon %d", ErrNotFound, couponID)
	}
	return nil
}

func validateFilter(filter coupon.Filter) error {
	if filter.Type != "" && !filter.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, filter.Type)
	}
	if filter.MaxPrice != nil && *filter.MaxPrice < 0 {
		return fmt.Errorf("%w: max price cannot be negative", ErrInvalidInput)
	}
	return nil
}

func couponError(err error) error {
	if errors.Is(err, coupon.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
