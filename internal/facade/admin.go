package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/coupon-core/internal/audit"
	"github.com/nerrad567/coupon-core/internal/company"
	"github.com/nerrad567/coupon-core/internal/customer"
)

// AdminFacade manages companies and customers.
type AdminFacade struct {
	svc *Service
}

// CreateCompany registers a company. Name and email must be unused.
func (a *AdminFacade) CreateCompany(ctx context.Context, name, password, email string) (*company.Company, error) {
	name = strings.TrimSpace(name)
	if err := errors.Join(ValidateName(name), ValidatePassword(password), ValidateEmail(email)); err != nil {
		return nil, err
	}

	repo := a.svc.deps.Companies
	taken, err := repo.NameExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: company name %q is taken", ErrConflict, name)
	}
	if err := a.checkEmail(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := a.svc.deps.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	c := &company.Company{Name: name, PasswordHash: hash, Email: email}
	if err := repo.Create(ctx, c); err != nil {
		return nil, err
	}

	a.svc.record(ctx, audit.ActionCreate, "company", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

func (a *AdminFacade) checkEmail(ctx context.Context, email string, exceptID int64) error {
	taken, err := a.svc.deps.Companies.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: email %q is taken", ErrConflict, email)
	}
	return nil
}

// RemoveCompany deletes a company and every coupon it issued, including
// customers' purchases of those coupons.
func (a *AdminFacade) RemoveCompany(ctx context.Context, id int64) error {
	removed, err := a.svc.deps.Companies.Delete(ctx, id)
	if err != nil {
		return companyError(err)
	}
	a.svc.record(ctx, audit.ActionDelete, "company", id, map[string]any{"coupons_removed": removed})
	return nil
}

// UpdateCompany changes a company's password and email. The name is fixed.
func (a *AdminFacade) UpdateCompany(ctx context.Context, id int64, password, email string) (*company.Company, error) {
	if err := errors.Join(ValidatePassword(password), ValidateEmail(email)); err != nil {
		return nil, err
	}

	c, err := a.svc.deps.Companies.GetByID(ctx, id)
	if err != nil {
		return nil, companyError(err)
	}
	if err := a.checkEmail(ctx, email, id); err != nil {
		return nil, err
	}
	hash, err := a.svc.deps.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	c.PasswordHash = hash
	c.Email = email
	if err := a.svc.deps.Companies.Update(ctx, c); err != nil {
		return nil, companyError(err)
	}

	a.svc.record(ctx, audit.ActionUpdate, "company", id, map[string]any{"email": email})
	return c, nil
}

// GetCompany returns one company.
func (a *AdminFacade) GetCompany(ctx context.Context, id int64) (*company.Company, error) {
	c, err := a.svc.deps.Companies.GetByID(ctx, id)
	if err != nil {
		return nil, companyError(err)
	}
	return c, nil
}

// ListCompanies returns every company.
func (a *AdminFacade) ListCompanies(ctx context.Context) ([]company.Company, error) {
	return a.svc.deps.Companies.List(ctx)
}

// CreateCustomer registers a customer. The name must be unused.
func (a *AdminFacade) CreateCustomer(ctx context.Context, name, password string) (*customer.Customer, error) {
	name = strings.TrimSpace(name)
	if err := errors.Join(ValidateName(name), ValidatePassword(password)); err != nil {
		return nil, err
	}

	repo := a.svc.deps.Customers
	taken, err := repo.NameExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: customer name %q is taken", ErrConflict, name)
	}

	hash, err := a.svc.deps.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	c := &customer.Customer{Name: name, PasswordHash: hash}
	if err := repo.Create(ctx, c); err != nil {
		return nil, err
	}

	a.svc.record(ctx, audit.ActionCreate, "customer", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// RemoveCustomer deletes a customer and its purchases.
func (a *AdminFacade) RemoveCustomer(ctx context.Context, id int64) error {
	if err := a.svc.deps.Customers.Delete(ctx, id); err != nil {
		return customerError(err)
	}
	a.svc.record(ctx, audit.ActionDelete, "customer", id, nil)
	return nil
}

// UpdateCustomer changes a customer's password. The name is fixed.
func (a *AdminFacade) UpdateCustomer(ctx context.Context, id int64, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := a.svc.deps.Hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := a.svc.deps.Customers.UpdatePassword(ctx, id, hash); err != nil {
		return customerError(err)
	}
	a.svc.record(ctx, audit.ActionUpdate, "customer", id, nil)
	return nil
}

// GetCustomer returns one customer.
func (a *AdminFacade) GetCustomer(ctx context.Context, id int64) (*customer.Customer, error) {
	c, err := a.svc.deps.Customers.GetByID(ctx, id)
	if err != nil {
		return nil, customerError(err)
	}
	return c, nil
}

// ListCustomers returns every customer.
func (a *AdminFacade) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	return a.svc.deps.Customers.List(ctx)
}

func companyError(err error) error {
	if errors.Is(err, company.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func customerError(err error) error {
	if errors.Is(err, customer.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
