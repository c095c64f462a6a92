package facade

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/coupon-core/internal/audit"
	"github.com/nerrad567/coupon-core/internal/auth"
	"github.com/nerrad567/coupon-core/internal/company"
	"github.com/nerrad567/coupon-core/internal/coupon"
	"github.com/nerrad567/coupon-core/internal/customer"
)

// Logger defines the logging interface for the facades.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AdminCredentials are the administrator's configured name and password.
type AdminCredentials struct {
	Name     string
	Password string
}

// Deps are the stores and settings a Service works with.
type Deps struct {
	Coupons   coupon.Repository
	Companies company.Repository
	Customers customer.Repository

	// Audit records admin mutations. Optional.
	Audit audit.Repository

	Admin AdminCredentials

	// Hasher hashes new passwords. Default: auth.DefaultParams.
	Hasher *auth.Params

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

// Service authenticates clients and hands out per-client facades.
type Service struct {
	deps   Deps
	logger Logger
}

// New creates a Service.
func New(deps Deps) *Service {
	if deps.Hasher == nil {
		p := auth.DefaultParams
		deps.Hasher = &p
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Login checks credentials for the given client type and returns the
// authenticated principal. Any mismatch returns ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, name, password string, clientType auth.ClientType) (auth.Principal, error) {
	switch clientType {
	case auth.ClientAdmin:
		if s.deps.Admin.Password == "" ||
			subtle.ConstantTimeCompare([]byte(name), []byte(s.deps.Admin.Name)) != 1 ||
			subtle.ConstantTimeCompare([]byte(password), []byte(s.deps.Admin.Password)) != 1 {
			return auth.Principal{}, ErrInvalidCredentials
		}
		return auth.Principal{Name: s.deps.Admin.Name, Type: auth.ClientAdmin}, nil

	case auth.ClientCompany:
		c, err := s.deps.Companies.GetByName(ctx, name)
		if err != nil {
			return auth.Principal{}, s.loginLookupError(err, company.ErrNotFound)
		}
		if err := s.checkPassword(password, c.PasswordHash); err != nil {
			return auth.Principal{}, err
		}
		return auth.Principal{ID: c.ID, Name: c.Name, Type: auth.ClientCompany}, nil

	case auth.ClientCustomer:
		c, err := s.deps.Customers.GetByName(ctx, name)
		if err != nil {
			return auth.Principal{}, s.loginLookupError(err, customer.ErrNotFound)
		}
		if err := s.checkPassword(password, c.PasswordHash); err != nil {
			return auth.Principal{}, err
		}
		return auth.Principal{ID: c.ID, Name: c.Name, Type: auth.ClientCustomer}, nil
	}
	return auth.Principal{}, fmt.Errorf("%w: %w %q", ErrInvalidCredentials, auth.ErrUnknownClientType, clientType)
}

func (s *Service) loginLookupError(err, notFound error) error {
	if errors.Is(err, notFound) {
		return ErrInvalidCredentials
	}
	return fmt.Errorf("looking up client: %w", err)
}

func (s *Service) checkPassword(password, hash string) error {
	ok, err := auth.VerifyPassword(password, hash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "error", err)
		return ErrInvalidCredentials
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// Admin returns the administrator facade.
func (s *Service) Admin() *AdminFacade {
	return &AdminFacade{svc: s}
}

// Company returns the facade for the company with id.
func (s *Service) Company(id int64) *CompanyFacade {
	return &CompanyFacade{svc: s, companyID: id}
}

// Customer returns the facade for the customer with id.
func (s *Service) Customer(id int64) *CustomerFacade {
	return &CustomerFacade{svc: s, customerID: id}
}

func (s *Service) today() time.Time {
	return s.deps.Now()
}

// record writes an audit entry. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, action, entityType string, entityID int64, details map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	err := s.deps.Audit.Create(ctx, &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   strconv.FormatInt(entityID, 10),
		Actor:      s.deps.Admin.Name,
		Details:    details,
	})
	if err != nil {
		s.logger.Warn("audit write failed", "action", action, "entity_type", entityType, "error", err)
	}
}
