package facade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/coupon-core/internal/audit"
	"github.com/nerrad567/coupon-core/internal/auth"
	"github.com/nerrad567/coupon-core/internal/company"
	"github.com/nerrad567/coupon-core/internal/coupon"
	"github.com/nerrad567/coupon-core/internal/customer"
	"github.com/nerrad567/coupon-core/internal/infrastructure/database/dbtest"
)

var testToday = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2026, 10, 15+offset, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	svc   *Service
	audit *audit.SQLiteRepository
}

func setup(t *testing.T) fixture {
	t.Helper()
	_, pool := dbtest.Open(t, 2)
	auditRepo := audit.NewSQLiteRepository(pool)
	svc := New(Deps{
		Coupons:   coupon.NewSQLiteRepository(pool),
		Companies: company.NewSQLiteRepository(pool),
		Customers: customer.NewSQLiteRepository(pool),
		Audit:     auditRepo,
		Admin:     AdminCredentials{Name: "admin", Password: "admin1234"},
		Hasher:    &auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16},
		Now:       func() time.Time { return testToday },
	})
	return fixture{svc: svc, audit: auditRepo}
}

func validCoupon(title string) *coupon.Coupon {
	return &coupon.Coupon{
		Title:     title,
		StartDate: day(0),
		EndDate:   day(30),
		Amount:    2,
		Type:      coupon.TypeFood,
		Message:   "two for one",
		Price:     12,
	}
}

func TestLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.svc.Admin()

	comp, err := admin.CreateCompany(ctx, "Acme", "acme1234", "sales@acme.example")
	if err != nil {
		t.Fatalf("CreateCompany() error = %v", err)
	}
	cust, err := admin.CreateCustomer(ctx, "dana", "dana5678")
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}

	tests := []struct {
		name       string
		user, pass string
		clientType auth.ClientType
		wantID     int64
		wantErr    bool
	}{
		{"admin", "admin", "admin1234", auth.ClientAdmin, 0, false},
		{"admin wrong password", "admin", "nope", auth.ClientAdmin, 0, true},
		{"company", "Acme", "acme1234", auth.ClientCompany, comp.ID, false},
		{"company wrong password", "Acme", "acme9999", auth.ClientCompany, 0, true},
		{"company as customer", "Acme", "acme1234", auth.ClientCustomer, 0, true},
		{"customer", "dana", "dana5678", auth.ClientCustomer, cust.ID, false},
		{"unknown customer", "eli", "dana5678", auth.ClientCustomer, 0, true},
		{"unknown client type", "admin", "admin1234", "OWNER", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.svc.Login(ctx, tt.user, tt.pass, tt.clientType)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if p.ID != tt.wantID || p.Type != tt.clientType {
				t.Errorf("Login() = %+v, want id %d type %s", p, tt.wantID, tt.clientType)
			}
		})
	}
}

func TestAdmin_CompanyRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.svc.Admin()

	if _, err := admin.CreateCompany(ctx, "Acme", "acme1234", "a@acme.example"); err != nil {
		t.Fatalf("CreateCompany() error = %v", err)
	}

	tests := []struct {
		name, coName, pass, email string
		want                      error
	}{
		{"duplicate name", "Acme", "acme1234", "b@acme.example", ErrConflict},
		{"duplicate email", "Other", "acme1234", "a@acme.example", ErrConflict},
		{"short password", "Other", "ab12", "o@x.example", ErrInvalidInput},
		{"one digit", "Other", "abcdefg1", "o@x.example", ErrInvalidInput},
		{"symbol", "Other", "abc-1234", "o@x.example", ErrInvalidInput},
		{"bad email", "Other", "abcd1234", "not-an-email", ErrInvalidInput},
		{"empty name", " ", "abcd1234", "o@x.example", ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := admin.CreateCompany(ctx, tt.coName, tt.pass, tt.email); !errors.Is(err, tt.want) {
				t.Errorf("CreateCompany() error = %v, want %v", err, tt.want)
			}
		})
	}

	list, err := admin.ListCompanies(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("ListCompanies() = %d, %v, want 1 company", len(list), err)
	}
}

func TestAdmin_UpdateAndRemoveCompany(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.svc.Admin()

	acme, err := admin.CreateCompany(ctx, "Acme", "acme1234", "a@acme.example")
	if err != nil {
		t.Fatalf("CreateCompany() error = %v", err)
	}
	if _, err := admin.CreateCompany(ctx, "Bolt", "bolt1234", "b@bolt.example"); err != nil {
		t.Fatalf("CreateCompany() error = %v", err)
	}

	if _, err := admin.UpdateCompany(ctx, acme.ID, "newpw123", "b@bolt.example"); !errors.Is(err, ErrConflict) {
		t.Errorf("UpdateCompany() to taken email error = %v, want ErrConflict", err)
	}
	if _, err := admin.UpdateCompany(ctx, acme.ID, "newpw123", "new@acme.example"); err != nil {
		t.Fatalf("UpdateCompany() error = %v", err)
	}
	if _, err := f.svc.Login(ctx, "Acme", "newpw123", auth.ClientCompany); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
	if _, err := admin.UpdateCompany(ctx, 999, "newpw123", "z@z.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCompany() missing error = %v, want ErrNotFound", err)
	}

	cust, err := admin.CreateCustomer(ctx, "dana", "dana5678")
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	c := validCoupon("pizza")
	if err := f.svc.Company(acme.ID).CreateCoupon(ctx, c); err != nil {
		t.Fatalf("CreateCoupon() error = %v", err)
	}
	if err := f.svc.Customer(cust.ID).Purchase(ctx, c.ID); err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}

	if err := admin.RemoveCompany(ctx, acme.ID); err != nil {
		t.Fatalf("RemoveCompany() error = %v", err)
	}
	bought, err := f.svc.Customer(cust.ID).ListPurchased(ctx, coupon.Filter{})
	if err != nil || len(bought) != 0 {
		t.Errorf("ListPurchased() after RemoveCompany = %d, %v, want none", len(bought), err)
	}
	if _, err := admin.GetCompany(ctx, acme.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCompany() after remove error = %v, want ErrNotFound", err)
	}

	entries, err := f.audit.List(ctx, audit.Filter{EntityType: "company"})
	if err != nil {
		t.Fatalf("audit List() error = %v", err)
	}
	if entries.Total != 4 {
		t.Errorf("company audit entries = %d, want 4 (2 create, 1 update, 1 delete)", entries.Total)
	}
}

func TestAdmin_Customers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.svc.Admin()

	c, err := admin.CreateCustomer(ctx, "dana", "dana5678")
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	if _, err := admin.CreateCustomer(ctx, "dana", "dana5678"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate CreateCustomer() error = %v, want ErrConflict", err)
	}
	if err := admin.UpdateCustomer(ctx, c.ID, "short"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("UpdateCustomer() bad password error = %v, want ErrInvalidInput", err)
	}
	if err := admin.UpdateCustomer(ctx, c.ID, "fresh987"); err != nil {
		t.Fatalf("UpdateCustomer() error = %v", err)
	}
	if _, err := f.svc.Login(ctx, "dana", "fresh987", auth.ClientCustomer); err != nil {
		t.Errorf("Login() after update error = %v", err)
	}
	if err := admin.RemoveCustomer(ctx, c.ID); err != nil {
		t.Fatalf("RemoveCustomer() error = %v", err)
	}
	if err := admin.RemoveCustomer(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveCustomer() error = %v, want ErrNotFound", err)
	}
	if list, err := admin.ListCustomers(ctx); err != nil || len(list) != 0 {
		t.Errorf("ListCustomers() = %d, %v, want none", len(list), err)
	}
}

func TestCompany_Coupons(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.svc.Admin()

	acme, err := admin.CreateCompany(ctx, "Acme", "acme1234", "a@acme.example")
	if err != nil {
		t.Fatalf("CreateCompany() error = %v", err)
	}
	bolt, err := admin.CreateCompany(ctx, "Bolt", "bolt1234", "b@bolt.example")
	if err != nil {
		t.Fatalf("CreateCompany() error = %v", err)
	}
	mine, theirs := f.svc.Company(acme.ID), f.svc.Company(bolt.ID)

	c := validCoupon("pizza")
	if err := mine.CreateCoupon(ctx, c); err != nil {
		t.Fatalf("CreateCoupon() error = %v", err)
	}
	if err := theirs.CreateCoupon(ctx, validCoupon("pizza")); !errors.Is(err, ErrConflict) {
		t.Errorf("CreateCoupon() duplicate title error = %v, want ErrConflict", err)
	}

	invalid := []struct {
		name   string
		mutate func(*coupon.Coupon)
	}{
		{"empty title", func(c *coupon.Coupon) { c.Title = "" }},
		{"empty message", func(c *coupon.Coupon) { c.Message = "" }},
		{"negative price", func(c *coupon.Coupon) { c.Price = -1 }},
		{"negative amount", func(c *coupon.Coupon) { c.Amount = -1 }},
		{"unknown type", func(c *coupon.Coupon) { c.Type = "TOYS" }},
		{"ended yesterday", func(c *coupon.Coupon) { c.EndDate = day(-1) }},
		{"ends before start", func(c *coupon.Coupon) { c.StartDate = day(40) }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			bad := validCoupon("bad-" + tt.name)
			tt.mutate(bad)
			if err := mine.CreateCoupon(ctx, bad); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("CreateCoupon() error = %v, want ErrInvalidInput", err)
			}
		})
	}

	if _, err := theirs.GetCoupon(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCoupon() by other company error = %v, want ErrNotFound", err)
	}
	if err := theirs.RemoveCoupon(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveCoupon() by other company error = %v, want ErrNotFound", err)
	}

	updated, err := mine.UpdateCoupon(ctx, c.ID, day(60), 8)
	if err != nil {
		t.Fatalf("UpdateCoupon() error = %v", err)
	}
	if updated.Price != 8 || !updated.EndDate.Equal(day(60)) || updated.Amount != 2 {
		t.Errorf("UpdateCoupon() = %+v", updated)
	}
	if _, err := mine.UpdateCoupon(ctx, c.ID, day(-2), 8); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("UpdateCoupon() past end date error = %v, want ErrInvalidInput", err)
	}

	cheap := 10.0
	list, err := mine.ListCoupons(ctx, coupon.Filter{MaxPrice: &cheap})
	if err != nil || len(list) != 1 {
		t.Errorf("ListCoupons(max 10) = %d, %v, want 1", len(list), err)
	}
	if _, err := mine.ListCoupons(ctx, coupon.Filter{Type: "TOYS"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ListCoupons(bad type) error = %v, want ErrInvalidInput", err)
	}

	if err := mine.RemoveCoupon(ctx, c.ID); err != nil {
		t.Fatalf("RemoveCoupon() error = %v", err)
	}
	if _, err := mine.GetCoupon(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCoupon() after remove error = %v, want ErrNotFound", err)
	}
}

func TestCustomer_Purchase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.svc.Admin()

	acme, err := admin.CreateCompany(ctx, "Acme", "acme1234", "a@acme.example")
	if err != nil {
		t.Fatalf("CreateCompany() error = %v", err)
	}
	dana, err := admin.CreateCustomer(ctx, "dana", "dana5678")
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	eli, err := admin.CreateCustomer(ctx, "eli", "eli12345")
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}

	last := validCoupon("last")
	last.Amount = 1
	if err := f.svc.Company(acme.ID).CreateCoupon(ctx, last); err != nil {
		t.Fatalf("CreateCoupon() error = %v", err)
	}

	if err := f.svc.Customer(dana.ID).Purchase(ctx, last.ID); err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}

	tests := []struct {
		name     string
		customer int64
		couponID int64
		want     error
	}{
		{"again", dana.ID, last.ID, ErrPurchase},
		{"sold out", eli.ID, last.ID, ErrPurchase},
		{"missing", eli.ID, 999, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.svc.Customer(tt.customer).Purchase(ctx, tt.couponID); !errors.Is(err, tt.want) {
				t.Errorf("Purchase() error = %v, want %v", err, tt.want)
			}
		})
	}

	food := coupon.Filter{Type: coupon.TypeFood}
	if got, err := f.svc.Customer(dana.ID).ListPurchased(ctx, food); err != nil || len(got) != 1 {
		t.Errorf("ListPurchased(FOOD) = %d, %v, want 1", len(got), err)
	}
	sports := coupon.Filter{Type: coupon.TypeSports}
	if got, err := f.svc.Customer(dana.ID).ListPurchased(ctx, sports); err != nil || len(got) != 0 {
		t.Errorf("ListPurchased(SPORTS) = %d, %v, want 0", len(got), err)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"abcdef12", true},
		{"ab12cd34ef", true},
		{"abc12", false},
		{"abcdefgh123", false},
		{"abcdefg1", false},
		{"abcd 123", false},
		{"abcdé123", false},
		{"12345678", true},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err == nil) != tt.valid {
				t.Errorf("ValidatePassword(%q) error = %v, valid %v", tt.password, err, tt.valid)
			}
		})
	}
}
