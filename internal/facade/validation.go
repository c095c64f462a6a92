package facade

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/nerrad567/coupon-core/internal/coupon"
)

// Validation constants.
const (
	minPasswordLength = 8
	maxPasswordLength = 10
	minPasswordDigits = 2
	maxNameLength     = 100
	maxTitleLength    = 100
	maxMessageLength  = 1024
)

// ValidatePassword checks the account password rules: 8 to 10 characters,
// ASCII letters and digits only, at least two digits.
func ValidatePassword(password string) error {
	if n := len(password); n < minPasswordLength || n > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	digits := 0
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return fmt.Errorf("%w: password may contain only letters and digits", ErrInvalidInput)
		case unicode.IsDigit(r):
			digits++
		case !unicode.IsLetter(r):
			return fmt.Errorf("%w: password may contain only letters and digits", ErrInvalidInput)
		}
	}
	if digits < minPasswordDigits {
		return fmt.Errorf("%w: password must contain at least %d digits", ErrInvalidInput, minPasswordDigits)
	}
	return nil
}

// ValidateName checks a company or customer name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLength)
	}
	return nil
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
	}
	return nil
}

// ValidateCoupon checks a new coupon against today. Every problem is reported.
func ValidateCoupon(c *coupon.Coupon, today time.Time) error {
	if c == nil {
		return fmt.Errorf("%w: coupon is nil", ErrInvalidInput)
	}

	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title cannot be empty")
	} else if len(c.Title) > maxTitleLength {
		errs = append(errs, fmt.Sprintf("title exceeds %d characters", maxTitleLength))
	}
	if strings.TrimSpace(c.Message) == "" {
		errs = append(errs, "message cannot be empty")
	} else if len(c.Message) > maxMessageLength {
		errs = append(errs, fmt.Sprintf("message exceeds %d characters", maxMessageLength))
	}
	if !c.Type.Valid() {
		errs = append(errs, fmt.Sprintf("unknown type %q", c.Type))
	}
	if c.Price < 0 {
		errs = append(errs, "price cannot be negative")
	}
	if c.Amount < 0 {
		errs = append(errs, "amount cannot be negative")
	}
	errs = append(errs, dateProblems(c.StartDate, c.EndDate, today)...)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(errs, "; "))
	}
	return nil
}

// dateProblems checks that end is set, not before today and not before start.
func dateProblems(start, end, today time.Time) []string {
	var errs []string
	if end.IsZero() {
		return append(errs, "end date is required")
	}
	if end.Format(coupon.DateLayout) < today.Format(coupon.DateLayout) {
		errs = append(errs, "end date is in the past")
	}
	if !start.IsZero() && end.Format(coupon.DateLayout) < start.Format(coupon.DateLayout) {
		errs = append(errs, "end date is before start date")
	}
	return errs
}
