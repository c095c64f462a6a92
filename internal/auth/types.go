package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ClientType is the kind of account a session belongs to.
type ClientType string

const (
	// ClientAdmin is the single administrator configured in the security section.
	ClientAdmin ClientType = "ADMIN"

	// ClientCompany is a company issuing coupons.
	ClientCompany ClientType = "COMPANY"

	// ClientCustomer is a customer purchasing coupons.
	ClientCustomer ClientType = "CUSTOMER"
)

// ClientTypes lists every valid client type.
var ClientTypes = []ClientType{ClientAdmin, ClientCompany, ClientCustomer}

// Valid reports whether c is a known client type.
func (c ClientType) Valid() bool {
	for _, v := range ClientTypes {
		if c == v {
			return true
		}
	}
	return false
}

// ParseClientType parses a client type case-insensitively.
func ParseClientType(s string) (ClientType, error) {
	c := ClientType(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownClientType, s)
	}
	return c, nil
}

// Principal identifies an authenticated client. Admin sessions have ID 0.
type Principal struct {
	ID   int64      `json:"id"`
	Name string     `json:"name"`
	Type ClientType `json:"client_type"`
}

// Auth errors.
var (
	ErrTokenInvalid      = errors.New("auth: invalid token")
	ErrUnknownClientType = errors.New("auth: unknown client type")
	ErrInvalidHash       = errors.New("auth: invalid password hash")
)
