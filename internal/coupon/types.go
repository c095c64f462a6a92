package coupon

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of coupon dates.
const DateLayout = "2006-01-02"

// Type categorises a coupon.
type Type string

// Coupon types.
const (
	TypeRestaurants Type = "RESTAURANTS"
	TypeElectricity Type = "ELECTRICITY"
	TypeFood        Type = "FOOD"
	TypeHealth      Type = "HEALTH"
	TypeSports      Type = "SPORTS"
	TypeCamping     Type = "CAMPING"
	TypeTravelling  Type = "TRAVELLING"
)

// validTypes is the set of accepted coupon types.
var validTypes = map[Type]bool{
	TypeRestaurants: true,
	TypeElectricity: true,
	TypeFood:        true,
	TypeHealth:      true,
	TypeSports:      true,
	TypeCamping:     true,
	TypeTravelling:  true,
}

// ParseType converts a case-insensitive name to a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !validTypes[t] {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Valid reports whether t is a known coupon type.
func (t Type) Valid() bool {
	return validTypes[t]
}

// Linkage names a join table that references coupons.
type Linkage string

// Join tables holding coupon references. A coupon row can only be removed
// once both are clear of it.
const (
	LinkCompany  Linkage = "company_coupon"
	LinkCustomer Linkage = "customer_coupon"
)

// Linkages lists every join table referencing coupons.
var Linkages = []Linkage{LinkCompany, LinkCustomer}

// Coupon is a purchasable offer issued by a company.
// StartDate and EndDate are calendar days; only their date part is stored.
type Coupon struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Amount    int       `json:"amount"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	Price     float64   `json:"price"`
	Image     string    `json:"image"`
}

// ExpiredOn reports whether the coupon's last valid day is before day.
func (c *Coupon) ExpiredOn(day time.Time) bool {
	return c.EndDate.Format(DateLayout) < day.Format(DateLayout)
}

// Filter narrows coupon listings. Zero values mean "no constraint".
type Filter struct {
	Type     Type
	MaxPrice *float64

	// EndsBy keeps coupons whose end date is on or before this day.
	EndsBy time.Time
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}
