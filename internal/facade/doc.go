// Package facade holds the business rules of the coupon system, one facade per
// client type.
//
// Service.Login authenticates an admin, company or customer. The returned
// principal selects a facade: AdminFacade manages companies and customers,
// CompanyFacade manages one company's coupons and CustomerFacade purchases
// and lists coupons for one customer. Facades validate input, enforce
// uniqueness and ownership, and translate store errors into the sentinels in
// errors.go.
package facade
