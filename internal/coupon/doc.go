// Package coupon stores coupons and their links to companies and customers.
//
// Every repository method leases exactly one connection from the pool for its
// duration and returns it before the method returns, so no caller ever holds
// a connection between calls. Multi-statement changes (create with owner
// link, purchase, delete) run in a transaction on the leased connection.
//
// The expiry methods FindExpired, RemoveLinkage and RemoveRecord are used by
// the expiration sweep, one lease per call.
package coupon
