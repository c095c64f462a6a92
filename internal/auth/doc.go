// Package auth provides credential hashing and session tokens for the coupon
// system's three client types (admin, company, customer).
//
// Passwords are hashed with Argon2id and stored in PHC string format.
// Sessions are short-lived HS256 JWTs whose subject is the client ID and whose
// client_type claim selects the facade a request may use. There is no
// refresh flow; clients log in again when the token expires.
package auth
