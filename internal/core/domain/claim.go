package domain

import "time"

// Claim is the identity and privilege data extracted from a validated
// session token. It is an immutable value: IsAdmin reflects the user record
// at issuance time and is trusted for the lifetime of the token.
type Claim struct {
	Subject   string
	IsAdmin   bool
	ExpiresAt time.Time
}
