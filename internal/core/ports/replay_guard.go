package ports

import "context"

// ReplayGuard abstracts the idempotency store (Redis) used to detect
// retried purchase requests.
type ReplayGuard interface {
	// Claim atomically records the key and reports whether this caller
	// won it. A false result means another request holding the same key
	// already claimed it within the replay window, so two requests
	// sharing a key can never both proceed.
	Claim(ctx context.Context, key string) (bool, error)
	// Release frees a claimed key after a failed attempt so the client
	// can retry it.
	Release(ctx context.Context, key string) error
}
