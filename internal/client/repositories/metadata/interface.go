// Package metadata is the CLI's local key/value store. It holds the session
// descriptor and the cached admin status between runs.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeySession     = "session"
	KeyAdminStatus = "admin_status"
)

// Repository stores opaque values by key. Get returns common.ErrorNotFound
// for an absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
