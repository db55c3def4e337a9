package kvstore

import (
	"context"
	"errors"
)

// Keys under which the app keeps its local state.
const (
	KeyProductCart = "@cart_items"
	KeyVoucherCart = "@voucher_cart_items"
	KeyAuthToken   = "auth_token"
	KeyUserID      = "user_id"
	KeyUserName    = "user_name"
	KeyUserEmail   = "user_email"
)

var ErrNotFound = errors.New("key not found")

// Store is durable string storage that survives process restarts.
// Remove on an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}
