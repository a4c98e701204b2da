package cache

import (
	"context"
)

// Store es un almacén llave -> blob. La caducidad la maneja Cache.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
	Close() error
}
