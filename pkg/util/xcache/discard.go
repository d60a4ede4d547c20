package xcache

import (
	"context"
	"errors"

	"github.com/rebasekit/ostag/pkg/util/xgeneric"
)

var errLoadMiss = errors.New("loader reported a miss")

// NewDiscard returns a new cache implementation which discards all operations.
func NewDiscard[T any]() Cache[T] {
	return discardCacheImpl[T]{}
}

type discardCacheImpl[T any] struct {
}

// Get always reports a miss.
func (s discardCacheImpl[T]) Get(_ context.Context, key string, options ...Option[T]) (T, bool) {
	return xgeneric.ZeroValue[T](), false
}

// Set drops the value.
func (s discardCacheImpl[T]) Set(_ context.Context, key string, value T, options ...Option[T]) {
}

// Delete does nothing.
func (s discardCacheImpl[T]) Delete(_ context.Context, key string) {
}
