package cache

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound      = errors.New("cache entry not found")
	ErrAlreadyExists = errors.New("cache entry already exists")
)

type PutCondition int

const (
	PutAlways PutCondition = iota
	// PutIfNoneMatch only writes when the key does not exist yet.
	PutIfNoneMatch
)

type PutOptions struct {
	Condition PutCondition
}

// Unconditional is the zero PutOptions, spelled out for readability at call sites.
var Unconditional = PutOptions{}

type Cache interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key, value string, opts PutOptions) error
	Delete(ctx context.Context, key string) error
}

type ListCache interface {
	Cache
	List(ctx context.Context, prefix string, token string) ([]string, error)
}

// ReadString reads a whole entry. Callers that only need the bytes use this instead of
// juggling the ReadCloser.
func ReadString(ctx context.Context, c Cache, key string) (string, error) {
	r, err := c.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
