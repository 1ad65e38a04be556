// Package kv is the short-lived key/value storage behind OAuth login state
// and the consecutive-failure counters. Redis in deployments, memory in
// development and tests.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrMissing is returned by GetDel when the key does not exist or expired.
var ErrMissing = errors.New("kv: key missing")

type Store interface {
	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// GetDel returns the value and removes the key in one step.
	GetDel(ctx context.Context, key string) (string, error)
	// Incr increments the counter at key and (re)arms its ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, key string) error
}
