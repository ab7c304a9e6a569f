// Package timeouts provides centralized timeout values for store operations.
//
// These timeouts bound every store call the realtime subsystem makes from a
// listener callback (profile lookups, seller scope reads, notification
// writes) as well as HTTP handler reads.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Read: single-document lookups and small one-shot queries
//   - Write: notification inserts
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing  = 2 * time.Second
	DefaultRead  = 5 * time.Second
	DefaultWrite = 10 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping  = DefaultPing
	read  = DefaultRead
	write = DefaultWrite
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Read returns the timeout for lookups such as role resolution.
func Read() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return read
}

// Write returns the timeout for a single notification insert.
func Write() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return write
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping  time.Duration
	Read  time.Duration
	Write time.Duration
}

// Configure sets custom timeout values. Zero values in the config are
// ignored, keeping the current (or default) values.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Read > 0 {
		read = cfg.Read
	}
	if cfg.Write > 0 {
		write = cfg.Write
	}
}

// Reset restores all timeouts to their default values.
// Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	read = DefaultRead
	write = DefaultWrite
}

// Current returns the current timeout configuration as a Config struct.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Read: read, Write: write}
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the context was canceled due to deadline exceeded.
//
// Example:
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Write(), d.log, "notification insert")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
