package ratelimit

import (
	"context"
	"fmt"
	"time"
)

type Scope string

const (
	ScopeLogin         Scope = "login"
	ScopeRegister      Scope = "register"
	ScopePasswordReset Scope = "password_reset"
)

type Rule struct {
	Ceiling int64
	Window  time.Duration
}

type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter)
}

// Store is the shared counter backend. Incr must be atomic under concurrent
// callers: it bumps the counter for key, starts the window if this is the
// first hit, and reports the count plus time left in the window.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Limiter throttles unauthenticated auth attempts per (scope, client key)
// within a fixed trailing window. Every Check call counts as an attempt,
// whatever the underlying operation later does.
type Limiter struct {
	store Store
	rules map[Scope]Rule
}

func New(store Store, rules map[Scope]Rule) *Limiter {
	return &Limiter{store: store, rules: rules}
}

// Check increments the attempt counter and returns *ThrottledError once the
// ceiling is exceeded. Store failures propagate as-is so callers fail loud
// instead of silently letting traffic through.
func (l *Limiter) Check(ctx context.Context, scope Scope, clientKey string) error {
	rule, ok := l.rules[scope]
	if !ok || rule.Ceiling <= 0 {
		return nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", scope, clientKey)
	count, ttl, err := l.store.Incr(ctx, key, rule.Window)
	if err != nil {
		return fmt.Errorf("rate limit store: %w", err)
	}

	if count > rule.Ceiling {
		retry := ttl
		if retry <= 0 {
			retry = rule.Window
		}
		return &ThrottledError{RetryAfter: retry}
	}
	return nil
}
