// Package rate limits the guardian-facing endpoints, which carry no owner
// JWT and would otherwise be open to hammering.
package rate

import (
	"context"
	"time"
)

type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
}
