package limiter

import (
	"golang.org/x/time/rate"
)

type Limiter interface {
	limiterSetup()
}

// New returns a limiter allowing limit calls per second with a burst of the
// same size, or nil when limit is not positive.
func New(limit int) *rate.Limiter {
	if limit <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(limit), limit)
}
