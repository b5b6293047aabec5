package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimited gates an underlying Translator to a requests-per-minute
// budget shared across all workers.
type rateLimited struct {
	inner   Translator
	limiter *rate.Limiter
}

var _ Translator = (*rateLimited)(nil)

// WithRateLimit wraps t so that calls are admitted at most
// requestsPerMinute times per minute, with a burst of one. A non-positive
// rate returns t unchanged.
func WithRateLimit(t Translator, requestsPerMinute int) Translator {
	if requestsPerMinute <= 0 {
		return t
	}
	return &rateLimited{
		inner:   t,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

func (r *rateLimited) Translate(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", &Error{Op: "Translate", Provider: Type(r.inner.Name()), Model: req.Model, Err: err}
	}
	return r.inner.Translate(ctx, req)
}

func (r *rateLimited) Name() string {
	return r.inner.Name()
}
