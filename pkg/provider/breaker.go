package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// breakered isolates an underlying Translator behind a circuit breaker so
// a failing provider endpoint sheds load instead of burning quota.
type breakered struct {
	inner Translator
	cb    *gobreaker.CircuitBreaker
}

var _ Translator = (*breakered)(nil)

// WithBreaker wraps t in a circuit breaker. Content-safety and
// invalid-request outcomes are expected per-chunk results and never trip
// the breaker; repeated transport-level failures do. An open breaker is
// reported as ErrTransient so callers treat it like any other temporary
// provider failure.
func WithBreaker(t Translator) Translator {
	settings := gobreaker.Settings{
		Name:     t.Name() + "-translate",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsContentSafety(err) || IsInvalidRequest(err)
		},
	}
	return &breakered{inner: t, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakered) Translate(ctx context.Context, req Request) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Translate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &Error{
				Op:       "Translate",
				Provider: Type(b.inner.Name()),
				Model:    req.Model,
				Err:      errors.Join(ErrTransient, err),
			}
		}
		return "", err
	}
	text, _ := res.(string)
	return text, nil
}

func (b *breakered) Name() string {
	return b.inner.Name()
}
