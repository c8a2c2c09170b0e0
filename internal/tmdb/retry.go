package tmdb

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"movie-catalog/pkg/apperr"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// noHint marks a response without a usable Retry-After header.
const noHint time.Duration = -1

// RetryPolicy is applied around every upstream call. Rate-limit answers wait
// for the upstream hint (or BaseDelay); transient failures back off linearly
// as BaseDelay*(attempt+1). Kinds not in RetryOn fail on the first attempt.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	RetryOn    []apperr.Kind
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultRetryDelay,
		RetryOn:    []apperr.Kind{apperr.KindRateLimited, apperr.KindTransient},
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryDelay
	}
	if p.RetryOn == nil {
		p.RetryOn = DefaultRetryPolicy().RetryOn
	}
	return p
}

func (p RetryPolicy) retries(kind apperr.Kind) bool {
	return slices.Contains(p.RetryOn, kind)
}

// Delay returns how long to wait before retrying after a failed attempt
// (0-based), or false when the error must surface.
func (p RetryPolicy) Delay(attempt int, err error, hint time.Duration) (time.Duration, bool) {
	kind := apperr.KindOf(err)
	if attempt >= p.MaxRetries || !p.retries(kind) {
		return 0, false
	}
	switch kind {
	case apperr.KindRateLimited:
		if hint >= 0 {
			return hint, true
		}
		return p.BaseDelay, true
	default:
		return p.BaseDelay * time.Duration(attempt+1), true
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return noHint
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			return noHint
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(t.Sub(now), 0)
	}
	return noHint
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
