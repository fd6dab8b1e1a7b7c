package util

import (
	"context"
	"time"

	"github.com/valyala/fastrand"
)

// Sleep blocks for t or until the context is done.
func Sleep(ctx context.Context, t time.Duration) error {
	if t <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(t)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jitter returns a random duration in [min, max).
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}

	span := uint32((max - min) / time.Millisecond)
	if span == 0 {
		return min
	}

	return min + time.Duration(fastrand.Uint32n(span))*time.Millisecond
}

// YesNo renders a boolean for humans.
func YesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

// Ago renders the time since t in whole seconds, minutes or hours.
func Ago(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return d.Round(time.Second).String() + " ago"
	case d < time.Hour:
		return d.Round(time.Minute).String() + " ago"
	default:
		return d.Round(time.Hour).String() + " ago"
	}
}
