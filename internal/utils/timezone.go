package utils

import (
	"context"
	"fmt"
	"time"
)

type tzOffsetKey struct{}

// WithTimezoneOffset stores a client timezone offset (minutes, JavaScript
// getTimezoneOffset convention: UTC = local + offset) on the request context.
// It is request-scoped state, never process-wide.
func WithTimezoneOffset(ctx context.Context, minutes int) context.Context {
	return context.WithValue(ctx, tzOffsetKey{}, minutes)
}

func TimezoneOffset(ctx context.Context) (int, bool) {
	minutes, ok := ctx.Value(tzOffsetKey{}).(int)
	return minutes, ok
}

// ParseClientTime interprets a timestamp literal from a request payload.
// Zoned literals are taken as-is; wall-clock literals ("2006-01-02T15:04")
// are shifted by the request's timezone offset, defaulting to UTC.
func ParseClientTime(ctx context.Context, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	var wall time.Time
	var err error
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		wall, err = time.Parse(layout, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrValidation, value)
	}

	offset, ok := TimezoneOffset(ctx)
	if !ok {
		return wall.UTC(), nil
	}
	return wall.Add(time.Duration(offset) * time.Minute).UTC(), nil
}
