package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is the stored envelope of a cached value.
type Entry struct {
	Data       json.RawMessage `json:"data"`
	CapturedAt time.Time       `json:"capturedAt"`
}

// PutJSON marshals v and stores it with the capture time under key.
func PutJSON(ctx context.Context, s Store, key string, ttl time.Duration, v interface{}, capturedAt time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	raw, err := json.Marshal(Entry{Data: data, CapturedAt: capturedAt})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	return s.SetEx(ctx, key, ttl, string(raw))
}

// GetJSON loads key into out. A miss reports found=false and leaves out untouched.
func GetJSON(ctx context.Context, s Store, key string, out interface{}) (capturedAt time.Time, found bool, err error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return time.Time{}, false, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return time.Time{}, false, fmt.Errorf("unmarshal entry %q: %w", key, err)
	}

	if err := json.Unmarshal(entry.Data, out); err != nil {
		return time.Time{}, false, fmt.Errorf("unmarshal data %q: %w", key, err)
	}

	return entry.CapturedAt, true, nil
}
