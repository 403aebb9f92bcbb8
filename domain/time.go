package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Wire layouts accepted for string-typed due dates, tried in order. Zoneless
// layouts are interpreted as UTC.
var dueLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Every epoch-millisecond value after 1973 exceeds this, every epoch-second
// value before the year 5000 stays below it.
const epochMillisFloor = 1e11

// Time is a task due timestamp. Stored collections carry dates in whatever
// shape the writing client produced, so decoding tolerates RFC 3339 strings
// with or without seconds or zone, plain dates and integer epoch values.
// It always marshals back to RFC 3339; the zero value marshals as null.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.Format(time.RFC3339Nano))), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("invalid due date %s: %w", s, err)
		}
		for _, layout := range dueLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				t.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("invalid due date %q", raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid due date %s: %w", s, err)
	}
	if v >= epochMillisFloor || v <= -epochMillisFloor {
		t.Time = time.UnixMilli(int64(v)).UTC()
	} else {
		t.Time = time.Unix(int64(v), 0).UTC()
	}
	return nil
}
