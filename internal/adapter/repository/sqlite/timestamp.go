package sqlite

import (
	"fmt"
	"time"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02",
}

// timestamp is a nullable time that also accepts SQLite's textual formats.
type timestamp struct {
	Time  time.Time
	Valid bool
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = timestamp{}
		return nil
	case time.Time:
		*t = timestamp{Time: v, Valid: true}
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("sqlite: cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = timestamp{Time: parsed, Valid: true}
			return nil
		}
	}
	return fmt.Errorf("sqlite: cannot parse %q as timestamp", s)
}
