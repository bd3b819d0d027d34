package clock

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the wall-clock text format of every timestamp column.
// Lexical order equals chronological order, so SQL compares them as text.
const Layout = "2006-01-02 15:04:05"

// Timestamp is a second-precision business-local time stored as Layout text.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.In(Location()).Truncate(time.Second)}
}

// ParseTimestamp reads a Layout string in the business timezone.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.ParseInLocation(Layout, s, Location())
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Time: t}, nil
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.In(Location()).Format(Layout)
}

// Date returns the YYYY-MM-DD part.
func (t Timestamp) Date() string {
	return t.In(Location()).Format("2006-01-02")
}

func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.String(), nil
}

func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case time.Time:
		*t = NewTimestamp(v)
		return nil
	default:
		return fmt.Errorf("clock: cannot scan %T into Timestamp", src)
	}
}

func (t *Timestamp) parse(s string) error {
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		// Rows written by sqlite's CURRENT_TIMESTAMP or by hand may carry
		// an RFC 3339 value.
		rfc, rfcErr := time.Parse(time.RFC3339, s)
		if rfcErr != nil {
			return fmt.Errorf("clock: parse timestamp %q: %w", s, err)
		}
		parsed = NewTimestamp(rfc)
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.parse(s)
}
