package clock

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the venue timezone used when none is configured.
const DefaultTimezone = "Europe/Moscow"

var (
	locationMu sync.RWMutex
	location   = mustLoad(DefaultTimezone)
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("clock: cannot load timezone %q: %v", name, err))
	}
	return loc
}

// Location returns the business timezone shared by every stored timestamp.
func Location() *time.Location {
	locationMu.RLock()
	defer locationMu.RUnlock()
	return location
}

func setLocation(loc *time.Location) {
	locationMu.Lock()
	location = loc
	locationMu.Unlock()
}

// Clock provides the current business time. Tests replace NowFunc.
type Clock struct {
	loc     *time.Location
	NowFunc func() time.Time
}

// New builds a Clock for the named timezone and makes it the location used
// to read and write Timestamp columns.
func New(timezone string) (*Clock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	setLocation(loc)
	return &Clock{loc: loc, NowFunc: time.Now}, nil
}

// Fixed returns a Clock frozen at t, in t's location.
func Fixed(t time.Time) *Clock {
	setLocation(t.Location())
	return &Clock{loc: t.Location(), NowFunc: func() time.Time { return t }}
}

func (c *Clock) Now() time.Time {
	return c.NowFunc().In(c.loc)
}

// Stamp returns the current business time as a storable Timestamp.
func (c *Clock) Stamp() Timestamp {
	return NewTimestamp(c.Now())
}

// Advance freezes the clock at its current time plus d.
func (c *Clock) Advance(d time.Duration) {
	current := c.NowFunc()
	c.NowFunc = func() time.Time { return current.Add(d) }
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// CurrentMonthYear returns the YYYY-MM period key for now.
func (c *Clock) CurrentMonthYear() string {
	return MonthYear(c.Now())
}

// StartOfMonth is midnight on the first day of the current business month.
func (c *Clock) StartOfMonth() Timestamp {
	now := c.Now()
	return NewTimestamp(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, c.loc))
}

// StartOfYear is midnight on January 1st of the current business year.
func (c *Clock) StartOfYear() Timestamp {
	now := c.Now()
	return NewTimestamp(time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, c.loc))
}
