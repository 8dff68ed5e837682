// Package dayclock translates between wall-clock time and the logical
// tracking day, whose boundary is a configurable hour rather than
// midnight. A user whose day starts at 06:00 and logs food at 05:30 is
// still operating on "yesterday".
//
// All computations use the process-local wall clock. Single-locale
// deployment is an explicit assumption; multi-timezone support would need
// a timezone parameter on the resolver contract.
package dayclock

import (
	"os"
	"strconv"
	"time"
)

// DefaultStartHour is the boundary hour used when neither the environment
// nor the ledger configures one.
const DefaultStartHour = 6

// EnvDayStartTime overrides the start hour; format HHMM (e.g. "0600").
// Only the HH part is used.
const EnvDayStartTime = "DAY_START_TIME"

const dayFormat = "2006-01-02"

// ConfigSource supplies persisted configuration values. *ledger.DB
// satisfies it.
type ConfigSource interface {
	GetConfig(key string) (string, error)
}

// Resolver maps timestamps to logical days and back.
type Resolver struct {
	cfg ConfigSource
	now func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New creates a Resolver backed by the given config source. cfg may be
// nil, in which case only the environment tier and the default apply.
func New(cfg ConfigSource, opts ...Option) *Resolver {
	r := &Resolver{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartHour resolves the day boundary hour. Precedence: DAY_START_TIME
// environment override, persisted config, DefaultStartHour. A parse
// failure at any tier falls through to the next; this never fails.
func (r *Resolver) StartHour() int {
	if hour, ok := parseEnvStartHour(os.Getenv(EnvDayStartTime)); ok {
		return hour
	}
	if r.cfg != nil {
		if raw, err := r.cfg.GetConfig("day_start_hour"); err == nil && raw != "" {
			if hour, err := strconv.Atoi(raw); err == nil && hour >= 0 && hour <= 23 {
				return hour
			}
		}
	}
	return DefaultStartHour
}

// parseEnvStartHour parses the HHMM override format. Only a 4-digit value
// with a valid HH part is accepted.
func parseEnvStartHour(v string) (int, bool) {
	if len(v) != 4 {
		return 0, false
	}
	if _, err := strconv.Atoi(v); err != nil {
		return 0, false
	}
	hour, err := strconv.Atoi(v[:2])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// CurrentDay returns the logical day (YYYY-MM-DD) containing now. Hours
// before the start hour belong to the previous calendar date.
func (r *Resolver) CurrentDay() string {
	now := r.now()
	if now.Hour() < r.StartHour() {
		now = now.AddDate(0, 0, -1)
	}
	return now.Format(dayFormat)
}

// RangeForDay returns the concrete datetime interval covered by a logical
// day: [date start_hour:00:00, date+1 start_hour:00:00 - 1s], both ends
// inclusive. A malformed day falls back to the current logical day rather
// than failing.
func (r *Resolver) RangeForDay(day string) (time.Time, time.Time) {
	date, err := time.ParseInLocation(dayFormat, day, time.Local)
	if err != nil {
		date, _ = time.ParseInLocation(dayFormat, r.CurrentDay(), time.Local)
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), r.StartHour(), 0, 0, 0, time.Local)
	end := start.Add(24*time.Hour - time.Second)
	return start, end
}

// InDay reports whether t falls within the logical day (inclusive range
// membership).
func (r *Resolver) InDay(t time.Time, day string) bool {
	start, end := r.RangeForDay(day)
	return !t.Before(start) && !t.After(end)
}
