package audit

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultQueryLimit caps the records a query returns when Filter.Limit is unset.
const DefaultQueryLimit = 100

// ErrInvalidFilter is returned when a filter's time range is inverted.
var ErrInvalidFilter = errors.New("invalid audit filter")

// Store persists audit records.
// Interface owned by domain per hexagonal architecture.
type Store interface {
	// Append stores audit records.
	Append(ctx context.Context, records ...Record) error

	// Flush forces pending records to storage. Called during shutdown.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Querier is implemented by stores that can read records back.
type Querier interface {
	// Query returns records matching filter, newest first.
	Query(ctx context.Context, filter Filter) ([]Record, error)
}

// Recorder accepts records for asynchronous persistence.
type Recorder interface {
	Record(record Record)
}

// Filter specifies query parameters for audit queries. Zero fields match everything.
type Filter struct {
	StartTime time.Time
	EndTime   time.Time
	Kind      string
	BeanType  string
	Outcome   string
	// Limit is the maximum number of records to return (default DefaultQueryLimit).
	Limit int
}

// Validate checks that the time range is not inverted.
func (f Filter) Validate() error {
	if !f.StartTime.IsZero() && !f.EndTime.IsZero() && f.EndTime.Before(f.StartTime) {
		return ErrInvalidFilter
	}
	return nil
}

// EffectiveLimit returns Limit, or DefaultQueryLimit when Limit is not positive.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	return f.Limit
}

// Matches reports whether r passes every set field of the filter.
func (f Filter) Matches(r Record) bool {
	if !f.StartTime.IsZero() && r.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && r.Timestamp.After(f.EndTime) {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.BeanType != "" && r.BeanType != f.BeanType {
		return false
	}
	if f.Outcome != "" && !strings.EqualFold(string(r.Outcome), f.Outcome) {
		return false
	}
	return true
}
