// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/Sentinel-Gate/beanguard/internal/domain/audit"
)

const defaultRecentCap = 1000

// AuditStore implements audit.Store by writing one JSON object per record to
// a writer (stdout by default). It also keeps a bounded buffer of the most
// recent records for queries.
type AuditStore struct {
	mu      sync.Mutex
	encoder *json.Encoder
	writer  io.Writer
	recent  []audit.Record
	cap     int
}

// NewAuditStore creates a store writing to stdout. capacity bounds the
// recent-record buffer; values <= 0 mean 1000.
func NewAuditStore(capacity int) *AuditStore {
	return NewAuditStoreWithWriter(os.Stdout, capacity)
}

// NewAuditStoreWithWriter creates a store writing to w.
func NewAuditStoreWithWriter(w io.Writer, capacity int) *AuditStore {
	if capacity <= 0 {
		capacity = defaultRecentCap
	}
	return &AuditStore{
		encoder: json.NewEncoder(w),
		writer:  w,
		recent:  make([]audit.Record, 0, capacity),
		cap:     capacity,
	}
}

// Append writes records and keeps them in the recent buffer, dropping the
// oldest entries beyond capacity.
func (s *AuditStore) Append(_ context.Context, records ...audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if err := s.encoder.Encode(r); err != nil {
			return err
		}
		if len(s.recent) == s.cap {
			copy(s.recent, s.recent[1:])
			s.recent[len(s.recent)-1] = r
			continue
		}
		s.recent = append(s.recent, r)
	}
	return nil
}

// Flush is a no-op: records are written as they are appended.
func (s *AuditStore) Flush(context.Context) error {
	return nil
}

// Close closes the writer when it is a file other than stdout or stderr.
func (s *AuditStore) Close() error {
	if f, ok := s.writer.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Close()
	}
	return nil
}

// Query implements audit.Querier over the recent buffer, newest first.
func (s *AuditStore) Query(_ context.Context, filter audit.Filter) ([]audit.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.EffectiveLimit()
	var result []audit.Record
	for i := len(s.recent) - 1; i >= 0 && len(result) < limit; i-- {
		if filter.Matches(s.recent[i]) {
			result = append(result, s.recent[i])
		}
	}
	return result, nil
}

// Compile-time interface verification.
var (
	_ audit.Store   = (*AuditStore)(nil)
	_ audit.Querier = (*AuditStore)(nil)
)
