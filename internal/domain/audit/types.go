// Package audit defines the audit trail of validation calls: the record written
// for every intercepted call, the store it is persisted to, and the interceptor
// that produces it.
package audit

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// Record captures one intercepted validation call.
type Record struct {
	// ID is unique per record.
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// ExecutionID identifies the execution scope the call ran in. Nested
	// validations share it with their enclosing call.
	ExecutionID string `json:"execution_id"`

	Kind       string   `json:"kind"`
	BeanType   string   `json:"bean_type,omitempty"`
	Property   string   `json:"property,omitempty"`
	Executable string   `json:"executable,omitempty"`
	Groups     []string `json:"groups,omitempty"`

	Outcome        intercept.Outcome `json:"outcome"`
	ViolationCount int               `json:"violation_count"`
	Paths          []string          `json:"paths,omitempty"`

	// Fingerprint identifies the violation set independent of its order, so
	// repeated failures of the same shape can be grouped. Empty when valid.
	Fingerprint string `json:"fingerprint,omitempty"`

	Error     string  `json:"error,omitempty"`
	LatencyMs float64 `json:"latency_ms"`
}

// Fingerprint hashes the (path, constraint) pairs of violations with xxhash.
// It returns "" for an empty set.
func Fingerprint(violations validation.Violations) string {
	if len(violations) == 0 {
		return ""
	}
	keys := make([]string, len(violations))
	for i, v := range violations {
		keys[i] = v.Path + "\x00" + v.Constraint
	}
	sort.Strings(keys)

	d := xxhash.New()
	for _, k := range keys {
		_, _ = d.WriteString(k)
		_, _ = d.Write([]byte{'\n'})
	}
	return hex.EncodeToString(d.Sum(nil))
}
