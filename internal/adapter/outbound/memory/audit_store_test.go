package memory

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sentinel-Gate/beanguard/internal/domain/audit"
	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
)

func makeRecord(id string, outcome intercept.Outcome) audit.Record {
	return audit.Record{
		ID:          id,
		Timestamp:   time.Now().UTC(),
		ExecutionID: "exec-1",
		Kind:        "validate",
		BeanType:    "report.CashIncome",
		Outcome:     outcome,
	}
}

func TestAuditStore_AppendWritesJSON(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf, 0)

	r := makeRecord("req-1", intercept.OutcomeInvalid)
	r.Paths = []string{"Remark"}
	r.Fingerprint = "abc"
	if err := store.Append(context.Background(), r, makeRecord("req-2", intercept.OutcomeValid)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	scanner := bufio.NewScanner(buf)
	var decoded []audit.Record
	for scanner.Scan() {
		var d audit.Record
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			t.Fatalf("written line is not valid JSON: %v", err)
		}
		decoded = append(decoded, d)
	}
	if len(decoded) != 2 {
		t.Fatalf("lines = %d, want 2", len(decoded))
	}
	if decoded[0].ID != "req-1" || decoded[0].Outcome != intercept.OutcomeInvalid || decoded[0].Fingerprint != "abc" {
		t.Errorf("decoded[0] = %+v", decoded[0])
	}
}

func TestAuditStore_JSONFieldNames(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf, 0)
	if err := store.Append(context.Background(), makeRecord("req-1", intercept.OutcomeValid)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"id":"req-1"`, `"execution_id":"exec-1"`, `"outcome":"valid"`, `"bean_type":"report.CashIncome"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, `"property"`) {
		t.Errorf("empty property should be omitted: %s", out)
	}
}

func TestAuditStore_Query(t *testing.T) {
	t.Parallel()

	store := NewAuditStoreWithWriter(&bytes.Buffer{}, 3)
	ctx := context.Background()
	for i, outcome := range []intercept.Outcome{
		intercept.OutcomeValid, intercept.OutcomeInvalid, intercept.OutcomeValid, intercept.OutcomeInvalid,
	} {
		if err := store.Append(ctx, makeRecord(fmt.Sprint(i), outcome)); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.Filter
		want   string
	}{
		{"newest first, oldest evicted", audit.Filter{}, "3,2,1"},
		{"outcome", audit.Filter{Outcome: "invalid"}, "3,1"},
		{"limit", audit.Filter{Limit: 1}, "3"},
		{"no match", audit.Filter{Kind: "validate_value"}, ""},
	}
	for _, tt := range tests {
		got, err := store.Query(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: Query() error: %v", tt.name, err)
		}
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		if s := strings.Join(ids, ","); s != tt.want {
			t.Errorf("%s: Query() = %q, want %q", tt.name, s, tt.want)
		}
	}

	now := time.Now()
	if _, err := store.Query(ctx, audit.Filter{StartTime: now, EndTime: now.Add(-time.Minute)}); err == nil {
		t.Error("inverted range should be rejected")
	}
}

func TestAuditStore_FlushAndClose(t *testing.T) {
	t.Parallel()

	store := NewAuditStoreWithWriter(&bytes.Buffer{}, 0)
	if err := store.Flush(context.Background()); err != nil {
		t.Errorf("Flush() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestAuditStore_DefaultStdout(t *testing.T) {
	t.Parallel()

	store := NewAuditStore(0)
	if store.writer != os.Stdout {
		t.Error("NewAuditStore() should write to stdout")
	}
	if store.cap != defaultRecentCap {
		t.Errorf("cap = %d, want %d", store.cap, defaultRecentCap)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() on stdout should be a no-op, got %v", err)
	}
}

func TestAuditStore_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf, 10000)

	const goroutines, perGoroutine = 10, 20
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_ = store.Append(context.Background(), makeRecord(fmt.Sprintf("%d-%d", g, i), intercept.OutcomeValid))
			}
		}(g)
	}
	wg.Wait()

	if lines := strings.Count(buf.String(), "\n"); lines != goroutines*perGoroutine {
		t.Errorf("lines = %d, want %d", lines, goroutines*perGoroutine)
	}
	got, _ := store.Query(context.Background(), audit.Filter{Limit: 1000})
	if len(got) != goroutines*perGoroutine {
		t.Errorf("recent = %d, want %d", len(got), goroutines*perGoroutine)
	}
}
