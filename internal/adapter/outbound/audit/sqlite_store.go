package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Sentinel-Gate/beanguard/internal/domain/audit"
	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id               TEXT PRIMARY KEY,
	ts               INTEGER NOT NULL,
	execution_id     TEXT NOT NULL,
	kind             TEXT NOT NULL,
	bean_type        TEXT NOT NULL DEFAULT '',
	property         TEXT NOT NULL DEFAULT '',
	executable       TEXT NOT NULL DEFAULT '',
	groups_json      TEXT NOT NULL DEFAULT '[]',
	outcome          TEXT NOT NULL,
	violation_count  INTEGER NOT NULL DEFAULT 0,
	paths_json       TEXT NOT NULL DEFAULT '[]',
	fingerprint      TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT '',
	latency_ms       REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_audit_records_ts ON audit_records (ts);
CREATE INDEX IF NOT EXISTS idx_audit_records_fingerprint ON audit_records (fingerprint);
`

// SQLiteStore implements audit.Store and audit.Querier on an SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dsn and applies
// the schema. dsn is a file path or ":memory:".
func NewSQLiteStore(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	logger.Debug("audit database ready", "dsn", dsn)

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Append inserts records in one transaction. A record whose ID already
// exists is ignored.
func (s *SQLiteStore) Append(ctx context.Context, records ...audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO audit_records
			(id, ts, execution_id, kind, bean_type, property, executable, groups_json,
			 outcome, violation_count, paths_json, fingerprint, error, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare audit insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		groups, err := marshalStrings(r.Groups)
		if err != nil {
			return err
		}
		paths, err := marshalStrings(r.Paths)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Timestamp.UTC().UnixNano(), r.ExecutionID, r.Kind, r.BeanType, r.Property,
			r.Executable, groups, string(r.Outcome), r.ViolationCount, paths, r.Fingerprint,
			r.Error, r.LatencyMs,
		); err != nil {
			return fmt.Errorf("insert audit record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit transaction: %w", err)
	}
	return nil
}

// Flush is a no-op: every Append commits.
func (s *SQLiteStore) Flush(context.Context) error {
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Query implements audit.Querier.
func (s *SQLiteStore) Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !filter.StartTime.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, filter.StartTime.UTC().UnixNano())
	}
	if !filter.EndTime.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, filter.EndTime.UTC().UnixNano())
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.BeanType != "" {
		where = append(where, "bean_type = ?")
		args = append(args, filter.BeanType)
	}
	if filter.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, strings.ToLower(filter.Outcome))
	}

	query := `SELECT id, ts, execution_id, kind, bean_type, property, executable, groups_json,
		outcome, violation_count, paths_json, fingerprint, error, latency_ms FROM audit_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, rowid DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []audit.Record
	for rows.Next() {
		var (
			r             audit.Record
			ts            int64
			outcome       string
			groups, paths string
		)
		if err := rows.Scan(&r.ID, &ts, &r.ExecutionID, &r.Kind, &r.BeanType, &r.Property,
			&r.Executable, &groups, &outcome, &r.ViolationCount, &paths, &r.Fingerprint,
			&r.Error, &r.LatencyMs); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		r.Outcome = intercept.Outcome(outcome)
		if r.Groups, err = unmarshalStrings(groups); err != nil {
			return nil, err
		}
		if r.Paths, err = unmarshalStrings(paths); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return result, nil
}

func marshalStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshal audit column: %w", err)
	}
	return string(data), nil
}

// unmarshalStrings returns nil for an empty list so records read back compare
// equal to records written with nil slices.
func unmarshalStrings(data string) ([]string, error) {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshal audit column: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// Compile-time interface verification.
var (
	_ audit.Store   = (*SQLiteStore)(nil)
	_ audit.Querier = (*SQLiteStore)(nil)
)
