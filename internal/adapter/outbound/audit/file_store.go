// Package audit provides persistent audit stores: JSON Lines files with daily
// and size rotation, and SQLite.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Sentinel-Gate/beanguard/internal/domain/audit"
)

// auditFilePattern matches audit-YYYY-MM-DD.jsonl and audit-YYYY-MM-DD-N.jsonl.
var auditFilePattern = regexp.MustCompile(`^audit-(\d{4}-\d{2}-\d{2})(?:-(\d+))?\.jsonl$`)

// dayLayout formats the date part of audit file names.
const dayLayout = "2006-01-02"

// auditFile is a parsed audit file name.
type auditFile struct {
	name   string
	date   string
	suffix int
}

func parseAuditFilename(name string) (auditFile, bool) {
	m := auditFilePattern.FindStringSubmatch(name)
	if m == nil {
		return auditFile{}, false
	}
	f := auditFile{name: name, date: m[1]}
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return auditFile{}, false
		}
		f.suffix = n
	}
	return f, true
}

func fileName(date string, suffix int) string {
	if suffix == 0 {
		return fmt.Sprintf("audit-%s.jsonl", date)
	}
	return fmt.Sprintf("audit-%s-%d.jsonl", date, suffix)
}

// FileConfig holds configuration for the file-based audit store.
type FileConfig struct {
	// Dir is the directory audit files are written to.
	Dir string
	// RetentionDays is the number of days to keep audit files (default 7).
	RetentionDays int
	// MaxFileSizeMB is the file size that triggers rotation (default 100).
	MaxFileSizeMB int
	// CacheSize is the number of recent records kept in memory for queries (default 1000).
	CacheSize int
}

// FileStore implements audit.Store with JSON Lines files rotated per day and
// per size, retention cleanup, and an in-memory cache of recent records.
type FileStore struct {
	dir           string
	maxFileSize   int64
	retentionDays int

	mu      sync.Mutex
	file    *os.File
	date    string
	size    int64
	suffix  int
	closed  bool
	recent  *ring
	logger  *slog.Logger
	cancel  context.CancelFunc
	cleaned chan struct{}
}

// NewFileStore creates the directory if needed, opens the current file,
// removes expired files, warms the cache from the most recent file and starts
// the hourly retention loop.
func NewFileStore(cfg FileConfig, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 7
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 100
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &FileStore{
		dir:           cfg.Dir,
		maxFileSize:   int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		retentionDays: cfg.RetentionDays,
		recent:        newRing(cfg.CacheSize),
		logger:        logger,
		cancel:        cancel,
		cleaned:       make(chan struct{}),
	}

	today := time.Now().UTC().Format(dayLayout)
	if err := s.open(today, s.highestSuffix(today)); err != nil {
		cancel()
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	s.cleanup()
	s.warmCache()
	go s.cleanupLoop(ctx)

	return s, nil
}

// Append writes records as JSON lines, rotating when the record's day
// changes or the current file reaches the size cap.
func (s *FileStore) Append(_ context.Context, records ...audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("append audit records: store closed")
	}

	for _, r := range records {
		if day := r.Timestamp.UTC().Format(dayLayout); day != s.date {
			if err := s.rotate(day, 0); err != nil {
				return fmt.Errorf("date rotation: %w", err)
			}
		}
		if s.size >= s.maxFileSize {
			if err := s.rotate(s.date, s.suffix+1); err != nil {
				return fmt.Errorf("size rotation: %w", err)
			}
		}

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		n, err := s.file.Write(append(data, '\n'))
		if err != nil {
			return fmt.Errorf("write audit record: %w", err)
		}
		s.size += int64(n)
		s.recent.add(r)
	}
	return nil
}

// Flush syncs the current file to disk.
func (s *FileStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

// Close stops the retention loop and closes the current file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	var err error
	if s.file != nil {
		_ = s.file.Sync()
		err = s.file.Close()
		s.file = nil
	}
	s.mu.Unlock()

	<-s.cleaned
	return err
}

// Query implements audit.Querier over the cached recent records.
func (s *FileStore) Query(_ context.Context, filter audit.Filter) ([]audit.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.recent.query(filter), nil
}

// Path returns the file currently written to.
func (s *FileStore) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filepath.Join(s.dir, fileName(s.date, s.suffix))
}

// open makes date/suffix the current file. Must be called with s.mu held or
// before the store is shared.
func (s *FileStore) open(date string, suffix int) error {
	name := fileName(date, suffix)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open file %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat file %s: %w", name, err)
	}
	s.file, s.date, s.suffix, s.size = f, date, suffix, info.Size()
	return nil
}

// rotate closes the current file and opens date/suffix. Must be called with s.mu held.
func (s *FileStore) rotate(date string, suffix int) error {
	if s.file != nil {
		_ = s.file.Sync()
		_ = s.file.Close()
		s.file = nil
	}
	return s.open(date, suffix)
}

// files returns the audit files in dir, oldest first.
func (s *FileStore) files() []auditFile {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var files []auditFile
	for _, e := range entries {
		if f, ok := parseAuditFilename(e.Name()); ok {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].date != files[j].date {
			return files[i].date < files[j].date
		}
		return files[i].suffix < files[j].suffix
	})
	return files
}

func (s *FileStore) highestSuffix(date string) int {
	highest := 0
	for _, f := range s.files() {
		if f.date == date && f.suffix > highest {
			highest = f.suffix
		}
	}
	return highest
}

// cleanup deletes files older than the retention period.
func (s *FileStore) cleanup() {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted := 0
	for _, f := range s.files() {
		day, err := time.Parse(dayLayout, f.date)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, f.name)); err != nil {
			s.logger.Error("audit cleanup: failed to delete file", "file", f.name, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.logger.Info("audit cleanup completed", "deleted", deleted)
	}
}

func (s *FileStore) cleanupLoop(ctx context.Context) {
	defer close(s.cleaned)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// warmCache loads the most recent non-empty file into the cache.
func (s *FileStore) warmCache() {
	files := s.files()
	for i := len(files) - 1; i >= 0; i-- {
		path := filepath.Join(s.dir, files[i].name)
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			continue
		}
		s.load(path)
		return
	}
}

func (s *FileStore) load(path string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Error("audit cache: failed to open file", "file", path, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r audit.Record
		if err := json.Unmarshal(line, &r); err != nil {
			s.logger.Warn("audit cache: skipping malformed line", "file", path, "error", err)
			continue
		}
		s.recent.add(r)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("audit cache: error reading file", "file", path, "error", err)
	}
}

// Compile-time interface verification.
var (
	_ audit.Store   = (*FileStore)(nil)
	_ audit.Querier = (*FileStore)(nil)
)

// ring is a fixed-size buffer of the most recent records.
type ring struct {
	mu      sync.RWMutex
	entries []audit.Record
	head    int
	count   int
}

func newRing(size int) *ring {
	return &ring{entries: make([]audit.Record, size)}
}

// add stores r, overwriting the oldest entry when full.
func (c *ring) add(r audit.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.head] = r
	c.head = (c.head + 1) % len(c.entries)
	if c.count < len(c.entries) {
		c.count++
	}
}

// query returns matching records, newest first.
func (c *ring) query(filter audit.Filter) []audit.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	limit := filter.EffectiveLimit()
	size := len(c.entries)
	var result []audit.Record
	for i := 0; i < c.count && len(result) < limit; i++ {
		r := c.entries[(c.head-1-i+size)%size]
		if filter.Matches(r) {
			result = append(result, r)
		}
	}
	return result
}
