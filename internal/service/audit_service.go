package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sentinel-Gate/beanguard/internal/domain/audit"
)

// finalFlushTimeout bounds the flush performed when the worker shuts down.
const finalFlushTimeout = 5 * time.Second

// AuditService persists audit records asynchronously with a buffered channel
// and a background worker, so validation calls never wait on the store.
type AuditService struct {
	store         audit.Store
	records       chan audit.Record
	wg            sync.WaitGroup
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	// mu guards closing records against concurrent sends.
	mu      sync.RWMutex
	stopped bool

	channelSize int
	sendTimeout time.Duration // 0 = drop immediately, >0 = block up to this duration
	dropCount   atomic.Int64
	drops       prometheus.Counter

	warningThreshold int          // percent of capacity
	lastWarning      atomic.Int64 // unix nanos, rate-limits warnings

	adaptiveFlushThreshold int // percent of capacity that triggers faster flushing
}

// AuditOption configures AuditService.
type AuditOption func(*AuditService)

// WithBatchSize sets the number of records to batch before writing.
func WithBatchSize(size int) AuditOption {
	return func(s *AuditService) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithFlushInterval sets the interval to flush pending records.
func WithFlushInterval(interval time.Duration) AuditOption {
	return func(s *AuditService) {
		if interval > 0 {
			s.flushInterval = interval
		}
	}
}

// WithChannelSize sets the size of the record buffer.
func WithChannelSize(size int) AuditOption {
	return func(s *AuditService) {
		if size > 0 {
			s.records = make(chan audit.Record, size)
			s.channelSize = size
		}
	}
}

// WithSendTimeout sets the backpressure timeout.
// 0 = drop immediately (no blocking), >0 = block up to this duration before dropping.
func WithSendTimeout(timeout time.Duration) AuditOption {
	return func(s *AuditService) {
		s.sendTimeout = timeout
	}
}

// WithWarningThreshold sets the buffer depth warning percentage (0-100).
func WithWarningThreshold(percent int) AuditOption {
	return func(s *AuditService) {
		s.warningThreshold = clampPercent(percent)
	}
}

// WithAdaptiveFlushThreshold sets the buffer depth % above which the flush
// interval drops to a quarter of normal. 0 disables adaptive flushing.
func WithAdaptiveFlushThreshold(percent int) AuditOption {
	return func(s *AuditService) {
		s.adaptiveFlushThreshold = clampPercent(percent)
	}
}

// WithDropCounter mirrors dropped records onto a Prometheus counter.
func WithDropCounter(c prometheus.Counter) AuditOption {
	return func(s *AuditService) {
		s.drops = c
	}
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}

// NewAuditService creates a new AuditService with the given store and options.
func NewAuditService(store audit.Store, logger *slog.Logger, opts ...AuditOption) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	const defaultChannelSize = 1000
	s := &AuditService{
		store:                  store,
		records:                make(chan audit.Record, defaultChannelSize),
		logger:                 logger,
		batchSize:              100,
		flushInterval:          time.Second,
		channelSize:            defaultChannelSize,
		sendTimeout:            100 * time.Millisecond,
		warningThreshold:       80,
		adaptiveFlushThreshold: 80,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background worker that batches and writes records.
func (s *AuditService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Record implements audit.Recorder. It tries a non-blocking send first, then
// blocks up to the send timeout; a record that still does not fit is dropped
// and counted. Records arriving after Stop are dropped.
func (s *AuditService) Record(record audit.Record) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		s.recordDrop(record)
		return
	}

	if s.warningThreshold > 0 {
		depth := len(s.records)
		if depth >= s.channelSize*s.warningThreshold/100 {
			s.warnChannelDepth(depth)
		}
	}

	select {
	case s.records <- record:
		return
	default:
	}

	if s.sendTimeout <= 0 {
		s.recordDrop(record)
		return
	}

	timer := time.NewTimer(s.sendTimeout)
	defer timer.Stop()
	select {
	case s.records <- record:
	case <-timer.C:
		s.recordDrop(record)
	}
}

func (s *AuditService) recordDrop(record audit.Record) {
	drops := s.dropCount.Add(1)
	if s.drops != nil {
		s.drops.Inc()
	}
	s.logger.Warn("audit record dropped",
		"kind", record.Kind,
		"bean_type", record.BeanType,
		"execution_id", record.ExecutionID,
		"total_drops", drops,
	)
}

// warnChannelDepth logs at most once per second.
func (s *AuditService) warnChannelDepth(depth int) {
	now := time.Now().UnixNano()
	last := s.lastWarning.Load()
	if now-last < int64(time.Second) {
		return
	}
	if s.lastWarning.CompareAndSwap(last, now) {
		s.logger.Warn("audit buffer approaching capacity",
			"depth", depth,
			"capacity", s.channelSize,
			"percent", depth*100/s.channelSize,
		)
	}
}

// DroppedRecords returns the total number of dropped records.
func (s *AuditService) DroppedRecords() int64 {
	return s.dropCount.Load()
}

// ChannelDepth returns the number of buffered records.
func (s *AuditService) ChannelDepth() int {
	return len(s.records)
}

// ChannelCapacity returns the buffer size.
func (s *AuditService) ChannelCapacity() int {
	return s.channelSize
}

// Stop signals the worker to stop, waits for it to write pending records and
// flushes the store. It is safe to call more than once.
func (s *AuditService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.records)
	s.mu.Unlock()

	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()
	if err := s.store.Flush(ctx); err != nil {
		s.logger.Error("failed to flush audit store", "error", err)
	}
}

// pressure returns the buffer depth as a percentage of capacity.
func (s *AuditService) pressure() int {
	return len(s.records) * 100 / s.channelSize
}

func (s *AuditService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]audit.Record, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	fastMode := false

	// finish writes the pending batch once ctx can no longer be used.
	finish := func() {
		if len(batch) > 0 {
			flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			s.write(flushCtx, batch)
			cancel()
			batch = batch[:0]
		}
	}

	for {
		select {
		case record, ok := <-s.records:
			if !ok {
				finish()
				return
			}
			batch = append(batch, record)

			adaptive := s.adaptiveFlushThreshold > 0
			underPressure := adaptive && s.pressure() >= s.adaptiveFlushThreshold
			if len(batch) >= s.batchSize || underPressure {
				s.write(ctx, batch)
				batch = batch[:0]
			}

			if !adaptive {
				continue
			}
			switch {
			case underPressure && !fastMode:
				ticker.Reset(s.flushInterval / 4)
				fastMode = true
				s.logger.Debug("audit adaptive flush: entering fast mode", "interval", s.flushInterval/4)
			case !underPressure && fastMode:
				ticker.Reset(s.flushInterval)
				fastMode = false
				s.logger.Debug("audit adaptive flush: returning to normal mode", "interval", s.flushInterval)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.write(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			// Keep writing until Stop closes the channel.
			for record := range s.records {
				batch = append(batch, record)
				if len(batch) >= s.batchSize {
					finish()
				}
			}
			finish()
			return
		}
	}
}

// write appends a batch to the store. Errors are logged and not propagated:
// auditing must never fail a validation.
func (s *AuditService) write(ctx context.Context, batch []audit.Record) {
	if err := s.store.Append(ctx, batch...); err != nil {
		s.logger.Error("failed to write audit batch",
			"error", err,
			"count", len(batch),
		)
	}
}

// Compile-time check that AuditService implements audit.Recorder.
var _ audit.Recorder = (*AuditService)(nil)
