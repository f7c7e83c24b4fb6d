package misslog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Drop reasons reported to the Observer.
const (
	DropBufferFull  = "buffer_full"
	DropClosed      = "closed"
	DropWriteFailed = "write_failed"
)

// Observer receives miss log activity, typically a metrics collector.
type Observer interface {
	ObserveMissesWritten(count int)
	ObserveMissDropped(reason string, count int)
}

// LoggerConfig contains configuration for the miss logger.
type LoggerConfig struct {
	// BufferSize is the capacity of the in-memory queue. Misses arriving
	// while the queue is full are dropped.
	// Default: 30
	BufferSize int

	// Threshold is the number of queued misses that triggers a batch write.
	// Default: 5
	Threshold int

	// FlushInterval writes a partial batch after this long.
	// Default: 5 seconds
	FlushInterval time.Duration

	// WriteTimeout bounds a single batch write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultLoggerConfig returns the default logger configuration.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		BufferSize:    30,
		Threshold:     5,
		FlushInterval: 5 * time.Second,
		WriteTimeout:  5 * time.Second,
	}
}

// Logger records misses asynchronously. LogMiss never blocks the request
// path: entries are queued and written in batches by a background worker.
type Logger struct {
	storage  Storage
	config   LoggerConfig
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	queue chan *Miss
	done  chan struct{}
	wg    sync.WaitGroup

	// mu orders enqueues against Close: once closed is set under the write
	// lock, nothing more reaches the queue and the worker's drain sees
	// every accepted miss.
	mu     sync.RWMutex
	closed bool
}

// NewLogger starts a logger writing to storage. observer and logger may be nil.
func NewLogger(storage Storage, config LoggerConfig, observer Observer, logger *slog.Logger) *Logger {
	defaults := DefaultLoggerConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.Threshold <= 0 {
		config.Threshold = defaults.Threshold
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Logger{
		storage:  storage,
		config:   config,
		observer: observer,
		logger:   logger.With("component", "misslog"),
		now:      time.Now,
		queue:    make(chan *Miss, config.BufferSize),
		done:     make(chan struct{}),
	}

	l.wg.Add(1)
	go l.worker()

	l.logger.Info("miss logger initialized",
		"buffer_size", config.BufferSize,
		"threshold", config.Threshold,
		"flush_interval", config.FlushInterval,
	)

	return l
}

// LogMiss queues a miss for writing. It returns immediately; when the queue
// is full or the logger is closed the miss is dropped.
func (l *Logger) LogMiss(ctx context.Context, path, referrer string) {
	m := &Miss{
		ID:          uuid.New().String(),
		Path:        path,
		Referrer:    referrer,
		RequestedAt: l.now().UTC(),
	}

	l.mu.RLock()
	reason := ""
	if l.closed {
		reason = DropClosed
	} else {
		select {
		case l.queue <- m:
		default:
			reason = DropBufferFull
		}
	}
	l.mu.RUnlock()

	if reason != "" {
		l.drop(reason, path)
	}
}

// Pending returns the number of queued misses not yet handed to the worker.
func (l *Logger) Pending() int {
	return len(l.queue)
}

// Close stops accepting misses, writes everything still queued and waits
// for the worker to exit. It is safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.logger.Info("shutting down miss logger", "pending_count", len(l.queue))
		close(l.done)
	}
	l.mu.Unlock()
	l.wg.Wait()
	return nil
}

func (l *Logger) worker() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Miss, 0, l.config.Threshold)

	for {
		select {
		case m := <-l.queue:
			batch = append(batch, m)
			if len(batch) >= l.config.Threshold {
				batch = l.flush(batch)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				batch = l.flush(batch)
			}

		case <-l.done:
			for {
				select {
				case m := <-l.queue:
					batch = append(batch, m)
				default:
					if len(batch) > 0 {
						l.flush(batch)
					}
					l.logger.Info("miss log drained")
					return
				}
			}
		}
	}
}

// flush writes the batch and returns an emptied slice for reuse.
func (l *Logger) flush(batch []*Miss) []*Miss {
	ctx, cancel := context.WithTimeout(context.Background(), l.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := l.storage.StoreBatch(ctx, batch)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("failed to write misses",
			"count", len(batch),
			"error", err,
		)
		if l.observer != nil {
			l.observer.ObserveMissDropped(DropWriteFailed, len(batch))
		}
	} else {
		l.logger.Debug("misses written",
			"count", len(batch),
			"duration_ms", duration.Milliseconds(),
		)
		if l.observer != nil {
			l.observer.ObserveMissesWritten(len(batch))
		}
		if duration > l.config.WriteTimeout/2 {
			l.logger.Warn("slow miss log write",
				"duration_ms", duration.Milliseconds(),
				"threshold_ms", (l.config.WriteTimeout / 2).Milliseconds(),
			)
		}
	}

	return batch[:0]
}

func (l *Logger) drop(reason, path string) {
	l.logger.Warn("dropping miss", "reason", reason, "path", path)
	if l.observer != nil {
		l.observer.ObserveMissDropped(reason, 1)
	}
}
