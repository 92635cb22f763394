package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops a logger built by New.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// queue is the buffer and worker pool shared by an AsyncHandler and every
// handler derived from it through WithAttrs or WithGroup.
type queue struct {
	records chan queued
	workers sync.WaitGroup
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// queued pairs a record with the handler chain that must write it.
type queued struct {
	rec  slog.Record
	dest slog.Handler
}

func (q *queue) run() {
	defer q.workers.Done()
	for item := range q.records {
		_ = item.dest.Handle(context.Background(), item.rec)
	}
}

// offer enqueues without blocking and counts the record as dropped when the
// buffer is full or the queue is closed.
func (q *queue) offer(item queued) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.closed {
		select {
		case q.records <- item:
			return
		default:
		}
	}
	q.dropped.Add(1)
}

func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.records)
	q.mu.Unlock()
	q.workers.Wait()
}

// AsyncHandler writes records to an inner handler from a pool of workers so
// request handlers never wait on log output. Records that do not fit in the
// buffer are dropped and counted.
type AsyncHandler struct {
	inner slog.Handler
	q     *queue
}

// NewAsyncHandler starts workers goroutines draining a buffer of size records.
func NewAsyncHandler(inner slog.Handler, size, workers int) *AsyncHandler {
	q := &queue{records: make(chan queued, size)}
	q.workers.Add(workers)
	for range workers {
		go q.run()
	}
	return &AsyncHandler{inner: inner, q: q}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.offer(queued{rec: rec.Clone(), dest: h.inner})
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of records that were never written.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close writes every buffered record and stops the workers. Later records
// are dropped. Close is idempotent.
func (h *AsyncHandler) Close() {
	h.q.close()
}
