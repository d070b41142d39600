package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Closer flushes buffered log output on shutdown.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncHandler decouples logging from request handling: records are queued
// to a single drain goroutine, and dropped (counted) when the queue is full.
// Run polling emits bursts of records that must never stall an exchange.
type asyncHandler struct {
	inner   slog.Handler
	queue   chan slog.Record
	done    chan struct{}
	dropped *atomic.Int64
}

func newAsyncHandler(inner slog.Handler, depth int) *asyncHandler {
	h := &asyncHandler{
		inner:   inner,
		queue:   make(chan slog.Record, depth),
		done:    make(chan struct{}),
		dropped: &atomic.Int64{},
	}
	go h.drain()
	return h
}

func (h *asyncHandler) drain() {
	defer close(h.done)
	for rec := range h.queue {
		_ = h.inner.Handle(context.Background(), rec)
	}
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(_ context.Context, rec slog.Record) error {
	select {
	case h.queue <- rec:
	default:
		h.dropped.Add(1)
	}
	return nil
}

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncHandler{inner: h.inner.WithAttrs(attrs), queue: h.queue, done: h.done, dropped: h.dropped}
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{inner: h.inner.WithGroup(name), queue: h.queue, done: h.done, dropped: h.dropped}
}

func (h *asyncHandler) droppedCount() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and waits for the queue to drain.
func (h *asyncHandler) Close() {
	close(h.queue)
	<-h.done
}
