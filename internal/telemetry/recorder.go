// Package telemetry records token usage and runtime for generative-model
// invocations. Recording is best-effort: a full buffer or a failing sink
// never blocks or fails the pipeline.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/piloturl/test-analysis/internal/model"
)

// Sink persists telemetry records.
type Sink interface {
	AppendTelemetry(ctx context.Context, rec model.TelemetryRecord) error
}

// Recorder accepts telemetry records.
type Recorder interface {
	Record(rec model.TelemetryRecord)
}

// AsyncRecorder buffers records on a bounded channel and writes them to the
// sink from a single background goroutine. When the buffer is full the
// record is dropped with a warning.
type AsyncRecorder struct {
	ch      chan model.TelemetryRecord
	sink    Sink
	timeout time.Duration

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewAsyncRecorder starts a recorder writing to sink. bufferSize bounds the
// in-flight queue.
func NewAsyncRecorder(sink Sink, bufferSize int) *AsyncRecorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &AsyncRecorder{
		ch:      make(chan model.TelemetryRecord, bufferSize),
		sink:    sink,
		timeout: 5 * time.Second,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues a telemetry record without blocking. Records arriving
// after Close are dropped.
func (r *AsyncRecorder) Record(rec model.TelemetryRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	select {
	case <-r.quit:
		return
	default:
	}
	select {
	case r.ch <- rec:
	default:
		zap.L().Warn("telemetry: buffer full, dropping record",
			zap.Int("stage", rec.Stage),
			zap.String("usage", rec.Usage),
		)
	}
}

// Close stops accepting records and flushes the remaining queue.
func (r *AsyncRecorder) Close() {
	r.closeOnce.Do(func() {
		close(r.quit)
		<-r.done
	})
}

func (r *AsyncRecorder) drain() {
	defer close(r.done)
	for {
		select {
		case rec := <-r.ch:
			r.write(rec)
		case <-r.quit:
			for {
				select {
				case rec := <-r.ch:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *AsyncRecorder) write(rec model.TelemetryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.sink.AppendTelemetry(ctx, rec); err != nil {
		zap.L().Warn("telemetry: append failed",
			zap.Int("stage", rec.Stage),
			zap.Error(err),
		)
	}
}

// NopRecorder discards all records.
type NopRecorder struct{}

func (NopRecorder) Record(model.TelemetryRecord) {}
