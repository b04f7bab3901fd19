package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/core/ports"
	"github.com/medtrack/careportal/internal/pkg/metrics"
)

const (
	defaultWorkers = 1
	channelBuffer  = 16
)

// Dispatcher hands background wake signals to a small pool of workers that
// run the notification hook. A failing hook is logged and never stops a worker.
type Dispatcher struct {
	queue   chan domain.WakeSignal
	workers int
	service ports.NotificationService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.NotificationService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Dispatcher{
		queue:   make(chan domain.WakeSignal, channelBuffer),
		workers: numWorkers,
		service: service,
		log:     log,
	}
}

// Start launches the workers. They stop when ctx is cancelled; Wait blocks
// until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue offers a wake signal without blocking. It reports false when the
// queue is full; a dropped wake is harmless because the next one produces an
// equivalent notification.
func (d *Dispatcher) Enqueue(wake domain.WakeSignal) bool {
	select {
	case d.queue <- wake:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		d.log.Warn().Str("source", wake.Source).Msg("notification queue full, dropping wake signal")
		return false
	}
}

// RunTicker enqueues a wake signal every interval until ctx is cancelled.
// A non-positive interval disables the ticker.
func (d *Dispatcher) RunTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			d.Enqueue(domain.WakeSignal{At: now, Source: "ticker"})
		}
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case wake := <-d.queue:
			metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
			if err := d.service.HandleWake(ctx, wake); err != nil {
				d.log.Error().Err(err).
					Str("source", wake.Source).
					Int("worker_id", id).
					Msg("wake signal processing failed")
			}
		}
	}
}
