package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/domain"
)

type stubNotificationService struct {
	mu       sync.Mutex
	handled  []domain.WakeSignal
	handleFn func(ctx context.Context, wake domain.WakeSignal) error
}

func (s *stubNotificationService) HandleWake(ctx context.Context, wake domain.WakeSignal) error {
	s.mu.Lock()
	s.handled = append(s.handled, wake)
	s.mu.Unlock()
	if s.handleFn != nil {
		return s.handleFn(ctx, wake)
	}
	return nil
}

func (s *stubNotificationService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handled)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestDispatcher_ProcessesWakes(t *testing.T) {
	svc := &stubNotificationService{}
	d := NewDispatcher(2, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := 0; i < 5; i++ {
		if !d.Enqueue(domain.WakeSignal{Source: "test"}) {
			t.Fatalf("enqueue %d refused", i)
		}
	}
	waitFor(t, func() bool { return svc.count() == 5 })

	cancel()
	d.Wait()
}

func TestDispatcher_FailuresDoNotStopWorkers(t *testing.T) {
	svc := &stubNotificationService{handleFn: func(context.Context, domain.WakeSignal) error {
		return errors.New("notifier unavailable")
	}}
	d := NewDispatcher(1, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Enqueue(domain.WakeSignal{})
	d.Enqueue(domain.WakeSignal{})
	waitFor(t, func() bool { return svc.count() == 2 })

	cancel()
	d.Wait()
}

func TestDispatcher_EnqueueFullQueue(t *testing.T) {
	d := NewDispatcher(1, &stubNotificationService{}, zerolog.Nop())

	for i := 0; i < channelBuffer; i++ {
		if !d.Enqueue(domain.WakeSignal{}) {
			t.Fatalf("enqueue %d refused before the buffer filled", i)
		}
	}
	if d.Enqueue(domain.WakeSignal{}) {
		t.Fatalf("expected a full queue to refuse the wake")
	}
}

func TestDispatcher_RunTicker(t *testing.T) {
	svc := &stubNotificationService{}
	d := NewDispatcher(1, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		d.RunTicker(ctx, 10*time.Millisecond)
		close(done)
	}()
	waitFor(t, func() bool { return svc.count() >= 2 })

	cancel()
	<-done
	d.Wait()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.handled[0].Source != "ticker" {
		t.Fatalf("unexpected source %q", svc.handled[0].Source)
	}
}

func TestDispatcher_RunTickerDisabled(t *testing.T) {
	d := NewDispatcher(1, &stubNotificationService{}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		d.RunTicker(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("a zero interval must return immediately")
	}
}
