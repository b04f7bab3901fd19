package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/domain"
)

type stubNotifier struct {
	scheduleFn func(ctx context.Context, n domain.Notification) error
}

func (s *stubNotifier) Schedule(ctx context.Context, n domain.Notification) error {
	return s.scheduleFn(ctx, n)
}

func TestNotificationService_HandleWake(t *testing.T) {
	var got domain.Notification
	notifier := &stubNotifier{scheduleFn: func(_ context.Context, n domain.Notification) error {
		got = n
		return nil
	}}
	svc := NewNotificationService(notifier, zerolog.Nop())

	at := time.Date(2026, 3, 4, 14, 5, 9, 0, time.Local)
	if err := svc.HandleWake(context.Background(), domain.WakeSignal{At: at, Source: "test"}); err != nil {
		t.Fatalf("HandleWake: %v", err)
	}

	if got.Title != "Background Task Running" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if got.Body != "Notification at 14:05:09" {
		t.Fatalf("unexpected body %q", got.Body)
	}
	if _, err := uuid.Parse(got.ID); err != nil {
		t.Fatalf("id is not a uuid: %q", got.ID)
	}
	if !got.At.Equal(at) {
		t.Fatalf("unexpected time %v", got.At)
	}
}

func TestNotificationService_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	notifier := &stubNotifier{scheduleFn: func(_ context.Context, n domain.Notification) error {
		if seen[n.ID] {
			t.Fatalf("duplicate id %s", n.ID)
		}
		seen[n.ID] = true
		return nil
	}}
	svc := NewNotificationService(notifier, zerolog.Nop())

	for i := 0; i < 5; i++ {
		if err := svc.HandleWake(context.Background(), domain.WakeSignal{}); err != nil {
			t.Fatalf("HandleWake: %v", err)
		}
	}
}

func TestNotificationService_NotifierError(t *testing.T) {
	boom := errors.New("permission denied")
	notifier := &stubNotifier{scheduleFn: func(context.Context, domain.Notification) error { return boom }}
	svc := NewNotificationService(notifier, zerolog.Nop())

	if err := svc.HandleWake(context.Background(), domain.WakeSignal{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped notifier error, got %v", err)
	}
}

func TestNotificationService_NotifierPanic(t *testing.T) {
	notifier := &stubNotifier{scheduleFn: func(context.Context, domain.Notification) error { panic("host crashed") }}
	svc := NewNotificationService(notifier, zerolog.Nop())

	if err := svc.HandleWake(context.Background(), domain.WakeSignal{}); err == nil {
		t.Fatalf("expected panic to surface as an error")
	}
}
