package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/core/ports"
	"github.com/medtrack/careportal/internal/pkg/metrics"
)

const notificationTitle = "Background Task Running"

type notificationService struct {
	notifier ports.Notifier
	now      func() time.Time
	log      zerolog.Logger
}

// NewNotificationService returns the background wake hook. It holds no
// session and no persisted state.
func NewNotificationService(notifier ports.Notifier, log zerolog.Logger) ports.NotificationService {
	return &notificationService{notifier: notifier, now: time.Now, log: log}
}

// HandleWake schedules one local notification per wake signal. Panics in the
// notifier are converted to errors so a misbehaving host never takes the
// process down.
func (s *notificationService) HandleWake(ctx context.Context, wake domain.WakeSignal) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handle wake: notifier panicked: %v", r)
		}
		if err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			s.log.Error().Err(err).Str("source", wake.Source).Msg("background notification failed")
		}
	}()

	at := wake.At
	if at.IsZero() {
		at = s.now()
	}

	n := domain.Notification{
		ID:    uuid.NewString(),
		Title: notificationTitle,
		Body:  "Notification at " + at.Format(time.TimeOnly),
		At:    at,
	}
	if err := s.notifier.Schedule(ctx, n); err != nil {
		return fmt.Errorf("handle wake: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("scheduled").Inc()
	s.log.Debug().Str("notification_id", n.ID).Str("source", wake.Source).Msg("background notification sent")
	return nil
}
