package ports

import (
	"context"

	"github.com/medtrack/careportal/internal/core/domain"
)

// Notifier shows a local notification on the host.
type Notifier interface {
	Schedule(ctx context.Context, n domain.Notification) error
}

// NotificationService reacts to background wake signals.
type NotificationService interface {
	HandleWake(ctx context.Context, wake domain.WakeSignal) error
}
