// Package notify provides local notification sinks for the background hook.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/domain"
)

// LogNotifier "shows" notifications by logging them, which is where a headless
// host surfaces them. It also remembers the most recent ones for the portal's
// device page.
type LogNotifier struct {
	log  zerolog.Logger
	keep int

	mu     sync.Mutex
	recent []domain.Notification
	sent   int
}

// NewLogNotifier keeps up to keep recent notifications (10 when keep <= 0).
func NewLogNotifier(log zerolog.Logger, keep int) *LogNotifier {
	if keep <= 0 {
		keep = 10
	}
	return &LogNotifier{log: log, keep: keep}
}

func (n *LogNotifier) Schedule(_ context.Context, note domain.Notification) error {
	n.log.Info().
		Str("notification_id", note.ID).
		Str("title", note.Title).
		Str("body", note.Body).
		Msg("local notification")

	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	n.recent = append(n.recent, note)
	if len(n.recent) > n.keep {
		n.recent = n.recent[len(n.recent)-n.keep:]
	}
	return nil
}

// Recent returns the newest notifications, oldest first, and the total sent.
func (n *LogNotifier) Recent() ([]domain.Notification, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Notification, len(n.recent))
	copy(out, n.recent)
	return out, n.sent
}
