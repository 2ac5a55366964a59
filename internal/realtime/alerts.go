package realtime

import (
	"context"
	"time"
)

// StatusMessage is the periodic operator notice pushed to every stream.
const StatusMessage = "System status: All systems operational"

// RunStatusAlerts publishes a system_alert every interval until ctx is
// cancelled. A non-positive interval disables it.
func RunStatusAlerts(ctx context.Context, pub Publisher, interval time.Duration, now func() time.Time) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pub.Publish(AlertEvent(StatusMessage, now()))
		}
	}
}
