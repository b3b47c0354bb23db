package batch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"skillpulse/internal/domain"
)

// DefaultCleanupDays is the retention applied when the caller passes no
// explicit cutoff.
const DefaultCleanupDays = 90

// Cleanup deletes analytics events older than daysOld and read notifications
// older than the same cutoff. Not on the periodic schedule; reachable only
// through the on-demand control surface. daysOld <= 0 means the default.
func (j *Jobs) Cleanup(ctx context.Context, daysOld int) (domain.CleanupSummary, error) {
	if daysOld <= 0 {
		daysOld = DefaultCleanupDays
	}
	cutoff := j.now().AddDate(0, 0, -daysOld)
	summary := domain.CleanupSummary{DaysOld: daysOld}

	var err error
	if summary.EventsDeleted, err = j.events.DeleteEventsBefore(ctx, cutoff); err != nil {
		return summary, fmt.Errorf("delete old events: %w", err)
	}
	if summary.NotificationsDeleted, err = j.notifications.DeleteReadBefore(ctx, cutoff); err != nil {
		return summary, fmt.Errorf("delete old notifications: %w", err)
	}

	log.Info().
		Int("days_old", daysOld).
		Int64("events", summary.EventsDeleted).
		Int64("notifications", summary.NotificationsDeleted).
		Msg("cleaned up old data")
	return summary, nil
}
