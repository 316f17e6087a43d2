package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PresenceService derives free/busy from schedule rows at a point in time. It
// holds no state of its own; every call re-reads storage so polls never see a
// stale cache.
type PresenceService struct {
	db DB
}

func NewPresenceService(db DB) *PresenceService {
	return &PresenceService{db: db}
}

// IsFree reports whether the user has no entry covering now. The interval is
// half-open [start, end) so back-to-back classes don't both claim the boundary
// minute.
func (s *PresenceService) IsFree(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	var busy bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM schedule_items
			WHERE user_id = $1
			  AND day_of_week = $2
			  AND start_time <= $3
			  AND end_time > $3
		)`,
		userID, scheduleWeekday(now), clockTime(now),
	).Scan(&busy)
	if err != nil {
		return false, fmt.Errorf("checking presence: %w", err)
	}
	return !busy, nil
}

// BatchFreeStatus evaluates every user independently in one query. Users with
// no entries today simply come back free; an empty schedule is not an error.
func (s *PresenceService) BatchFreeStatus(ctx context.Context, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error) {
	status := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		status[id] = true
	}
	if len(userIDs) == 0 {
		return status, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT user_id FROM schedule_items
		 WHERE user_id = ANY($1)
		   AND day_of_week = $2
		   AND start_time <= $3
		   AND end_time > $3`,
		userIDs, scheduleWeekday(now), clockTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("batch presence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning busy user: %w", err)
		}
		status[id] = false
	}

	return status, nil
}

// scheduleWeekday maps time.Weekday (Sunday=0) onto the schedule's Monday=0
// frame.
func scheduleWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// clockTime renders t as a zero-padded "HH:MM" string, the format schedule
// rows store and compare.
func clockTime(t time.Time) string {
	return t.Format("15:04")
}
