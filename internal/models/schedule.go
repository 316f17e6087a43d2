package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleItem is one block of a user's weekly time-table. Times are "HH:MM"
// 24-hour strings compared lexicographically; days run Monday=0 through
// Sunday=6. Overlapping items for the same day are allowed.
type ScheduleItem struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"-"`
	DayOfWeek  int       `json:"day_of_week"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	CourseName string    `json:"course_name"`
	CreatedAt  time.Time `json:"-"`
}

type CreateScheduleItemParams struct {
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	CourseName string `json:"course_name"`
}
