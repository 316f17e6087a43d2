package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gelapp/gel/internal/models"
)

var (
	ErrInvalidScheduleEntry = errors.New("invalid schedule entry")
	ErrEntryNotFound        = errors.New("schedule entry not found")
)

// ScheduleService owns per-user time-table entries. Overlapping entries for the
// same day are allowed; presence evaluation treats their union as busy.
type ScheduleService struct {
	db DB
}

func NewScheduleService(db DB) *ScheduleService {
	return &ScheduleService{db: db}
}

// AddEntry validates and inserts one entry. Entries are replaced, not patched:
// there is no partial update.
func (s *ScheduleService) AddEntry(ctx context.Context, ownerID uuid.UUID, params models.CreateScheduleItemParams) (*models.ScheduleItem, error) {
	if err := validateEntry(params); err != nil {
		return nil, err
	}

	item := &models.ScheduleItem{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO schedule_items (user_id, day_of_week, start_time, end_time, course_name)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, day_of_week, start_time, end_time, course_name, created_at`,
		ownerID, params.DayOfWeek, params.StartTime, params.EndTime, params.CourseName,
	).Scan(&item.ID, &item.UserID, &item.DayOfWeek, &item.StartTime, &item.EndTime, &item.CourseName, &item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating schedule entry: %w", err)
	}

	return item, nil
}

// DeleteEntry removes an entry owned by ownerID. A second delete of the same id
// fails with ErrEntryNotFound so callers can detect the double delete.
func (s *ScheduleService) DeleteEntry(ctx context.Context, ownerID, entryID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM schedule_items WHERE id = $1 AND user_id = $2",
		entryID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting schedule entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListEntries returns all entries for the owner. Display ordering (day, then
// start) is applied here for convenience; callers may re-sort.
func (s *ScheduleService) ListEntries(ctx context.Context, ownerID uuid.UUID) ([]models.ScheduleItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, day_of_week, start_time, end_time, course_name, created_at
		 FROM schedule_items
		 WHERE user_id = $1
		 ORDER BY day_of_week, start_time`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing schedule entries: %w", err)
	}
	defer rows.Close()

	var items []models.ScheduleItem
	for rows.Next() {
		var item models.ScheduleItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.DayOfWeek, &item.StartTime, &item.EndTime, &item.CourseName, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning schedule entry: %w", err)
		}
		items = append(items, item)
	}

	if items == nil {
		items = []models.ScheduleItem{}
	}

	return items, nil
}

// IngestResult reports the outcome of a batch ingest: rows that made it in and
// rows that were rejected, by input position.
type IngestResult struct {
	Added  []models.ScheduleItem `json:"added"`
	Failed []IngestFailure       `json:"failed"`
}

type IngestFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// IngestRows adds parsed rows one at a time. A malformed row is reported and
// skipped; the remaining rows still commit. Partial commit is deliberate: a
// screenshot parse that gets 9 of 10 rows right should not lose the 9.
func (s *ScheduleService) IngestRows(ctx context.Context, ownerID uuid.UUID, rows []models.CreateScheduleItemParams) (*IngestResult, error) {
	result := &IngestResult{
		Added:  []models.ScheduleItem{},
		Failed: []IngestFailure{},
	}

	for i, params := range rows {
		item, err := s.AddEntry(ctx, ownerID, params)
		if errors.Is(err, ErrInvalidScheduleEntry) {
			result.Failed = append(result.Failed, IngestFailure{Row: i, Reason: err.Error()})
			continue
		}
		if err != nil {
			// Storage failure aborts the batch; the caller re-lists to see
			// what committed before retrying.
			return nil, err
		}
		result.Added = append(result.Added, *item)
	}

	return result, nil
}

func validateEntry(params models.CreateScheduleItemParams) error {
	if params.DayOfWeek < 0 || params.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidScheduleEntry, params.DayOfWeek)
	}
	if !validClockTime(params.StartTime) {
		return fmt.Errorf("%w: start_time %q is not HH:MM", ErrInvalidScheduleEntry, params.StartTime)
	}
	if !validClockTime(params.EndTime) {
		return fmt.Errorf("%w: end_time %q is not HH:MM", ErrInvalidScheduleEntry, params.EndTime)
	}
	// Lexicographic comparison is chronological for zero-padded HH:MM.
	if params.StartTime >= params.EndTime {
		return fmt.Errorf("%w: start_time %s must be before end_time %s", ErrInvalidScheduleEntry, params.StartTime, params.EndTime)
	}
	return nil
}

func validClockTime(v string) bool {
	if len(v) != 5 || v[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	hour := int(v[0]-'0')*10 + int(v[1]-'0')
	minute := int(v[3]-'0')*10 + int(v[4]-'0')
	return hour <= 23 && minute <= 59
}
