// Package domain defines the business logic for the habit tracker.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/habittracker/internal/analytics"
	"example.com/habittracker/internal/observability"
)

const dayLength = 24 * time.Hour

// Service orchestrates activity workflows. Every operation is scoped to the
// owner id supplied by the caller's authenticated identity.
type Service struct {
	repo  ActivityRepository
	clock func() time.Time
}

// ServiceOption configures optional behaviour for the Service.
type ServiceOption func(*Service)

// WithClock overrides the source of the current instant.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs a Service.
func NewService(repo ActivityRepository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateActivityInput captures the payload from the API layer.
type CreateActivityInput struct {
	OwnerID     string
	Name        string
	DurationMin int
	Category    string
}

// Validate checks the fields supplied by the client.
func (in CreateActivityInput) Validate() (Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", fmt.Errorf("%w: activity name is required", ErrValidation)
	}
	if in.DurationMin <= 0 {
		return "", fmt.Errorf("%w: duration must be greater than 0", ErrValidation)
	}
	return ParseCategory(in.Category)
}

// CreateActivity validates and persists a new activity stamped with the current time.
func (s *Service) CreateActivity(ctx context.Context, input CreateActivityInput) (*Activity, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrUnauthenticated)
	}
	category, err := input.Validate()
	if err != nil {
		return nil, err
	}

	activity := Activity{
		ID:          uuid.NewString(),
		OwnerID:     input.OwnerID,
		Name:        strings.TrimSpace(input.Name),
		DurationMin: input.DurationMin,
		Category:    category,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("creating activity: %w", err)
	}

	observability.RecordActivityCreated(string(category))
	observability.RecordActivityPersisted(activity.CreatedAt)
	return &activity, nil
}

// ListActivitiesInput filters the newest-first history.
type ListActivitiesInput struct {
	Category string
	Cursor   *Cursor
	Limit    int
}

// ListActivities returns the owner's activities, newest first.
func (s *Service) ListActivities(ctx context.Context, ownerID string, input ListActivitiesInput) ([]Activity, *Cursor, error) {
	query := ListQuery{Cursor: input.Cursor, Limit: input.Limit}
	if strings.TrimSpace(input.Category) != "" {
		category, err := ParseCategory(input.Category)
		if err != nil {
			return nil, nil, err
		}
		query.Category = category
	}
	return s.repo.ListByOwner(ctx, ownerID, query)
}

// ListActivitiesByRange returns activities between two UTC days. The end day
// is included through its last instant.
func (s *Service) ListActivitiesByRange(ctx context.Context, ownerID, startDate, endDate string) ([]Activity, error) {
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return nil, fmt.Errorf("%w: start date and end date are required", ErrValidation)
	}
	start, err := parseDay(startDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDay(endDate)
	if err != nil {
		return nil, err
	}
	end = end.Add(dayLength - time.Nanosecond)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date must not be before start date", ErrValidation)
	}

	items, _, err := s.repo.ListByOwner(ctx, ownerID, ListQuery{Start: start, End: end})
	return items, err
}

// ListActivitiesByDate returns the activities of a single UTC day.
func (s *Service) ListActivitiesByDate(ctx context.Context, ownerID, date string) ([]Activity, error) {
	if strings.TrimSpace(date) == "" {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	start, err := parseDay(date)
	if err != nil {
		return nil, err
	}

	items, _, err := s.repo.ListByOwner(ctx, ownerID, ListQuery{Start: start, End: start.Add(dayLength - time.Nanosecond)})
	return items, err
}

// GetActivity fetches one activity owned by ownerID.
func (s *Service) GetActivity(ctx context.Context, ownerID, activityID string) (*Activity, error) {
	activity, err := s.repo.Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, fmt.Errorf("%w: activity %s", ErrNotFound, activityID)
	}
	if activity.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: activity belongs to another user", ErrForbidden)
	}
	return activity, nil
}

// DeleteActivity removes an activity after confirming it exists and is owned by ownerID.
func (s *Service) DeleteActivity(ctx context.Context, ownerID, activityID string) error {
	activity, err := s.GetActivity(ctx, ownerID, activityID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, *activity); err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	observability.RecordActivityDeleted()
	return nil
}

// WeeklyAnalytics builds the seven-day report ending at the observer's local today.
// offsetMinutes is the observer's UTC offset, positive east of UTC.
func (s *Service) WeeklyAnalytics(ctx context.Context, ownerID string, offsetMinutes *int) (days []analytics.DailyAggregate, err error) {
	started := time.Now()
	defer func() { observability.ObserveWeekly(started, err) }()

	req := analytics.Request{Now: s.clock().UTC(), OffsetMinutes: offsetMinutes}
	start, end, err := analytics.Window(req)
	if err != nil {
		return nil, err
	}

	items, _, err := s.repo.ListByOwner(ctx, ownerID, ListQuery{Start: start, End: end.Add(-time.Nanosecond)})
	if err != nil {
		return nil, fmt.Errorf("loading weekly activities: %w", err)
	}

	records := make([]analytics.Record, 0, len(items))
	for _, item := range items {
		records = append(records, analytics.Record{
			Category:    string(item.Category),
			DurationMin: item.DurationMin,
			CreatedAt:   item.CreatedAt,
		})
	}
	return analytics.Weekly(req, records)
}

// WeeklyReport pairs the daily buckets with their dashboard summary.
type WeeklyReport struct {
	Days    []analytics.DailyAggregate
	Summary analytics.Summary
}

// WeeklySummary runs WeeklyAnalytics and folds the result into dashboard figures.
func (s *Service) WeeklySummary(ctx context.Context, ownerID string, offsetMinutes *int) (*WeeklyReport, error) {
	days, err := s.WeeklyAnalytics(ctx, ownerID, offsetMinutes)
	if err != nil {
		return nil, err
	}
	return &WeeklyReport{Days: days, Summary: analytics.Summarize(days)}, nil
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the start
// of that UTC day.
func parseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(analytics.DateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date (want YYYY-MM-DD)", ErrValidation, value)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
