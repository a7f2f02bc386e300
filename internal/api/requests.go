package api

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"example.com/habittracker/internal/analytics"
	"example.com/habittracker/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON object into dst, rejecting unknown shapes as validation errors.
func decodeBody(body io.Reader, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: unable to parse body", domain.ErrValidation)
	}
	return nil
}

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	ActivityName string `json:"activityName"`
	Duration     int    `json:"duration"`
	Category     string `json:"category"`
}

// Validate ensures request correctness before it reaches the service.
func (r CreateActivityRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.ActivityName) == "" {
		missing = append(missing, "activityName")
	}
	if strings.TrimSpace(r.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if r.Duration <= 0 {
		return fmt.Errorf("%w: duration must be greater than 0", domain.ErrValidation)
	}
	_, err := domain.ParseCategory(r.Category)
	return err
}

// ActivityView is the public representation of an activity.
type ActivityView struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	ActivityName string    `json:"activityName"`
	Duration     int       `json:"duration"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// WeeklyAnalyticsResponse carries the seven daily buckets, oldest first.
type WeeklyAnalyticsResponse struct {
	OffsetMinutes int                        `json:"tzOffset"`
	Days          []analytics.DailyAggregate `json:"days"`
}

// WeeklySummaryResponse adds the dashboard figures to the daily buckets.
type WeeklySummaryResponse struct {
	OffsetMinutes int                        `json:"tzOffset"`
	Days          []analytics.DailyAggregate `json:"days"`
	Summary       analytics.Summary          `json:"summary"`
}

// RegisterRequest is the payload for POST /v1/users/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for POST /v1/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest optionally carries the refresh token when no cookie is sent.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserView is the public representation of an account.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionResponse is returned by login and refresh.
type SessionResponse struct {
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ID:           a.ID,
		Owner:        a.OwnerID,
		ActivityName: a.Name,
		Duration:     a.DurationMin,
		Category:     string(a.Category),
		CreatedAt:    a.CreatedAt,
	}
}

func toActivityViews(items []domain.Activity) []ActivityView {
	out := make([]ActivityView, 0, len(items))
	for _, item := range items {
		out = append(out, toActivityView(item))
	}
	return out
}

func toUserView(u domain.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}
