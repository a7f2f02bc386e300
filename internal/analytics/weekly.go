// Package analytics turns timestamped activity records into calendar-aligned
// summaries. Everything here is pure: no I/O, no shared state.
package analytics

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput is returned when the observer's instant or offset is missing or out of range.
var ErrInvalidInput = errors.New("invalid input")

const (
	// WindowDays is the number of local calendar days covered by a weekly report.
	WindowDays = 7

	// MinOffsetMinutes and MaxOffsetMinutes bound real-world UTC offsets (UTC-12:00 .. UTC+14:00).
	MinOffsetMinutes = -12 * 60
	MaxOffsetMinutes = 14 * 60

	// DateLayout is the local calendar date key used for buckets.
	DateLayout = "2006-01-02"
)

// Record is the subset of an activity the aggregator needs.
type Record struct {
	Category    string
	DurationMin int
	CreatedAt   time.Time
}

// Request describes the observer: the instant the report is served at and
// their local offset from UTC in minutes, positive east of Greenwich.
type Request struct {
	Now           time.Time
	OffsetMinutes *int
}

// Offset is a convenience for building a Request from a literal offset.
func Offset(minutes int) *int {
	return &minutes
}

// DailyAggregate is one bucket of the weekly report.
type DailyAggregate struct {
	Date            string         `json:"date"`
	DayLabel        string         `json:"dayLabel"`
	Categories      map[string]int `json:"categories"`
	TotalDayMinutes int            `json:"totalDayMinutes"`
	Entries         int            `json:"entries"`
}

func (r Request) location() (*time.Location, error) {
	if r.Now.IsZero() {
		return nil, fmt.Errorf("%w: reference time is required", ErrInvalidInput)
	}
	if r.OffsetMinutes == nil {
		return nil, fmt.Errorf("%w: utc offset is required", ErrInvalidInput)
	}
	offset := *r.OffsetMinutes
	if offset < MinOffsetMinutes || offset > MaxOffsetMinutes {
		return nil, fmt.Errorf("%w: utc offset %d minutes out of range [%d, %d]", ErrInvalidInput, offset, MinOffsetMinutes, MaxOffsetMinutes)
	}
	return fixedZone(offset), nil
}

// Window returns the UTC instants bounding the report: local midnight of the
// oldest day (inclusive) and local midnight after today (exclusive).
func Window(req Request) (start, end time.Time, err error) {
	loc, err := req.location()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	today := localMidnight(req.Now, loc)
	start = today.AddDate(0, 0, -(WindowDays - 1))
	end = today.AddDate(0, 0, 1)
	return start.UTC(), end.UTC(), nil
}

// LocalDate formats the calendar date of t as seen from the given offset.
// Weekly attributes every record to the bucket with this key.
func LocalDate(t time.Time, offsetMinutes int) string {
	return t.In(fixedZone(offsetMinutes)).Format(DateLayout)
}

func fixedZone(offsetMinutes int) *time.Location {
	return time.FixedZone(zoneName(offsetMinutes), offsetMinutes*60)
}

// Weekly buckets records into the seven local calendar days ending with the
// observer's today. Records falling outside the window are ignored. Either all
// seven buckets are returned or an error is.
func Weekly(req Request, records []Record) ([]DailyAggregate, error) {
	loc, err := req.location()
	if err != nil {
		return nil, err
	}

	today := localMidnight(req.Now, loc)
	days := make([]DailyAggregate, WindowDays)
	index := make(map[string]int, WindowDays)
	for i := range days {
		day := today.AddDate(0, 0, i-(WindowDays-1))
		key := day.Format(DateLayout)
		days[i] = DailyAggregate{
			Date:       key,
			DayLabel:   day.Weekday().String()[:3],
			Categories: make(map[string]int),
		}
		index[key] = i
	}

	for _, rec := range records {
		if rec.DurationMin <= 0 {
			return nil, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidInput, rec.DurationMin)
		}
		i, ok := index[LocalDate(rec.CreatedAt, *req.OffsetMinutes)]
		if !ok {
			continue
		}
		days[i].Categories[rec.Category] += rec.DurationMin
		days[i].TotalDayMinutes += rec.DurationMin
		days[i].Entries++
	}

	return days, nil
}

func localMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func zoneName(offsetMinutes int) string {
	sign := '+'
	if offsetMinutes < 0 {
		sign = '-'
		offsetMinutes = -offsetMinutes
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, offsetMinutes/60, offsetMinutes%60)
}
