package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func utc(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWeeklyReturnsSevenAscendingBucketsEndingToday(t *testing.T) {
	now := utc("2024-03-02T15:00:00Z")

	days, err := Weekly(Request{Now: now, OffsetMinutes: Offset(0)}, nil)
	require.NoError(t, err)
	require.Len(t, days, WindowDays)

	want := []string{"2024-02-25", "2024-02-26", "2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}
	for i, day := range days {
		require.Equal(t, want[i], day.Date)
		if i > 0 {
			require.Less(t, days[i-1].Date, day.Date)
		}
	}
	require.Equal(t, LocalDate(now, 0), days[len(days)-1].Date)
}

func TestWeeklyTodayFollowsObserverOffset(t *testing.T) {
	now := utc("2024-01-07T20:00:00Z")

	east, err := Weekly(Request{Now: now, OffsetMinutes: Offset(330)}, nil)
	require.NoError(t, err)
	require.Equal(t, "2024-01-08", east[WindowDays-1].Date)

	west, err := Weekly(Request{Now: now, OffsetMinutes: Offset(-300)}, nil)
	require.NoError(t, err)
	require.Equal(t, "2024-01-07", west[WindowDays-1].Date)
}

func TestWeeklyBucketsByLocalDate(t *testing.T) {
	created := utc("2024-01-01T23:30:00Z")
	now := utc("2024-01-03T12:00:00Z")
	records := []Record{{Category: "Work", DurationMin: 45, CreatedAt: created}}

	plusSix, err := Weekly(Request{Now: now, OffsetMinutes: Offset(6 * 60)}, records)
	require.NoError(t, err)
	require.Equal(t, 45, bucket(t, plusSix, "2024-01-02").Categories["Work"])
	require.Zero(t, bucket(t, plusSix, "2024-01-01").TotalDayMinutes)

	minusSix, err := Weekly(Request{Now: now, OffsetMinutes: Offset(-6 * 60)}, records)
	require.NoError(t, err)
	require.Equal(t, 45, bucket(t, minusSix, "2024-01-01").Categories["Work"])
	require.Zero(t, bucket(t, minusSix, "2024-01-02").TotalDayMinutes)
}

func TestWeeklyMergesSameDayCategory(t *testing.T) {
	now := utc("2024-05-10T18:00:00Z")
	records := []Record{
		{Category: "Study", DurationMin: 20, CreatedAt: utc("2024-05-09T08:00:00Z")},
		{Category: "Study", DurationMin: 15, CreatedAt: utc("2024-05-09T21:00:00Z")},
		{Category: "Break", DurationMin: 5, CreatedAt: utc("2024-05-09T10:00:00Z")},
	}

	days, err := Weekly(Request{Now: now, OffsetMinutes: Offset(0)}, records)
	require.NoError(t, err)

	day := bucket(t, days, "2024-05-09")
	require.Equal(t, map[string]int{"Study": 35, "Break": 5}, day.Categories)
	require.Equal(t, 40, day.TotalDayMinutes)
	require.Equal(t, 3, day.Entries)
}

func TestWeeklyKeepsEmptyDays(t *testing.T) {
	now := utc("2024-05-10T18:00:00Z")
	records := []Record{{Category: "Exercise", DurationMin: 30, CreatedAt: utc("2024-05-10T07:00:00Z")}}

	days, err := Weekly(Request{Now: now, OffsetMinutes: Offset(0)}, records)
	require.NoError(t, err)
	require.Len(t, days, WindowDays)

	for _, day := range days[:WindowDays-1] {
		require.NotNil(t, day.Categories)
		require.Empty(t, day.Categories)
		require.Zero(t, day.TotalDayMinutes)
		require.Zero(t, day.Entries)
	}
	require.Equal(t, 30, days[WindowDays-1].TotalDayMinutes)
}

func TestWeeklyCountsEveryInWindowRecordOnce(t *testing.T) {
	now := utc("2024-08-15T09:00:00Z")
	offset := 120
	start, end, err := Window(Request{Now: now, OffsetMinutes: Offset(offset)})
	require.NoError(t, err)

	var records []Record
	expected := 0
	for i := 0; i < 240; i++ {
		created := now.Add(-time.Duration(i) * 47 * time.Minute)
		rec := Record{Category: []string{"Work", "Study", "Other"}[i%3], DurationMin: i%50 + 1, CreatedAt: created}
		records = append(records, rec)
		if !created.Before(start) && created.Before(end) {
			expected += rec.DurationMin
		}
	}

	days, err := Weekly(Request{Now: now, OffsetMinutes: Offset(offset)}, records)
	require.NoError(t, err)

	total := 0
	for _, day := range days {
		total += day.TotalDayMinutes
		sum := 0
		for _, minutes := range day.Categories {
			sum += minutes
		}
		require.Equal(t, day.TotalDayMinutes, sum)
	}
	require.Equal(t, expected, total)
}

func TestWeeklyIsIdempotent(t *testing.T) {
	now := utc("2024-02-01T00:10:00Z")
	records := []Record{
		{Category: "Work", DurationMin: 60, CreatedAt: utc("2024-01-31T23:55:00Z")},
		{Category: "Other", DurationMin: 10, CreatedAt: utc("2024-01-27T12:00:00Z")},
	}
	req := Request{Now: now, OffsetMinutes: Offset(-90)}

	first, err := Weekly(req, records)
	require.NoError(t, err)
	second, err := Weekly(req, records)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWeeklyDayLabelsComeFromTheDate(t *testing.T) {
	now := utc("2024-01-07T12:00:00Z")

	for _, offset := range []int{-600, 0, 600} {
		days, err := Weekly(Request{Now: now, OffsetMinutes: Offset(offset)}, nil)
		require.NoError(t, err)
		for _, day := range days {
			parsed, err := time.Parse(DateLayout, day.Date)
			require.NoError(t, err)
			require.Equal(t, parsed.Weekday().String()[:3], day.DayLabel)
		}
	}

	days, err := Weekly(Request{Now: now, OffsetMinutes: Offset(0)}, nil)
	require.NoError(t, err)
	labels := make([]string, 0, len(days))
	for _, day := range days {
		labels = append(labels, day.DayLabel)
	}
	require.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, labels)
}

func TestWeeklyWindowBoundaries(t *testing.T) {
	now := utc("2024-01-07T20:00:00Z")
	req := Request{Now: now, OffsetMinutes: Offset(330)}

	start, end, err := Window(req)
	require.NoError(t, err)
	require.Equal(t, utc("2024-01-01T18:30:00Z"), start)
	require.Equal(t, utc("2024-01-08T18:30:00Z"), end)

	records := []Record{
		{Category: "Work", DurationMin: 1, CreatedAt: start},
		{Category: "Work", DurationMin: 2, CreatedAt: start.Add(-time.Nanosecond)},
		{Category: "Work", DurationMin: 4, CreatedAt: end.Add(-time.Nanosecond)},
		{Category: "Work", DurationMin: 8, CreatedAt: end},
	}
	days, err := Weekly(req, records)
	require.NoError(t, err)
	require.Equal(t, 1, days[0].TotalDayMinutes)
	require.Equal(t, 4, days[WindowDays-1].TotalDayMinutes)
}

func TestWeeklyRejectsInvalidInput(t *testing.T) {
	now := utc("2024-01-07T20:00:00Z")

	cases := map[string]Request{
		"missing now":    {OffsetMinutes: Offset(0)},
		"missing offset": {Now: now},
		"offset too far": {Now: now, OffsetMinutes: Offset(MaxOffsetMinutes + 1)},
		"offset too low": {Now: now, OffsetMinutes: Offset(MinOffsetMinutes - 1)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			days, err := Weekly(req, nil)
			require.Nil(t, days)
			require.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)

			_, _, err = Window(req)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestWeeklyRejectsNonPositiveDuration(t *testing.T) {
	now := utc("2024-01-07T20:00:00Z")
	_, err := Weekly(Request{Now: now, OffsetMinutes: Offset(0)}, []Record{{Category: "Work", DurationMin: 0, CreatedAt: now}})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func bucket(t *testing.T, days []DailyAggregate, date string) DailyAggregate {
	t.Helper()
	for _, day := range days {
		if day.Date == date {
			return day
		}
	}
	t.Fatalf("no bucket for %s", date)
	return DailyAggregate{}
}

func TestWeeklyBucketKeyIsLocalDate(t *testing.T) {
	now := utc("2024-01-07T20:00:00Z")
	created := utc("2024-01-04T23:45:00Z")

	for _, offset := range []int{MinOffsetMinutes, -330, 0, 15, 345, MaxOffsetMinutes} {
		days, err := Weekly(Request{Now: now, OffsetMinutes: Offset(offset)}, []Record{{Category: "Other", DurationMin: 5, CreatedAt: created}})
		require.NoError(t, err)

		day := bucket(t, days, LocalDate(created, offset))
		require.Equal(t, 5, day.Categories["Other"], "offset %d", offset)
	}
}
