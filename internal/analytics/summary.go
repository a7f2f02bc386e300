package analytics

import (
	"math"
	"sort"
	"time"
)

// DayHighlight identifies the busiest day of a report.
type DayHighlight struct {
	Date      string `json:"date"`
	DayLabel  string `json:"dayLabel"`
	DateLabel string `json:"dateLabel"`
	Minutes   int    `json:"minutes"`
}

// CategoryHighlight identifies the category with the most minutes.
type CategoryHighlight struct {
	Name    string `json:"name"`
	Minutes int    `json:"minutes"`
}

// Chart carries series aligned to the report's days, ready for plotting.
type Chart struct {
	Labels []string         `json:"labels"`
	Totals []int            `json:"totals"`
	Series map[string][]int `json:"series"`
}

// Summary folds a weekly report into dashboard figures.
type Summary struct {
	TotalMinutes          int                `json:"totalMinutes"`
	TotalEntries          int                `json:"totalEntries"`
	AverageSessionMinutes int                `json:"averageSessionMinutes"`
	CategoryTotals        map[string]int     `json:"categoryTotals"`
	CategoryOrder         []string           `json:"categoryOrder"`
	BestDay               *DayHighlight      `json:"bestDay,omitempty"`
	TopCategory           *CategoryHighlight `json:"topCategory,omitempty"`
	Chart                 Chart              `json:"chart"`
}

// Summarize computes totals, the best day and the top category over days.
// Days are visited in ascending date order; within a day categories are
// visited by name, which fixes the first-seen order used to break ties.
func Summarize(days []DailyAggregate) Summary {
	ordered := make([]DailyAggregate, len(days))
	copy(ordered, days)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date < ordered[j].Date })

	summary := Summary{
		CategoryTotals: make(map[string]int),
		CategoryOrder:  make([]string, 0),
		Chart: Chart{
			Labels: make([]string, 0, len(ordered)),
			Totals: make([]int, 0, len(ordered)),
			Series: make(map[string][]int),
		},
	}

	for _, day := range ordered {
		names := make([]string, 0, len(day.Categories))
		for name := range day.Categories {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if _, seen := summary.CategoryTotals[name]; !seen {
				summary.CategoryOrder = append(summary.CategoryOrder, name)
			}
			summary.CategoryTotals[name] += day.Categories[name]
		}

		summary.TotalMinutes += day.TotalDayMinutes
		summary.TotalEntries += day.Entries

		dateLabel := formatDateLabel(day.Date)
		if day.TotalDayMinutes > 0 && (summary.BestDay == nil || day.TotalDayMinutes > summary.BestDay.Minutes) {
			summary.BestDay = &DayHighlight{
				Date:      day.Date,
				DayLabel:  day.DayLabel,
				DateLabel: dateLabel,
				Minutes:   day.TotalDayMinutes,
			}
		}

		summary.Chart.Labels = append(summary.Chart.Labels, day.DayLabel+" "+dateLabel)
		summary.Chart.Totals = append(summary.Chart.Totals, day.TotalDayMinutes)
	}

	for _, name := range summary.CategoryOrder {
		series := make([]int, len(ordered))
		for i, day := range ordered {
			series[i] = day.Categories[name]
		}
		summary.Chart.Series[name] = series

		total := summary.CategoryTotals[name]
		if summary.TopCategory == nil || total > summary.TopCategory.Minutes {
			summary.TopCategory = &CategoryHighlight{Name: name, Minutes: total}
		}
	}

	if summary.TotalEntries > 0 {
		summary.AverageSessionMinutes = int(math.Round(float64(summary.TotalMinutes) / float64(summary.TotalEntries)))
	}
	return summary
}

// formatDateLabel renders a YYYY-MM-DD key as DD/MM.
func formatDateLabel(date string) string {
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return parsed.Format("02/01")
}
