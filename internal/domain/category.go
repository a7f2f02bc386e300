package domain

import (
	"fmt"
	"strings"
)

// Category is the closed set of activity tags.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryStudy    Category = "Study"
	CategoryExercise Category = "Exercise"
	CategoryBreak    Category = "Break"
	CategoryOther    Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryWork, CategoryStudy, CategoryExercise, CategoryBreak, CategoryOther}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory returns the category named by value. Matching is exact after trimming.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.TrimSpace(value))
	if c == "" {
		return "", fmt.Errorf("%w: category is required", ErrValidation)
	}
	if !c.Valid() {
		return "", fmt.Errorf("%w: category must be one of Work, Study, Exercise, Break, Other", ErrValidation)
	}
	return c, nil
}
