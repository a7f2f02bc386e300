// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"example.com/habittracker/internal/domain"
)

// EncodeCursor serialises the cursor to a string token.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%s|%s", c.CreatedAt.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the encoded cursor token. An empty token means "from the start".
func DecodeCursor(token string) (*domain.Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, err
	}
	return &domain.Cursor{CreatedAt: ts.UTC(), ID: parts[1]}, nil
}

// Before reports whether a sorts after the cursor position in newest-first order.
func Before(a domain.Activity, c *domain.Cursor) bool {
	if c == nil {
		return true
	}
	if a.CreatedAt.Equal(c.CreatedAt) {
		return a.ID < c.ID
	}
	return a.CreatedAt.Before(c.CreatedAt)
}

// SortNewestFirst orders activities by creation time descending, then id descending.
func SortNewestFirst(items []domain.Activity) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// Page trims a newest-first slice to limit and derives the next cursor.
func Page(items []domain.Activity, limit int) ([]domain.Activity, *domain.Cursor) {
	if limit <= 0 || len(items) < limit {
		return items, nil
	}
	items = items[:limit]
	last := items[len(items)-1]
	return items, &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
}
