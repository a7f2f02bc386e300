package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		parsed, err := ParseCategory(" " + string(c) + " ")
		require.NoError(t, err)
		require.Equal(t, c, parsed)
	}

	for _, bad := range []string{"", "   ", "work", "Sleep", "Other stuff"} {
		_, err := ParseCategory(bad)
		require.ErrorIs(t, err, ErrValidation, bad)
	}
}
