package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateKey_Window(t *testing.T) {
	key, err := ParseDateKey("2024-01-15")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-15", key.String())
	assert.Equal(t, "2024-01-15T00:00:00Z", key.StartString())
	assert.Equal(t, "2024-01-15T23:59:59Z", key.EndString())
	assert.False(t, key.End.Before(key.Start))
}

func TestParseDateKey_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "2024-13-01", "2024-02-30", "15/01/2024", "NaN"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDateKey(in)
			require.Error(t, err)

			var invalid *InvalidArgumentError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func TestNewDateKey_ZeroTime(t *testing.T) {
	_, err := NewDateKey(time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewDateKey_NormalisesToUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2024-01-16 05:00 in Tokyo is 2024-01-15 20:00 UTC.
	key, err := NewDateKey(time.Date(2024, 1, 16, 5, 0, 0, 0, tokyo))
	require.NoError(t, err)

	assert.Equal(t, "2024-01-15", key.String())
	assert.Equal(t, time.UTC, key.Start.Location())
}

func TestDateKey_AddDays(t *testing.T) {
	key, err := ParseDateKey("2024-02-28")
	require.NoError(t, err)

	assert.Equal(t, "2024-02-29", key.AddDays(1).String())
	assert.Equal(t, "2024-03-01", key.AddDays(2).String())
	assert.Equal(t, "2024-02-27", key.AddDays(-1).String())
	assert.Equal(t, "2024-02-29T23:59:59Z", key.AddDays(1).EndString())
}

func TestDateKey_AfterAndContains(t *testing.T) {
	key, err := ParseDateKey("2024-01-15")
	require.NoError(t, err)

	assert.True(t, key.After(time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC)))
	assert.False(t, key.After(time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC)))
	assert.True(t, key.Contains(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, key.Contains(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)))
}
