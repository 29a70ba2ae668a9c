// SPDX-License-Identifier: MIT

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SNH48Live/KVM48/internal/koudai"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, koudai.CST)
}

func TestParseDateFullForm(t *testing.T) {
	today := day(2019, time.March, 10)
	d, err := parseDate("2018-02-11", today)
	require.NoError(t, err)
	assert.True(t, d.Equal(day(2018, time.February, 11)))
}

func TestParseDateMonthDayResolvesToPast(t *testing.T) {
	today := day(2019, time.March, 10)

	d, err := parseDate("02-11", today)
	require.NoError(t, err)
	assert.True(t, d.Equal(day(2019, time.February, 11)), "past occurrence this year")

	d, err = parseDate("11-05", today)
	require.NoError(t, err)
	assert.True(t, d.Equal(day(2018, time.November, 5)), "future month-day falls back a year")

	d, err = parseDate("03-10", today)
	require.NoError(t, err)
	assert.True(t, d.Equal(today), "today itself is not in the future")
}

func TestParseDateRejectsBadInput(t *testing.T) {
	today := day(2019, time.March, 10)
	for _, s := range []string{"2019/03/10", "3-10", "20190310", "yesterday"} {
		_, err := parseDate(s, today)
		assert.Error(t, err, "input %q", s)
	}
}

func TestResolveDateRange(t *testing.T) {
	today := cstToday()

	// Both bounds explicit.
	dr, err := resolveDateRange("2019-01-01", "2019-01-07", 1, false)
	require.NoError(t, err)
	assert.True(t, dr.From.Equal(day(2019, time.January, 1)))
	assert.True(t, dr.To.Equal(day(2019, time.January, 7)))

	// Only --to: span days ending there.
	dr, err = resolveDateRange("", "2018-02-18", 7, false)
	require.NoError(t, err)
	assert.True(t, dr.From.Equal(day(2018, time.February, 12)))
	assert.True(t, dr.To.Equal(day(2018, time.February, 18)))

	// Only --from with explicit span.
	dr, err = resolveDateRange("2019-01-01", "", 3, true)
	require.NoError(t, err)
	assert.True(t, dr.To.Equal(day(2019, time.January, 3)))

	// Only --from without explicit span: through today.
	dr, err = resolveDateRange("2019-01-01", "", 7, false)
	require.NoError(t, err)
	assert.True(t, dr.To.Equal(today))

	// Neither: span days ending today.
	dr, err = resolveDateRange("", "", 3, false)
	require.NoError(t, err)
	assert.True(t, dr.To.Equal(today))
	assert.True(t, dr.From.Equal(today.AddDate(0, 0, -2)))
}

func TestResolveDateRangeRejectsInvertedRange(t *testing.T) {
	_, err := resolveDateRange("2019-02-01", "2019-01-01", 1, false)
	assert.Error(t, err)
}
