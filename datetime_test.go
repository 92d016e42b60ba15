package ftpserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDateTimeRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		year, month, day, hour, minute, second int
	}{
		{1980, 1, 1, 0, 0, 0},
		{2024, 6, 15, 13, 37, 58},
		{2107, 12, 31, 23, 59, 58},
	}

	for _, c := range cases {
		date16, time16, wire := encodeDateTime(c.year, c.month, c.day, c.hour, c.minute, c.second)

		gotYear, gotMonth, gotDay, gotHour, gotMinute, gotSecond := decodeDateTimeFields(date16, time16)
		require.Equal(t, c.year, gotYear)
		require.Equal(t, c.month, gotMonth)
		require.Equal(t, c.day, gotDay)
		require.Equal(t, c.hour, gotHour)
		require.Equal(t, c.minute, gotMinute)
		// seconds are only stored at 2-second resolution (FAT16 time field).
		require.Equal(t, c.second-(c.second%2), gotSecond)

		require.Equal(t, formatDateTime14(c.year, c.month, c.day, c.hour, c.minute, c.second), wire)
	}
}

func TestParseMDTMDateTime(t *testing.T) {
	t.Parallel()

	date16, time16, consumed := parseMDTMDateTime("20240615133758 /some/file.txt")
	require.Equal(t, 15, consumed)

	year, month, day, hour, minute, second := decodeDateTimeFields(date16, time16)
	require.Equal(t, 2024, year)
	require.Equal(t, 6, month)
	require.Equal(t, 15, day)
	require.Equal(t, 13, hour)
	require.Equal(t, 37, minute)
	require.Equal(t, 58, second)
}

func TestParseMDTMDateTimeRejectsMissingPrefix(t *testing.T) {
	t.Parallel()

	_, _, consumed := parseMDTMDateTime("/some/file.txt")
	require.Equal(t, 0, consumed)

	_, _, consumed = parseMDTMDateTime("2024061513375")
	require.Equal(t, 0, consumed)

	_, _, consumed = parseMDTMDateTime("20240615133758x/some/file.txt")
	require.Equal(t, 0, consumed)
}
