package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-visa-intake/internal/country"
)

func TestParseToISODate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"day first unambiguous", "25/12/2025", "2025-12-25"},
		{"month first unambiguous", "12/25/2025", "2025-12-25"},
		{"ambiguous defaults to day first", "03/04/2025", "2025-04-03"},
		{"iso", "2025-12-25", "2025-12-25"},
		{"year first slashes", "2025/12/25", "2025-12-25"},
		{"dots", "25.12.2025", "2025-12-25"},
		{"dashes", "25-12-2025", "2025-12-25"},
		{"two digit year below pivot", "25/12/25", "2025-12-25"},
		{"two digit year above pivot", "25/12/75", "1975-12-25"},
		{"day month name", "25 Dec 2025", "2025-12-25"},
		{"day month name dashed", "25-Dec-2025", "2025-12-25"},
		{"month name day", "December 25, 2025", "2025-12-25"},
		{"ordinal", "Dec 1st 2025", "2025-12-01"},
		{"timestamp", "2025-12-25T10:00:00Z", "2025-12-25"},
		{"whitespace", "  01/02/2000 ", "2000-02-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToISODate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseToISODate_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "31/02/2025", "13/13/2025", "2025-13-01", "25 Foo 2025", "1/2/345"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseToISODate(in)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}
}

func TestParseToISODateWithHint(t *testing.T) {
	got, err := ParseToISODateWithHint("03/04/2025", country.DateMDYSlash)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04", got)

	// an unambiguous date ignores the hint
	got, err = ParseToISODateWithHint("25/12/2025", country.DateMDYSlash)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-25", got)

	got, err = ParseToISODateWithHint("03/04/2025", country.DateDMYSlash)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-03", got)
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		format country.DateFormat
		want   string
	}{
		{country.DateDMYSlash, "05/01/2026"},
		{country.DateMDYSlash, "01/05/2026"},
		{country.DateISO, "2026-01-05"},
		{country.DateDMYDash, "05-01-2026"},
		{country.DateYMDSlash, "2026/01/05"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := FormatDate("2026-01-05", tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FormatDate("2026-01-05", "DD.MM.YY")
	assert.Error(t, err)
	_, err = FormatDate("05/01/2026", country.DateISO)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestConvertDate(t *testing.T) {
	got, err := ConvertDate("25/12/2025", country.DateMDYSlash)
	require.NoError(t, err)
	assert.Equal(t, "12/25/2025", got)

	got, err = ConvertDate("December 25, 2025", country.DateYMDSlash)
	require.NoError(t, err)
	assert.Equal(t, "2025/12/25", got)
}
