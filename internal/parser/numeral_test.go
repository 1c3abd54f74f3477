package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/chatledger/internal/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int64
		wantErr error
	}{
		{name: "ascii digits", text: "42", want: 42},
		{name: "persian digits", text: "۱۲۳", want: 123},
		{name: "arabic-indic digits", text: "٤٥", want: 45},
		{name: "mixed glyphs in one run", text: "۱2۳", want: 123},
		{name: "leading zeros", text: "007", want: 7},
		{name: "zero", text: "0", want: 0},
		{name: "first digit run wins", text: "abc 42 def 7", want: 42},
		{name: "digits beat words", text: "پنج 7", want: 7},
		{name: "single word", text: "پنج", want: 5},
		{name: "colloquial six", text: "شیش", want: 6},
		{name: "tens and units with conjunction", text: "بیست و هفت", want: 27},
		{name: "hundreds tens units", text: "سیصد و پنجاه و شش", want: 356},
		{name: "persian comma separator", text: "صد،دو", want: 102},
		{name: "unknown words skipped", text: "حدود پانزده تا دلار", want: 15},
		{name: "no numeral", text: "سلام دوست", wantErr: domain.ErrNumeralNotFound},
		{name: "empty", text: "", wantErr: domain.ErrNumeralNotFound},
		{name: "digit run overflows int64", text: "99999999999999999999", wantErr: domain.ErrAmountOverflow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.text)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFindDigitRun(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantStart int
		wantEnd   int
		wantOK    bool
	}{
		{name: "at start", text: "12 تا", wantStart: 0, wantEnd: 2, wantOK: true},
		{name: "in the middle", text: "تا ۳۴ دلار", wantStart: 3, wantEnd: 5, wantOK: true},
		{name: "at end", text: "دلار 9", wantStart: 5, wantEnd: 6, wantOK: true},
		{name: "none", text: "دلار", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := findDigitRun([]rune(tc.text))

			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantStart, start)
				assert.Equal(t, tc.wantEnd, end)
			}
		})
	}
}
