package parser

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/chatledger/internal/domain"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

var unitWords = map[string]int64{
	"صفر": 0, "یک": 1, "دو": 2, "سه": 3, "چهار": 4, "پنج": 5,
	"شش": 6, "شیش": 6, "هفت": 7, "هشت": 8, "نه": 9, "ده": 10,
	"یازده": 11, "دوازده": 12, "سیزده": 13, "چهارده": 14, "پانزده": 15,
	"شانزده": 16, "هفده": 17, "هجده": 18, "نوزده": 19,
}

var tenWords = map[string]int64{
	"بیست": 20, "سی": 30, "چهل": 40, "پنجاه": 50,
	"شصت": 60, "هفتاد": 70, "هشتاد": 80, "نود": 90,
}

var hundredWords = map[string]int64{
	"صد": 100, "دویست": 200, "سیصد": 300, "چهارصد": 400,
	"پانصد": 500, "ششصد": 600, "هفتصد": 700, "هشتصد": 800, "نهصد": 900,
}

// Resolve turns a run of digits (ASCII, Persian or Arabic-Indic) or a phrase
// of Persian number words into an integer. The first digit run wins over any
// number words in the same text.
func Resolve(text string) (int64, error) {
	runes := []rune(text)
	if start, end, ok := findDigitRun(runes); ok {
		v, err := parseDigits(runes[start:end])
		if err != nil {
			return 0, fmt.Errorf("Resolve: %w", err)
		}
		return v, nil
	}
	if v, ok := composeWords(text); ok {
		return v, nil
	}
	return 0, fmt.Errorf("Resolve: %w", domain.ErrNumeralNotFound)
}

func asciiDigit(r rune) (rune, bool) {
	switch {
	case r >= '0' && r <= '9':
		return r, true
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰'), true
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠'), true
	}
	return 0, false
}

// findDigitRun returns rune offsets of the first run of decimal digits.
func findDigitRun(runes []rune) (start, end int, ok bool) {
	start = -1
	for i, r := range runes {
		if _, isDigit := asciiDigit(r); isDigit {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return start, i, true
		}
	}
	if start >= 0 {
		return start, len(runes), true
	}
	return 0, 0, false
}

func parseDigits(run []rune) (int64, error) {
	var b strings.Builder
	for _, r := range run {
		d, _ := asciiDigit(r)
		b.WriteRune(d)
	}
	v, err := decimal.NewFromString(b.String())
	if err != nil {
		return 0, fmt.Errorf("parseDigits: %w", domain.ErrNumeralNotFound)
	}
	if v.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("parseDigits: %s: %w", b.String(), domain.ErrAmountOverflow)
	}
	return v.IntPart(), nil
}

// composeWords sums every recognised number word. Unknown tokens, including
// the conjunction between "بیست" and "هفت", are skipped.
func composeWords(text string) (int64, bool) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '،'
	})

	var total int64
	found := false
	for _, f := range fields {
		if v, ok := numberWord(f); ok {
			total += v
			found = true
		}
	}
	return total, found
}

func numberWord(w string) (int64, bool) {
	if v, ok := hundredWords[w]; ok {
		return v, true
	}
	if v, ok := tenWords[w]; ok {
		return v, true
	}
	if v, ok := unitWords[w]; ok {
		return v, true
	}
	return 0, false
}
