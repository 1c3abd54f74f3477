package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/chatledger/internal/domain"
)

const thousand = 1000

type Config struct {
	DefaultAsset  string
	CoinAssets    []string
	InMarker      rune
	OutMarker     rune
	UnitsKeyword  string
	PiecesKeyword string
}

func DefaultConfig() Config {
	return Config{
		DefaultAsset:  "دلار",
		CoinAssets:    []string{"امامی", "نیم", "ربع", "تمام"},
		InMarker:      'و',
		OutMarker:     'خ',
		UnitsKeyword:  "تا",
		PiecesKeyword: "عدد",
	}
}

type keyword int

const (
	keywordNone keyword = iota
	keywordUnits
	keywordPieces
)

// Parser extracts transactions from chat messages. It holds no mutable state
// and is safe for concurrent use.
type Parser struct {
	cfg Config
}

// New returns a Parser. Zero-valued fields in cfg fall back to DefaultConfig.
func New(cfg Config) *Parser {
	def := DefaultConfig()
	if cfg.DefaultAsset == "" {
		cfg.DefaultAsset = def.DefaultAsset
	}
	if cfg.CoinAssets == nil {
		cfg.CoinAssets = def.CoinAssets
	}
	if cfg.InMarker == 0 {
		cfg.InMarker = def.InMarker
	}
	if cfg.OutMarker == 0 {
		cfg.OutMarker = def.OutMarker
	}
	if cfg.UnitsKeyword == "" {
		cfg.UnitsKeyword = def.UnitsKeyword
	}
	if cfg.PiecesKeyword == "" {
		cfg.PiecesKeyword = def.PiecesKeyword
	}
	return &Parser{cfg: cfg}
}

type marker struct {
	direction domain.Direction
	start     int
	end       int
}

type quantity struct {
	value   int64
	keyword keyword
	asset   string
}

// Parse returns domain.ErrNotRecognized for anything that is not a
// transaction message, and domain.ErrAmountOverflow when the scaled amount
// does not fit in an int64.
func (p *Parser) Parse(text string) (domain.Transaction, error) {
	s := []rune(normalize(text))

	m, ok := p.locateMarker(s)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("Parse: no direction marker: %w", domain.ErrNotRecognized)
	}

	before := strings.TrimSpace(string(s[:m.start]))
	counterparty := strings.TrimSpace(strings.TrimLeft(string(s[m.end:]), ":- "))

	q, err := p.quantity(before)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Parse: %w", err)
	}

	asset := strings.TrimSpace(q.asset)
	if asset == "" {
		asset = p.cfg.DefaultAsset
	}

	amount, err := scale(q.value, p.factor(q.keyword, asset))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Parse: %w", err)
	}

	return domain.Transaction{
		Asset:        asset,
		Amount:       amount,
		Direction:    m.direction,
		Counterparty: counterparty,
		Raw:          strings.TrimSpace(text),
	}, nil
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// locateMarker finds a standalone direction letter. A marker followed by a
// space is preferred; only when none exists is a marker at the very end or
// followed by ':' or '-' accepted.
func (p *Parser) locateMarker(s []rune) (marker, bool) {
	followedBySpace := func(next int) bool {
		return next < len(s) && unicode.IsSpace(s[next])
	}
	if m, ok := p.scanMarker(s, followedBySpace); ok {
		return m, true
	}

	atEndOrSeparator := func(next int) bool {
		return next == len(s) || s[next] == ':' || s[next] == '-'
	}
	return p.scanMarker(s, atEndOrSeparator)
}

func (p *Parser) scanMarker(s []rune, follows func(next int) bool) (marker, bool) {
	for i, r := range s {
		var dir domain.Direction
		switch r {
		case p.cfg.InMarker:
			dir = domain.DirectionIn
		case p.cfg.OutMarker:
			dir = domain.DirectionOut
		default:
			continue
		}
		if i > 0 && !unicode.IsSpace(s[i-1]) {
			continue
		}
		if !follows(i + 1) {
			continue
		}
		return marker{direction: dir, start: i, end: i + 1}, true
	}
	return marker{}, false
}

func (p *Parser) quantity(before string) (quantity, error) {
	runes := []rune(before)

	if start, end, ok := findDigitRun(runes); ok {
		v, err := parseDigits(runes[start:end])
		if err != nil {
			return quantity{}, fmt.Errorf("quantity: %w", err)
		}

		// Keywords only count after the number.
		rest := runes[end:]
		q := quantity{value: v, asset: string(rest)}
		if kw, _, kwEnd, ok := p.findKeyword(rest); ok {
			q.keyword = kw
			q.asset = string(rest[kwEnd:])
		}
		return q, nil
	}

	cleaned := []rune(cleanWords(before))
	if len(cleaned) == 0 {
		return quantity{}, fmt.Errorf("quantity: empty amount: %w", domain.ErrNotRecognized)
	}

	if _, _, ok := findWord(cleaned, p.cfg.PiecesKeyword, 0); ok {
		return quantity{value: 1, keyword: keywordPieces}, nil
	}

	v, err := Resolve(string(cleaned))
	if errors.Is(err, domain.ErrNumeralNotFound) {
		return quantity{}, fmt.Errorf("quantity: no numeral: %w", domain.ErrNotRecognized)
	}
	if err != nil {
		return quantity{}, fmt.Errorf("quantity: %w", err)
	}

	q := quantity{value: v, asset: string(cleaned)}
	if kw, kwStart, kwEnd, ok := p.findKeyword(cleaned); ok {
		q.keyword = kw
		q.asset = normalize(string(cleaned[:kwStart]) + " " + string(cleaned[kwEnd:]))
	}
	return q, nil
}

// cleanWords keeps Arabic-script characters and whitespace only.
func cleanWords(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || (r >= 0x0600 && r <= 0x06FF) {
			return r
		}
		return ' '
	}, s)
	return normalize(cleaned)
}

// findKeyword returns the leftmost standalone multiplier keyword. On a tie
// the units keyword wins.
func (p *Parser) findKeyword(s []rune) (keyword, int, int, bool) {
	for i := range s {
		if end, ok := wordAt(s, p.cfg.UnitsKeyword, i); ok {
			return keywordUnits, i, end, true
		}
		if end, ok := wordAt(s, p.cfg.PiecesKeyword, i); ok {
			return keywordPieces, i, end, true
		}
	}
	return keywordNone, 0, 0, false
}

func findWord(s []rune, word string, from int) (int, int, bool) {
	for i := from; i < len(s); i++ {
		if end, ok := wordAt(s, word, i); ok {
			return i, end, true
		}
	}
	return 0, 0, false
}

// wordAt reports whether word occurs at s[i:] with a word edge on both sides.
// The bounds of s count as edges.
func wordAt(s []rune, word string, i int) (int, bool) {
	w := []rune(word)
	if len(w) == 0 || i+len(w) > len(s) {
		return 0, false
	}
	for j, r := range w {
		if s[i+j] != r {
			return 0, false
		}
	}
	end := i + len(w)
	if i > 0 && isWordRune(s[i-1]) {
		return 0, false
	}
	if end < len(s) && isWordRune(s[end]) {
		return 0, false
	}
	return end, true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func (p *Parser) factor(kw keyword, asset string) int64 {
	if kw != keywordUnits {
		return 1
	}
	if p.isCoin(asset) {
		return 1
	}
	return thousand
}

func (p *Parser) isCoin(asset string) bool {
	lower := strings.ToLower(asset)
	for _, coin := range p.cfg.CoinAssets {
		if coin != "" && strings.Contains(lower, strings.ToLower(coin)) {
			return true
		}
	}
	return false
}

func scale(value, factor int64) (int64, error) {
	amount := decimal.NewFromInt(value).Mul(decimal.NewFromInt(factor))
	if amount.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("scale: %d x %d: %w", value, factor, domain.ErrAmountOverflow)
	}
	return amount.IntPart(), nil
}
