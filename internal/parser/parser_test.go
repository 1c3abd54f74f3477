package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/chatledger/internal/domain"
)

func TestParse(t *testing.T) {
	p := New(DefaultConfig())

	tests := []struct {
		name    string
		text    string
		want    domain.Transaction
		wantErr error
	}{
		{
			name: "digits without multiplier",
			text: "27 دلار و احمد",
			want: domain.Transaction{Asset: "دلار", Amount: 27, Direction: domain.DirectionIn, Counterparty: "احمد"},
		},
		{
			name: "coin asset keeps units as pieces",
			text: "5 تا امامی و علی",
			want: domain.Transaction{Asset: "امامی", Amount: 5, Direction: domain.DirectionIn, Counterparty: "علی"},
		},
		{
			name: "units keyword scales by a thousand",
			text: "5 تا دلار و علی",
			want: domain.Transaction{Asset: "دلار", Amount: 5000, Direction: domain.DirectionIn, Counterparty: "علی"},
		},
		{
			name: "persian digits outbound",
			text: "۵ تا امامی خ علی",
			want: domain.Transaction{Asset: "امامی", Amount: 5, Direction: domain.DirectionOut, Counterparty: "علی"},
		},
		{
			name: "arabic-indic digits",
			text: "٥ تا دلار و علی",
			want: domain.Transaction{Asset: "دلار", Amount: 5000, Direction: domain.DirectionIn, Counterparty: "علی"},
		},
		{
			name: "empty asset falls back to default",
			text: "100 و رضا",
			want: domain.Transaction{Asset: "دلار", Amount: 100, Direction: domain.DirectionIn, Counterparty: "رضا"},
		},
		{
			name: "default asset is not a coin",
			text: "10 تا و رضا",
			want: domain.Transaction{Asset: "دلار", Amount: 10000, Direction: domain.DirectionIn, Counterparty: "رضا"},
		},
		{
			name: "pieces keyword never scales",
			text: "3 عدد ربع خ - رضا",
			want: domain.Transaction{Asset: "ربع", Amount: 3, Direction: domain.DirectionOut, Counterparty: "رضا"},
		},
		{
			name: "keyword glued to the number",
			text: "5تا دلار و علی",
			want: domain.Transaction{Asset: "دلار", Amount: 5000, Direction: domain.DirectionIn, Counterparty: "علی"},
		},
		{
			name: "keyword inside a longer word is ignored",
			text: "5 تاکسی و علی",
			want: domain.Transaction{Asset: "تاکسی", Amount: 5, Direction: domain.DirectionIn, Counterparty: "علی"},
		},
		{
			name: "whitespace and newlines collapsed",
			text: "  12\n تا   نیم سکه \n خ   مریم ",
			want: domain.Transaction{Asset: "نیم سکه", Amount: 12, Direction: domain.DirectionOut, Counterparty: "مریم"},
		},
		{
			name: "marker followed by colon",
			text: "50 دلار خ:احمد",
			want: domain.Transaction{Asset: "دلار", Amount: 50, Direction: domain.DirectionOut, Counterparty: "احمد"},
		},
		{
			name: "marker at end leaves counterparty empty",
			text: "50 یورو و",
			want: domain.Transaction{Asset: "یورو", Amount: 50, Direction: domain.DirectionIn, Counterparty: ""},
		},
		{
			name: "digit run beats number words",
			text: "پنج 7 دلار و علی",
			want: domain.Transaction{Asset: "دلار", Amount: 7, Direction: domain.DirectionIn, Counterparty: "علی"},
		},
		{
			name: "number word keeps the cleaned text as asset",
			text: "پنج دلار خ حسن",
			want: domain.Transaction{Asset: "پنج دلار", Amount: 5, Direction: domain.DirectionOut, Counterparty: "حسن"},
		},
		{
			name: "number word with units keyword and coin asset",
			text: "پنج تا امامی و علی",
			want: domain.Transaction{Asset: "پنج امامی", Amount: 5, Direction: domain.DirectionIn, Counterparty: "علی"},
		},
		{
			name: "bare pieces keyword means one",
			text: "عدد امامی و علی",
			want: domain.Transaction{Asset: "دلار", Amount: 1, Direction: domain.DirectionIn, Counterparty: "علی"},
		},
		{
			name: "first standalone conjunction is taken as the marker",
			text: "بیست و هفت دلار و احمد",
			want: domain.Transaction{Asset: "بیست", Amount: 20, Direction: domain.DirectionIn, Counterparty: "هفت دلار و احمد"},
		},
		{
			name:    "no direction marker",
			text:    "فقط یک پیام معمولی",
			wantErr: domain.ErrNotRecognized,
		},
		{
			name:    "marker glued to a word",
			text:    "50 دلارو علی",
			wantErr: domain.ErrNotRecognized,
		},
		{
			name:    "no quantity",
			text:    "سلام و علیک",
			wantErr: domain.ErrNotRecognized,
		},
		{
			name:    "only punctuation before marker",
			text:    "!! و علی",
			wantErr: domain.ErrNotRecognized,
		},
		{
			name:    "empty message",
			text:    "   ",
			wantErr: domain.ErrNotRecognized,
		},
		{
			name:    "digit run too large",
			text:    "99999999999999999999 و علی",
			wantErr: domain.ErrAmountOverflow,
		},
		{
			name:    "scaled amount too large",
			text:    "9223372036854776 تا دلار و علی",
			wantErr: domain.ErrAmountOverflow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.Parse(tc.text)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.want.Raw = strings.TrimSpace(tc.text)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_WordsWithoutNumeralAreNotATransaction(t *testing.T) {
	p := New(DefaultConfig())

	_, err := p.Parse("سلام دلار و علیک")
	require.ErrorIs(t, err, domain.ErrNotRecognized)
	assert.NotErrorIs(t, err, domain.ErrNumeralNotFound)
}

func TestParse_RawKeepsOriginalText(t *testing.T) {
	p := New(DefaultConfig())

	got, err := p.Parse("  12\n تا دلار  و علی ")
	require.NoError(t, err)
	assert.Equal(t, "12\n تا دلار  و علی", got.Raw)
}

func TestParse_PersianDigitsMatchASCII(t *testing.T) {
	p := New(DefaultConfig())

	persian, err := p.Parse("۵ تا دلار خ احمد")
	require.NoError(t, err)
	ascii, err := p.Parse("5 تا دلار خ احمد")
	require.NoError(t, err)

	persian.Raw, ascii.Raw = "", ""
	assert.Equal(t, ascii, persian)
	assert.Equal(t, int64(5000), ascii.Amount)
}

func TestParse_Deterministic(t *testing.T) {
	p := New(DefaultConfig())
	inputs := []string{"5 تا امامی و علی", "فقط یک پیام معمولی", "پنج تا امامی و علی"}

	for _, in := range inputs {
		first, firstErr := p.Parse(in)
		for range 5 {
			again, err := p.Parse(in)
			assert.Equal(t, first, again)
			assert.Equal(t, firstErr, err)
		}
	}
}

func TestParse_CustomConfig(t *testing.T) {
	p := New(Config{
		DefaultAsset: "USD",
		CoinAssets:   []string{"Gold"},
	})

	t.Run("coin match is case-insensitive", func(t *testing.T) {
		got, err := p.Parse("5 تا gold coin و x")
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Amount)
		assert.Equal(t, "gold coin", got.Asset)
	})

	t.Run("configured default asset", func(t *testing.T) {
		got, err := p.Parse("8 خ x")
		require.NoError(t, err)
		assert.Equal(t, "USD", got.Asset)
		assert.Equal(t, domain.DirectionOut, got.Direction)
	})

	t.Run("default coins replaced", func(t *testing.T) {
		got, err := p.Parse("2 تا امامی و x")
		require.NoError(t, err)
		assert.Equal(t, int64(2000), got.Amount)
	})
}

func TestLocateMarker(t *testing.T) {
	p := New(DefaultConfig())

	tests := []struct {
		name      string
		text      string
		wantDir   domain.Direction
		wantStart int
		wantOK    bool
	}{
		{name: "inbound between spaces", text: "5 و علی", wantDir: domain.DirectionIn, wantStart: 2, wantOK: true},
		{name: "outbound at start", text: "خ علی", wantDir: domain.DirectionOut, wantStart: 0, wantOK: true},
		{name: "spaced marker preferred over earlier dash marker", text: "5 خ-علی و رضا", wantDir: domain.DirectionIn, wantStart: 8, wantOK: true},
		{name: "dash accepted when nothing else", text: "5 خ-علی", wantDir: domain.DirectionOut, wantStart: 2, wantOK: true},
		{name: "marker at end", text: "5 دلار و", wantDir: domain.DirectionIn, wantStart: 7, wantOK: true},
		{name: "marker inside word", text: "خرید وام", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := p.locateMarker([]rune(tc.text))

			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantDir, m.direction)
				assert.Equal(t, tc.wantStart, m.start)
			}
		})
	}
}

func TestCleanWords(t *testing.T) {
	assert.Equal(t, "پنج دلار", cleanWords("پنج-دلار!"))
	assert.Equal(t, "", cleanWords("abc 12"))
	assert.Equal(t, "بیست هفت", cleanWords("  بیست,  هفت "))
}
