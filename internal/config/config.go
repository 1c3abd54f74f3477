package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	"unicode/utf8"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/josh-kwaku/chatledger/internal/parser"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	StoreDriver   string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	WebhookSecret string        `env:"WEBHOOK_SECRET,required,notEmpty"`
	Port          int           `env:"PORT" envDefault:"8080"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv        string        `env:"APP_ENV" envDefault:"production"`
	LockTimeout   time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	Grammar

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"ledger.events"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// Grammar is the message vocabulary the parser recognises.
type Grammar struct {
	DefaultAsset  string   `env:"DEFAULT_ASSET" envDefault:"دلار"`
	CoinAssets    []string `env:"COIN_ASSETS" envDefault:"امامی,نیم,ربع,تمام" envSeparator:","`
	MarkerIn      string   `env:"MARKER_IN" envDefault:"و"`
	MarkerOut     string   `env:"MARKER_OUT" envDefault:"خ"`
	KeywordUnits  string   `env:"KEYWORD_UNITS" envDefault:"تا"`
	KeywordPieces string   `env:"KEYWORD_PIECES" envDefault:"عدد"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: dotenv: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// LoadGrammar reads only the parser vocabulary, for tools that never touch
// the store or the HTTP surface.
func LoadGrammar() (*Grammar, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.LoadGrammar: dotenv: %w", err)
	}

	g, err := env.ParseAs[Grammar]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadGrammar: %w", err)
	}
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("config.LoadGrammar: %w", err)
	}
	return &g, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.LockTimeout < time.Millisecond {
		return errors.New("LOCK_TIMEOUT must be at least 1ms")
	}
	return c.Grammar.validate()
}

func (g *Grammar) validate() error {
	if utf8.RuneCountInString(g.MarkerIn) != 1 || utf8.RuneCountInString(g.MarkerOut) != 1 {
		return errors.New("MARKER_IN and MARKER_OUT must be single characters")
	}
	if g.MarkerIn == g.MarkerOut {
		return errors.New("MARKER_IN and MARKER_OUT must differ")
	}
	if g.KeywordUnits == "" || g.KeywordPieces == "" {
		return errors.New("KEYWORD_UNITS and KEYWORD_PIECES must be set")
	}
	return nil
}

func (g *Grammar) Parser() parser.Config {
	in, _ := utf8.DecodeRuneInString(g.MarkerIn)
	out, _ := utf8.DecodeRuneInString(g.MarkerOut)
	return parser.Config{
		DefaultAsset:  g.DefaultAsset,
		CoinAssets:    g.CoinAssets,
		InMarker:      in,
		OutMarker:     out,
		UnitsKeyword:  g.KeywordUnits,
		PiecesKeyword: g.KeywordPieces,
	}
}
