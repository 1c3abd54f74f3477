package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/josh-kwaku/chatledger/internal/app"
	"github.com/josh-kwaku/chatledger/internal/auth"
	"github.com/josh-kwaku/chatledger/internal/config"
	"github.com/josh-kwaku/chatledger/internal/domain"
	"github.com/josh-kwaku/chatledger/internal/ledger"
	"github.com/josh-kwaku/chatledger/internal/logging"
	"github.com/josh-kwaku/chatledger/internal/parser"
)

type Globals struct {
	JSON     bool   `help:"Print machine-readable JSON."`
	LogLevel string `help:"Log level." default:"warn" env:"LOG_LEVEL"`
}

type Commands struct {
	Globals

	Parse    ParseCmd    `cmd:"" help:"Parse a chat message and print the transaction it describes."`
	Balances BalancesCmd `cmd:"" help:"Show a chat's per-asset balances."`
	Confirm  ConfirmCmd  `cmd:"" help:"Confirm the day for a chat, folding totals into confirmed balances."`
	Token    TokenCmd    `cmd:"" help:"Mint an operator token scoped to one chat."`
}

type ParseCmd struct {
	Text []string `arg:"" help:"Message text; separate words are joined with spaces."`
}

func (cmd *ParseCmd) Run(ctx *kong.Context, g *Globals) error {
	grammar, err := config.LoadGrammar()
	if err != nil {
		return err
	}

	tx, err := parser.New(grammar.Parser()).Parse(strings.Join(cmd.Text, " "))
	if errors.Is(err, domain.ErrNotRecognized) {
		return fmt.Errorf("not a transaction: %q", strings.Join(cmd.Text, " "))
	}
	if err != nil {
		return err
	}

	if g.JSON {
		return writeJSON(ctx.Stdout, tx)
	}
	w := tabwriter.NewWriter(ctx.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "asset\t%s\n", tx.Asset)
	fmt.Fprintf(w, "amount\t%d\n", tx.Amount)
	fmt.Fprintf(w, "direction\t%s\n", tx.Direction)
	fmt.Fprintf(w, "counterparty\t%s\n", tx.Counterparty)
	return w.Flush()
}

type BalancesCmd struct {
	Chat int64 `required:"" help:"Chat id."`
}

func (cmd *BalancesCmd) Run(ctx *kong.Context, g *Globals) error {
	return withLedger(g, func(runCtx context.Context, l *ledger.Service) error {
		rows := l.Summary(runCtx, cmd.Chat)
		if g.JSON {
			return writeJSON(ctx.Stdout, rows)
		}
		return writeSummary(ctx.Stdout, rows)
	})
}

type ConfirmCmd struct {
	Chat int64 `required:"" help:"Chat id."`
}

func (cmd *ConfirmCmd) Run(ctx *kong.Context, g *Globals) error {
	return withLedger(g, func(runCtx context.Context, l *ledger.Service) error {
		confirmed, err := l.Confirm(runCtx, cmd.Chat)
		if err != nil {
			return err
		}
		if g.JSON {
			return writeJSON(ctx.Stdout, confirmed)
		}
		return writeSummary(ctx.Stdout, l.Summary(runCtx, cmd.Chat))
	})
}

type TokenCmd struct {
	Chat    int64         `required:"" help:"Chat id the token may act on."`
	Subject string        `default:"ops" help:"Operator name recorded in the token."`
	TTL     time.Duration `default:"24h" help:"Token lifetime."`
}

func (cmd *TokenCmd) Run(ctx *kong.Context, g *Globals) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	token, err := auth.GenerateToken(cmd.Chat, cmd.Subject, cfg.JWTSecret, cmd.TTL)
	if err != nil {
		return err
	}

	if g.JSON {
		return writeJSON(ctx.Stdout, map[string]any{
			"token":      token,
			"chat_id":    cmd.Chat,
			"expires_at": time.Now().Add(cmd.TTL).UTC(),
		})
	}
	_, err = fmt.Fprintln(ctx.Stdout, token)
	return err
}

func withLedger(g *Globals, fn func(context.Context, *ledger.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init("ledgerctl", g.LogLevel, "development")

	runCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := app.OpenStore(runCtx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher := app.NewPublisher(cfg)
	defer publisher.Close()

	return fn(runCtx, ledger.NewService(store, publisher, nil))
}

func writeSummary(w io.Writer, rows []domain.AssetSummary) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no balances")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "asset\tconfirmed\tin\tout\tcurrent\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", r.Asset, r.Confirmed, r.In, r.Out, r.Current)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
