package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the tables the bot needs. This keeps setup simple (no
// external migration tool), but still gives persistence across restarts.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists portfolio_state (
			id int primary key default 1 check (id = 1),
			initial_capital double precision not null,
			available_capital double precision not null,
			positions jsonb not null default '{}'::jsonb,
			peak_equity double precision not null default 0,
			max_drawdown double precision not null default 0,
			updated_at timestamptz not null default now()
		);`,
		`create table if not exists closed_trades (
			id text primary key,
			symbol text not null,
			direction text not null,
			quantity double precision not null,
			entry_price double precision not null,
			exit_price double precision not null,
			profit_loss double precision not null,
			profit_loss_pct double precision not null,
			exit_reason text not null default '',
			opened_at timestamptz not null,
			closed_at timestamptz not null,
			duration_seconds int not null default 0
		);`,
		`create index if not exists closed_trades_closed_at_idx on closed_trades(closed_at desc);`,
		`create index if not exists closed_trades_symbol_closed_at_idx on closed_trades(symbol, closed_at desc);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
