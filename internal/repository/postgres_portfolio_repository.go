package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// PostgresPortfolioRepository stores portfolio state in a single-row table and
// closed trades in an append-only log. Open positions ride along as jsonb so
// the state row is written and read atomically.
type PostgresPortfolioRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPortfolioRepository(pool *pgxpool.Pool) *PostgresPortfolioRepository {
	return &PostgresPortfolioRepository{pool: pool}
}

func (r *PostgresPortfolioRepository) SaveState(state *domain.PortfolioState) error {
	if state == nil {
		return errors.New("nil state")
	}

	positions, err := json.Marshal(state.Positions)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(context.Background(), `
		insert into portfolio_state(
			id, initial_capital, available_capital, positions,
			peak_equity, max_drawdown, updated_at
		) values (1,$1,$2,$3,$4,$5,$6)
		on conflict (id) do update set
			initial_capital=excluded.initial_capital,
			available_capital=excluded.available_capital,
			positions=excluded.positions,
			peak_equity=excluded.peak_equity,
			max_drawdown=excluded.max_drawdown,
			updated_at=excluded.updated_at
	`,
		state.InitialCapital,
		state.AvailableCapital,
		positions,
		state.PeakEquity,
		state.MaxDrawdown,
		state.UpdatedAt,
	)
	return err
}

// LoadState returns the persisted state, or nil when none has been saved yet.
func (r *PostgresPortfolioRepository) LoadState() (*domain.PortfolioState, error) {
	row := r.pool.QueryRow(context.Background(), `
		select initial_capital, available_capital, positions,
			peak_equity, max_drawdown, updated_at
		from portfolio_state
		where id = 1
	`)

	var state domain.PortfolioState
	var positions []byte
	err := row.Scan(
		&state.InitialCapital,
		&state.AvailableCapital,
		&positions,
		&state.PeakEquity,
		&state.MaxDrawdown,
		&state.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state.Positions = make(map[string]*domain.Position)
	if len(positions) > 0 {
		if err := json.Unmarshal(positions, &state.Positions); err != nil {
			return nil, err
		}
	}
	return &state, nil
}

func (r *PostgresPortfolioRepository) AppendClosedTrade(trade *domain.ClosedTrade) error {
	if trade == nil {
		return errors.New("nil trade")
	}

	_, err := r.pool.Exec(context.Background(), `
		insert into closed_trades(
			id, symbol, direction, quantity, entry_price, exit_price,
			profit_loss, profit_loss_pct, exit_reason,
			opened_at, closed_at, duration_seconds
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		trade.ID,
		trade.Symbol,
		string(trade.Direction),
		trade.Quantity,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.ProfitLoss,
		trade.ProfitLossPct,
		trade.ExitReason,
		trade.OpenedAt,
		trade.ClosedAt,
		trade.DurationSeconds,
	)
	return err
}

func (r *PostgresPortfolioRepository) GetClosedTrades(fromTime time.Time) []*domain.ClosedTrade {
	rows, err := r.pool.Query(context.Background(), `
		select id, symbol, direction, quantity, entry_price, exit_price,
			profit_loss, profit_loss_pct, exit_reason,
			opened_at, closed_at, duration_seconds
		from closed_trades
		where closed_at >= $1
		order by closed_at desc
	`, fromTime)
	if err != nil {
		return []*domain.ClosedTrade{}
	}
	defer rows.Close()

	trades := make([]*domain.ClosedTrade, 0)
	for rows.Next() {
		var t domain.ClosedTrade
		var direction string
		if scanErr := rows.Scan(
			&t.ID,
			&t.Symbol,
			&direction,
			&t.Quantity,
			&t.EntryPrice,
			&t.ExitPrice,
			&t.ProfitLoss,
			&t.ProfitLossPct,
			&t.ExitReason,
			&t.OpenedAt,
			&t.ClosedAt,
			&t.DurationSeconds,
		); scanErr != nil {
			continue
		}
		t.Direction = domain.Direction(direction)
		trades = append(trades, &t)
	}
	return trades
}

var _ domain.PortfolioRepository = (*PostgresPortfolioRepository)(nil)
