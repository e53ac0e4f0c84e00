package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PG implements Persister and Loader on Postgres.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

func (p *PG) CreatePlayer(ctx context.Context, rec PlayerRecord) error {
	_, err := p.pool.Exec(ctx,
		"insert into players (id, cash, high_water_mark, created_at) values ($1, $2, $3, $4) on conflict (id) do nothing",
		rec.ID, rec.Cash, rec.HighWaterMark, rec.CreatedAt.UTC())
	return err
}

func (p *PG) UpdatePlayerBalance(ctx context.Context, playerID int64, cash, highWaterMark decimal.Decimal) error {
	_, err := p.pool.Exec(ctx,
		"update players set cash = $1, high_water_mark = greatest(high_water_mark, $2) where id = $3",
		cash, highWaterMark, playerID)
	return err
}

func (p *PG) SaveOpenedPosition(ctx context.Context, rec PositionRecord) error {
	_, err := p.pool.Exec(ctx, `
		insert into positions (id, player_id, symbol, direction, leverage, entry_price, liquidation_price,
			size, collateral, funding_paid, status, opened_at, last_funding_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'open',$11,$12)
	`, rec.ID, rec.PlayerID, rec.Symbol, rec.Direction, rec.Leverage, rec.EntryPrice, rec.LiquidationPrice,
		rec.Size, rec.Collateral, rec.FundingPaid, rec.OpenedAt.UTC(), rec.LastFundingAt.UTC())
	return err
}

func (p *PG) SaveClosedPosition(ctx context.Context, rec CloseRecord) error {
	_, err := p.pool.Exec(ctx, `
		update positions
		set status = $2, exit_price = $3, pnl = $4, fee = $5, funding_paid = $6, payout = $7, closed_at = $8
		where id = $1
	`, rec.ID, rec.Status, rec.ExitPrice, rec.PnL, rec.Fee, rec.FundingPaid, rec.Payout, rec.ClosedAt.UTC())
	return err
}

func (p *PG) LoadPlayer(ctx context.Context, playerID int64) (PlayerRecord, bool, error) {
	rec := PlayerRecord{ID: playerID}
	err := p.pool.QueryRow(ctx, "select cash, high_water_mark, created_at from players where id = $1", playerID).
		Scan(&rec.Cash, &rec.HighWaterMark, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlayerRecord{}, false, nil
	}
	if err != nil {
		return PlayerRecord{}, false, err
	}
	return rec, true, nil
}

func (p *PG) LoadOpenPositions(ctx context.Context, playerID int64) ([]PositionRecord, error) {
	rows, err := p.pool.Query(ctx, `
		select id, symbol, direction, leverage, entry_price, liquidation_price,
			size, collateral, funding_paid, opened_at, last_funding_at
		from positions
		where player_id = $1 and status = 'open'
		order by opened_at asc
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		rec := PositionRecord{PlayerID: playerID}
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Direction, &rec.Leverage, &rec.EntryPrice,
			&rec.LiquidationPrice, &rec.Size, &rec.Collateral, &rec.FundingPaid,
			&rec.OpenedAt, &rec.LastFundingAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PlayerStats aggregates a player's settled trades.
type PlayerStats struct {
	Trades       int             `json:"trades"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	Liquidations int             `json:"liquidations"`
	Volume       decimal.Decimal `json:"volume"`
	TotalPnL     decimal.Decimal `json:"total_pnl"`
	TotalFees    decimal.Decimal `json:"total_fees"`
	BiggestWin   decimal.Decimal `json:"biggest_win"`
	BiggestLoss  decimal.Decimal `json:"biggest_loss"`
	AvgHoldSecs  float64         `json:"avg_hold_seconds"`
	FirstTradeAt *time.Time      `json:"first_trade_at,omitempty"`
}

func (p *PG) PlayerStats(ctx context.Context, playerID int64) (PlayerStats, error) {
	var stats PlayerStats
	err := p.pool.QueryRow(ctx, `
		select count(*),
			count(*) filter (where pnl > 0),
			count(*) filter (where pnl < 0),
			count(*) filter (where status = 'liquidated'),
			coalesce(sum(size), 0),
			coalesce(sum(pnl), 0),
			coalesce(sum(fee), 0),
			coalesce(max(pnl), 0),
			coalesce(min(pnl), 0),
			coalesce(avg(extract(epoch from closed_at - opened_at)), 0),
			min(opened_at)
		from positions
		where player_id = $1 and status <> 'open'
	`, playerID).Scan(&stats.Trades, &stats.Wins, &stats.Losses, &stats.Liquidations,
		&stats.Volume, &stats.TotalPnL, &stats.TotalFees,
		&stats.BiggestWin, &stats.BiggestLoss, &stats.AvgHoldSecs, &stats.FirstTradeAt)
	if err != nil {
		return PlayerStats{}, err
	}
	return stats, nil
}
