// Package persist is the durability layer behind the in-memory trading
// state. Writes flow through an outbox queue so the tick path never waits on
// the database.
package persist

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PositionRecord mirrors an open position row.
type PositionRecord struct {
	ID               string
	PlayerID         int64
	Symbol           string
	Direction        string
	Leverage         int
	EntryPrice       float64
	LiquidationPrice float64
	Size             decimal.Decimal
	Collateral       decimal.Decimal
	FundingPaid      decimal.Decimal
	OpenedAt         time.Time
	LastFundingAt    time.Time
}

// CloseRecord mirrors a settled position row, whether closed or liquidated.
type CloseRecord struct {
	ID          string
	PlayerID    int64
	Symbol      string
	Direction   string
	Leverage    int
	EntryPrice  float64
	ExitPrice   float64
	Size        decimal.Decimal
	Collateral  decimal.Decimal
	PnL         decimal.Decimal
	Fee         decimal.Decimal
	FundingPaid decimal.Decimal
	Payout      decimal.Decimal
	Status      string
	OpenedAt    time.Time
	ClosedAt    time.Time
}

// PlayerRecord mirrors a player row.
type PlayerRecord struct {
	ID            int64
	Cash          decimal.Decimal
	HighWaterMark decimal.Decimal
	CreatedAt     time.Time
}

// Persister applies state changes to durable storage.
type Persister interface {
	CreatePlayer(ctx context.Context, rec PlayerRecord) error
	UpdatePlayerBalance(ctx context.Context, playerID int64, cash, highWaterMark decimal.Decimal) error
	SaveOpenedPosition(ctx context.Context, rec PositionRecord) error
	SaveClosedPosition(ctx context.Context, rec CloseRecord) error
}

// Loader reads state back on demand, typically the first time a player shows
// up after a restart.
type Loader interface {
	LoadPlayer(ctx context.Context, playerID int64) (PlayerRecord, bool, error)
	LoadOpenPositions(ctx context.Context, playerID int64) ([]PositionRecord, error)
}
