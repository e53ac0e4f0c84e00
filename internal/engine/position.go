package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"lv-perps/internal/types"
)

// Position is an open leveraged position. Prices are float64 like the rest
// of the quote plumbing; everything denominated in cash is decimal.
type Position struct {
	ID               string          `json:"id"`
	PlayerID         int64           `json:"player_id"`
	Symbol           string          `json:"symbol"`
	Direction        types.Direction `json:"direction"`
	Leverage         int             `json:"leverage"`
	EntryPrice       float64         `json:"entry_price"`
	CurrentPrice     float64         `json:"current_price"`
	LiquidationPrice float64         `json:"liquidation_price"`
	Size             decimal.Decimal `json:"size"`
	Collateral       decimal.Decimal `json:"collateral"`
	PnL              decimal.Decimal `json:"pnl"`
	FundingPaid      decimal.Decimal `json:"funding_paid"`
	Liquidated       bool            `json:"liquidated"`
	LiquidatedAt     time.Time       `json:"liquidated_at,omitempty"`
	OpenedAt         time.Time       `json:"opened_at"`
	LastFundingAt    time.Time       `json:"-"`
}

// ClosedPosition is the settled form of a position, kept in bounded history.
type ClosedPosition struct {
	ID          string               `json:"id"`
	PlayerID    int64                `json:"player_id"`
	Symbol      string               `json:"symbol"`
	Direction   types.Direction      `json:"direction"`
	Leverage    int                  `json:"leverage"`
	EntryPrice  float64              `json:"entry_price"`
	ExitPrice   float64              `json:"exit_price"`
	Size        decimal.Decimal      `json:"size"`
	Collateral  decimal.Decimal      `json:"collateral"`
	PnL         decimal.Decimal      `json:"pnl"`
	PnLPercent  decimal.Decimal      `json:"pnl_percent"`
	Fee         decimal.Decimal      `json:"fee"`
	FundingPaid decimal.Decimal      `json:"funding_paid"`
	Payout      decimal.Decimal      `json:"payout"`
	Status      types.PositionStatus `json:"status"`
	OpenedAt    time.Time            `json:"opened_at"`
	ClosedAt    time.Time            `json:"closed_at"`
}

// Player holds the cash account. Equity and the high-water mark are derived
// under the manager lock.
type Player struct {
	ID            int64           `json:"id"`
	Cash          decimal.Decimal `json:"cash"`
	HighWaterMark decimal.Decimal `json:"high_water_mark"`
	CreatedAt     time.Time       `json:"created_at"`
}

// pnl recomputes unrealized profit from the mark price, net of accrued
// funding. Direction decides the sign of the percentage move.
func (p *Position) pnl(price float64) decimal.Decimal {
	if p.EntryPrice <= 0 {
		return decimal.Zero
	}
	pct := (price - p.EntryPrice) / p.EntryPrice
	if p.Direction == types.DirectionShort {
		pct = -pct
	}
	return p.Size.Mul(decimal.NewFromFloat(pct)).Sub(p.FundingPaid)
}

// breached reports whether price has crossed the liquidation level.
func (p *Position) breached(price float64) bool {
	if p.Direction == types.DirectionLong {
		return price <= p.LiquidationPrice
	}
	return price >= p.LiquidationPrice
}
