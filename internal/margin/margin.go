// Package margin holds the pure arithmetic of leveraged positions:
// maintenance-margin tiers, liquidation prices and the fee schedule.
// Nothing here touches shared state.
package margin

import (
	"time"

	"github.com/shopspring/decimal"

	"lv-perps/internal/types"
)

// FundingRatePerHour is charged on notional size for every whole hour a
// position stays open.
const FundingRatePerHour = 0.0005

// ProfitFeeRate is taken from realized profit on close. Losses are never
// taxed.
const ProfitFeeRate = 0.05

var (
	feeTierHigh = decimal.NewFromInt(10000)
	feeTierMid  = decimal.NewFromInt(5000)

	feeRateHigh = decimal.NewFromFloat(0.005)
	feeRateMid  = decimal.NewFromFloat(0.003)
	feeRateBase = decimal.NewFromFloat(0.002)

	fundingRate   = decimal.NewFromFloat(FundingRatePerHour)
	profitFeeRate = decimal.NewFromFloat(ProfitFeeRate)
)

// MaintenanceMarginRate is tiered by leverage bucket. Above 75x the rate
// steps DOWN to 0.4%: the naive 1/leverage initial-margin rate at 76-100x
// is below the 3% tier, so keeping 3% would liquidate a max-leverage
// position the instant it opens. The asymmetry is intentional.
func MaintenanceMarginRate(leverage int) float64 {
	switch {
	case leverage <= 5:
		return 0.005
	case leverage <= 10:
		return 0.01
	case leverage <= 20:
		return 0.02
	case leverage <= 50:
		return 0.025
	case leverage <= 75:
		return 0.03
	default:
		return 0.004
	}
}

// LiquidationPrice computes the price at which a position's collateral is
// considered lost:
//
//	LONG:  entry * (1 - 1/leverage + maintenanceRate)
//	SHORT: entry * (1 + 1/leverage - maintenanceRate)
func LiquidationPrice(entry float64, leverage int, dir types.Direction) float64 {
	initial := 1.0 / float64(leverage)
	maint := MaintenanceMarginRate(leverage)
	if dir == types.DirectionLong {
		return entry * (1 - initial + maint)
	}
	return entry * (1 + initial - maint)
}

// TradingFeeRate is progressive in account equity and applied identically
// on open and close.
func TradingFeeRate(equity decimal.Decimal) decimal.Decimal {
	switch {
	case equity.GreaterThanOrEqual(feeTierHigh):
		return feeRateHigh
	case equity.GreaterThanOrEqual(feeTierMid):
		return feeRateMid
	default:
		return feeRateBase
	}
}

// FundingFee returns the funding charge for the whole hours contained in
// elapsed, plus the number of hours charged. Fractional hours cost nothing;
// the caller advances its accrual timestamp by exactly the hours returned so
// the remainder carries over to the next evaluation.
func FundingFee(size decimal.Decimal, elapsed time.Duration) (decimal.Decimal, int64) {
	hours := int64(elapsed / time.Hour)
	if hours <= 0 {
		return decimal.Zero, 0
	}
	return size.Mul(fundingRate).Mul(decimal.NewFromInt(hours)), hours
}

// ProfitFee returns the cut taken from positive realized PnL, zero otherwise.
func ProfitFee(pnl decimal.Decimal) decimal.Decimal {
	if pnl.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return pnl.Mul(profitFeeRate)
}
