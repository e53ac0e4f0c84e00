package margin

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lv-perps/internal/types"
)

func TestMaintenanceMarginRateTiers(t *testing.T) {
	cases := []struct {
		leverage int
		want     float64
	}{
		{1, 0.005},
		{5, 0.005},
		{6, 0.01},
		{10, 0.01},
		{11, 0.02},
		{20, 0.02},
		{21, 0.025},
		{50, 0.025},
		{51, 0.03},
		{75, 0.03},
		{76, 0.004},
		{100, 0.004},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MaintenanceMarginRate(tc.leverage), "leverage %d", tc.leverage)
	}
}

// Every tier must keep maintenance margin strictly below the initial margin
// rate, otherwise a position would liquidate the moment it opens. The 76-100x
// bucket is the documented exception that steps the rate down to preserve
// this.
func TestMaintenanceBelowInitialMargin(t *testing.T) {
	for leverage := 1; leverage <= 100; leverage++ {
		maint := MaintenanceMarginRate(leverage)
		initial := 1.0 / float64(leverage)
		assert.Less(t, maint, initial, "leverage %d", leverage)
	}
}

func TestLiquidationPriceSidesOfEntry(t *testing.T) {
	entries := []float64{1, 42.5, 100, 58123}
	for _, entry := range entries {
		for leverage := 1; leverage <= 100; leverage++ {
			long := LiquidationPrice(entry, leverage, types.DirectionLong)
			short := LiquidationPrice(entry, leverage, types.DirectionShort)
			assert.Less(t, long, entry, "long liq must sit below entry (entry=%v lev=%d)", entry, leverage)
			assert.Greater(t, short, entry, "short liq must sit above entry (entry=%v lev=%d)", entry, leverage)
		}
	}
}

func TestLiquidationPriceReference(t *testing.T) {
	// entry 100 at 10x LONG: 100 * (1 - 0.1 + 0.01) = 91
	assert.InDelta(t, 91.0, LiquidationPrice(100, 10, types.DirectionLong), 1e-9)
	// entry 100 at 10x SHORT: 100 * (1 + 0.1 - 0.01) = 109
	assert.InDelta(t, 109.0, LiquidationPrice(100, 10, types.DirectionShort), 1e-9)
}

func TestTradingFeeRateTiers(t *testing.T) {
	cases := []struct {
		equity string
		want   string
	}{
		{"250", "0.002"},
		{"4999.99", "0.002"},
		{"5000", "0.003"},
		{"9999.99", "0.003"},
		{"10000", "0.005"},
		{"250000", "0.005"},
	}
	for _, tc := range cases {
		equity, err := decimal.NewFromString(tc.equity)
		require.NoError(t, err)
		want, err := decimal.NewFromString(tc.want)
		require.NoError(t, err)
		assert.True(t, TradingFeeRate(equity).Equal(want), "equity %s", tc.equity)
	}
}

func TestFundingFeeWholeHoursOnly(t *testing.T) {
	size := decimal.NewFromInt(499)

	fee, hours := FundingFee(size, 59*time.Minute)
	assert.EqualValues(t, 0, hours)
	assert.True(t, fee.IsZero())

	fee, hours = FundingFee(size, time.Hour)
	assert.EqualValues(t, 1, hours)
	assert.True(t, fee.Equal(decimal.NewFromFloat(0.2495)), "got %s", fee)

	// 3h25m charges exactly 3 hours, the 25 minutes carry over.
	fee, hours = FundingFee(size, 3*time.Hour+25*time.Minute)
	assert.EqualValues(t, 3, hours)
	assert.True(t, fee.Equal(decimal.NewFromFloat(0.7485)), "got %s", fee)
}

func TestProfitFeeOnlyOnGains(t *testing.T) {
	assert.True(t, ProfitFee(decimal.NewFromInt(-50)).IsZero())
	assert.True(t, ProfitFee(decimal.Zero).IsZero())
	assert.True(t, ProfitFee(decimal.NewFromInt(100)).Equal(decimal.NewFromInt(5)))
}
