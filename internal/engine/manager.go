// Package engine owns all trading state: players, open positions and the
// settled history. A single mutex serializes every mutation so the margin
// math always sees a consistent account.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lv-perps/internal/instruments"
	"lv-perps/internal/margin"
	"lv-perps/internal/persist"
	"lv-perps/internal/types"
)

// collateralCapRate bounds the amount committed to a single new position to
// 80% of total account equity, not just cash.
var collateralCapRate = decimal.NewFromFloat(0.8)

// InstrumentSource is the slice of the registry the engine reads.
type InstrumentSource interface {
	Get(symbol string) (instruments.Instrument, bool)
}

// Journal receives fire-and-forget durability commands. Implementations must
// never block; the engine calls it while holding its lock.
type Journal interface {
	CreatePlayer(rec persist.PlayerRecord)
	UpdatePlayerBalance(playerID int64, cash, highWaterMark decimal.Decimal)
	SaveOpenedPosition(rec persist.PositionRecord)
	SaveClosedPosition(rec persist.CloseRecord)
}

// Options tune the manager. Zero values fall back to defaults.
type Options struct {
	StartingCash     decimal.Decimal
	LiquidationGrace time.Duration
	HistoryLimit     int
	Now              func() time.Time
}

type Manager struct {
	mu    sync.Mutex
	store *store

	instruments InstrumentSource
	journal     Journal
	loader      persist.Loader

	startingCash decimal.Decimal
	grace        time.Duration
	now          func() time.Time
}

func NewManager(src InstrumentSource, journal Journal, loader persist.Loader, opts Options) *Manager {
	if opts.StartingCash.IsZero() {
		opts.StartingCash = decimal.NewFromInt(250)
	}
	if opts.LiquidationGrace <= 0 {
		opts.LiquidationGrace = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:        newStore(opts.HistoryLimit),
		instruments:  src,
		journal:      journal,
		loader:       loader,
		startingCash: opts.StartingCash,
		grace:        opts.LiquidationGrace,
		now:          opts.Now,
	}
}

// EnsurePlayer returns the player, creating it with the starting cash grant
// on first contact. The durable copy, when one exists, wins over a fresh
// grant; loading happens outside the lock.
func (m *Manager) EnsurePlayer(ctx context.Context, playerID int64) (Player, error) {
	m.mu.Lock()
	if p, ok := m.store.players[playerID]; ok {
		snap := *p
		m.mu.Unlock()
		return snap, nil
	}
	m.mu.Unlock()

	var (
		loaded    persist.PlayerRecord
		found     bool
		positions []persist.PositionRecord
		err       error
	)
	if m.loader != nil {
		loaded, found, err = m.loader.LoadPlayer(ctx, playerID)
		if err != nil {
			return Player{}, err
		}
		if found {
			positions, err = m.loader.LoadOpenPositions(ctx, playerID)
			if err != nil {
				return Player{}, err
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have won the race while we were loading
	if p, ok := m.store.players[playerID]; ok {
		return *p, nil
	}

	player := &Player{ID: playerID, Cash: m.startingCash, CreatedAt: m.now()}
	player.HighWaterMark = player.Cash
	if found {
		player.Cash = loaded.Cash
		player.CreatedAt = loaded.CreatedAt
		player.HighWaterMark = loaded.HighWaterMark
		if player.Cash.GreaterThan(player.HighWaterMark) {
			player.HighWaterMark = player.Cash
		}
	}
	m.store.players[playerID] = player

	for _, rec := range positions {
		p := positionFromRecord(rec)
		m.store.addPosition(p)
	}

	if !found && m.journal != nil {
		m.journal.CreatePlayer(persist.PlayerRecord{
			ID:            playerID,
			Cash:          player.Cash,
			HighWaterMark: player.HighWaterMark,
			CreatedAt:     player.CreatedAt,
		})
	}
	return *player, nil
}

// Open deducts amount from cash, takes the opening fee out of it and books
// the remainder as collateral at the requested leverage.
func (m *Manager) Open(ctx context.Context, playerID int64, symbol string, dir types.Direction, amount decimal.Decimal, leverage int) (Position, error) {
	if _, err := m.EnsurePlayer(ctx, playerID); err != nil {
		return Position{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instruments.Get(symbol)
	if !ok || !inst.Active || inst.CurrentPrice <= 0 {
		return Position{}, ErrInstrumentInactive
	}
	if leverage < 1 || leverage > inst.MaxLeverage {
		return Position{}, ErrInvalidLeverage
	}
	if m.store.playerHasSymbol(playerID, symbol) {
		return Position{}, ErrDuplicatePosition
	}

	player := m.store.players[playerID]
	if amount.LessThanOrEqual(decimal.Zero) || player.Cash.LessThan(amount) {
		return Position{}, ErrInsufficientFunds
	}

	equity := m.equityLocked(playerID)
	if amount.GreaterThan(equity.Mul(collateralCapRate)) {
		return Position{}, ErrCollateralLimit
	}

	fee := amount.Mul(margin.TradingFeeRate(equity))
	collateral := amount.Sub(fee)

	now := m.now()
	pos := &Position{
		ID:               uuid.NewString(),
		PlayerID:         playerID,
		Symbol:           symbol,
		Direction:        dir,
		Leverage:         leverage,
		EntryPrice:       inst.CurrentPrice,
		CurrentPrice:     inst.CurrentPrice,
		LiquidationPrice: margin.LiquidationPrice(inst.CurrentPrice, leverage, dir),
		Size:             collateral.Mul(decimal.NewFromInt(int64(leverage))),
		Collateral:       collateral,
		OpenedAt:         now,
		LastFundingAt:    now,
	}

	player.Cash = player.Cash.Sub(amount)
	m.store.addPosition(pos)

	if m.journal != nil {
		m.journal.SaveOpenedPosition(positionToRecord(pos))
		m.journal.UpdatePlayerBalance(playerID, player.Cash, player.HighWaterMark)
	}
	return *pos, nil
}

// ApplyPrice marks every open position on symbol to price: funding accrues,
// unrealized PnL refreshes and breached positions latch as liquidated. A
// latched position keeps its breach price and settles once the grace window
// passes, so the tick is idempotent for it.
func (m *Manager) ApplyPrice(symbol string, price float64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	touched := make(map[int64]struct{})
	for _, p := range m.store.bySymbol[symbol] {
		if p.Liquidated {
			if now.Sub(p.LiquidatedAt) >= m.grace {
				m.settleLiquidation(p, now)
			}
			continue
		}

		m.accrueFunding(p, now)
		p.CurrentPrice = price
		p.PnL = p.pnl(price)

		if p.breached(price) {
			p.Liquidated = true
			p.LiquidatedAt = now
			p.PnL = p.Collateral.Neg()
		}
		touched[p.PlayerID] = struct{}{}
	}

	for playerID := range touched {
		player := m.store.players[playerID]
		if player == nil {
			continue
		}
		equity := m.equityLocked(playerID)
		if equity.GreaterThan(player.HighWaterMark) {
			player.HighWaterMark = equity
		}
	}
}

// Close settles a position at its current mark price. The payout is
// collateral plus PnL, minus the closing fee and the profit fee, floored at
// zero.
func (m *Manager) Close(ctx context.Context, playerID int64, positionID string) (ClosedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.store.positions[positionID]
	if !ok || p.PlayerID != playerID {
		return ClosedPosition{}, ErrPositionNotFound
	}
	if p.Liquidated {
		return ClosedPosition{}, ErrAlreadyLiquidated
	}

	now := m.now()
	m.accrueFunding(p, now)
	pnl := p.pnl(p.CurrentPrice)

	fee := p.Collateral.Mul(margin.TradingFeeRate(m.equityLocked(playerID)))
	profitFee := margin.ProfitFee(pnl)

	// fees can eat a near-zero residual; the player never owes cash back
	payout := p.Collateral.Add(pnl).Sub(fee).Sub(profitFee)
	if payout.LessThan(decimal.Zero) {
		payout = decimal.Zero
	}

	player := m.store.players[playerID]
	player.Cash = player.Cash.Add(payout)

	closed := ClosedPosition{
		ID:          p.ID,
		PlayerID:    p.PlayerID,
		Symbol:      p.Symbol,
		Direction:   p.Direction,
		Leverage:    p.Leverage,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   p.CurrentPrice,
		Size:        p.Size,
		Collateral:  p.Collateral,
		PnL:         pnl,
		PnLPercent:  pnlPercent(pnl, p.Collateral),
		Fee:         fee.Add(profitFee),
		FundingPaid: p.FundingPaid,
		Payout:      payout,
		Status:      types.PositionStatusClosed,
		OpenedAt:    p.OpenedAt,
		ClosedAt:    now,
	}
	m.store.addClosed(closed)
	m.store.removePosition(p)

	if m.journal != nil {
		m.journal.SaveClosedPosition(closeToRecord(closed))
		m.journal.UpdatePlayerBalance(playerID, player.Cash, player.HighWaterMark)
	}
	return closed, nil
}

// settleLiquidation moves a latched position into closed history. The player
// receives nothing; the collateral was already deducted on open.
func (m *Manager) settleLiquidation(p *Position, now time.Time) {
	closed := ClosedPosition{
		ID:          p.ID,
		PlayerID:    p.PlayerID,
		Symbol:      p.Symbol,
		Direction:   p.Direction,
		Leverage:    p.Leverage,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   p.CurrentPrice,
		Size:        p.Size,
		Collateral:  p.Collateral,
		PnL:         p.Collateral.Neg(),
		PnLPercent:  decimal.NewFromInt(-100),
		Fee:         decimal.Zero,
		FundingPaid: p.FundingPaid,
		Payout:      decimal.Zero,
		Status:      types.PositionStatusLiquidated,
		OpenedAt:    p.OpenedAt,
		ClosedAt:    now,
	}
	m.store.addClosed(closed)
	m.store.removePosition(p)

	if m.journal != nil {
		m.journal.SaveClosedPosition(closeToRecord(closed))
	}
}

// accrueFunding charges funding for the whole hours elapsed since the last
// accrual and advances the accrual timestamp by exactly those hours.
func (m *Manager) accrueFunding(p *Position, now time.Time) {
	fee, hours := margin.FundingFee(p.Size, now.Sub(p.LastFundingAt))
	if hours > 0 {
		p.FundingPaid = p.FundingPaid.Add(fee)
		p.LastFundingAt = p.LastFundingAt.Add(time.Duration(hours) * time.Hour)
	}
}

// pnlPercent is realized PnL relative to the collateral that backed it.
func pnlPercent(pnl, collateral decimal.Decimal) decimal.Decimal {
	if collateral.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return pnl.Div(collateral).Mul(decimal.NewFromInt(100))
}

// equityLocked is cash plus collateral and unrealized PnL of every open
// position. Callers hold the lock.
func (m *Manager) equityLocked(playerID int64) decimal.Decimal {
	player := m.store.players[playerID]
	if player == nil {
		return decimal.Zero
	}
	equity := player.Cash
	for _, p := range m.store.byPlayer[playerID] {
		equity = equity.Add(p.Collateral).Add(p.PnL)
	}
	return equity
}

// StartingCash is the grant every new player receives.
func (m *Manager) StartingCash() decimal.Decimal {
	return m.startingCash
}

// PlayerState returns the account snapshot and derived equity.
func (m *Manager) PlayerState(playerID int64) (Player, decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.store.players[playerID]
	if !ok {
		return Player{}, decimal.Zero, false
	}
	return *player, m.equityLocked(playerID), true
}

// OpenPositions returns the player's open positions, oldest first.
func (m *Manager) OpenPositions(playerID int64) []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, 0, len(m.store.byPlayer[playerID]))
	for _, p := range m.store.byPlayer[playerID] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// ClosedPositions returns the bounded settled history, oldest first.
func (m *Manager) ClosedPositions(playerID int64) []ClosedPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.store.closed[playerID]
	out := make([]ClosedPosition, len(list))
	copy(out, list)
	return out
}

func positionToRecord(p *Position) persist.PositionRecord {
	return persist.PositionRecord{
		ID:               p.ID,
		PlayerID:         p.PlayerID,
		Symbol:           p.Symbol,
		Direction:        string(p.Direction),
		Leverage:         p.Leverage,
		EntryPrice:       p.EntryPrice,
		LiquidationPrice: p.LiquidationPrice,
		Size:             p.Size,
		Collateral:       p.Collateral,
		FundingPaid:      p.FundingPaid,
		OpenedAt:         p.OpenedAt,
		LastFundingAt:    p.LastFundingAt,
	}
}

func positionFromRecord(rec persist.PositionRecord) *Position {
	return &Position{
		ID:               rec.ID,
		PlayerID:         rec.PlayerID,
		Symbol:           rec.Symbol,
		Direction:        types.Direction(rec.Direction),
		Leverage:         rec.Leverage,
		EntryPrice:       rec.EntryPrice,
		CurrentPrice:     rec.EntryPrice,
		LiquidationPrice: rec.LiquidationPrice,
		Size:             rec.Size,
		Collateral:       rec.Collateral,
		FundingPaid:      rec.FundingPaid,
		OpenedAt:         rec.OpenedAt,
		LastFundingAt:    rec.LastFundingAt,
	}
}

func closeToRecord(c ClosedPosition) persist.CloseRecord {
	return persist.CloseRecord{
		ID:          c.ID,
		PlayerID:    c.PlayerID,
		Symbol:      c.Symbol,
		Direction:   string(c.Direction),
		Leverage:    c.Leverage,
		EntryPrice:  c.EntryPrice,
		ExitPrice:   c.ExitPrice,
		Size:        c.Size,
		Collateral:  c.Collateral,
		PnL:         c.PnL,
		Fee:         c.Fee,
		FundingPaid: c.FundingPaid,
		Payout:      c.Payout,
		Status:      string(c.Status),
		OpenedAt:    c.OpenedAt,
		ClosedAt:    c.ClosedAt,
	}
}
