package instruments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrHasPositions = errors.New("instrument has open or historical positions; deactivate instead")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) List(ctx context.Context) ([]Instrument, error) {
	rows, err := s.pool.Query(ctx, `
		select symbol, name, current_price, max_leverage, is_external, is_active, created_at
		from instruments
		order by created_at asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Instrument
	for rows.Next() {
		var inst Instrument
		if err := rows.Scan(&inst.Symbol, &inst.Name, &inst.CurrentPrice, &inst.MaxLeverage, &inst.External, &inst.Active, &inst.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, symbol string) (Instrument, error) {
	var inst Instrument
	err := s.pool.QueryRow(ctx, `
		select symbol, name, current_price, max_leverage, is_external, is_active, created_at
		from instruments
		where symbol = $1
	`, symbol).Scan(&inst.Symbol, &inst.Name, &inst.CurrentPrice, &inst.MaxLeverage, &inst.External, &inst.Active, &inst.CreatedAt)
	return inst, err
}

func (s *Store) Create(ctx context.Context, inst Instrument) error {
	_, err := s.pool.Exec(ctx, `
		insert into instruments (symbol, name, current_price, max_leverage, is_external, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6, now())
	`, inst.Symbol, inst.Name, inst.CurrentPrice, inst.MaxLeverage, inst.External, inst.Active)
	return err
}

func (s *Store) Update(ctx context.Context, symbol, name string, active bool, maxLeverage int) error {
	tag, err := s.pool.Exec(ctx, `
		update instruments set name = $2, is_active = $3, max_leverage = $4 where symbol = $1
	`, symbol, name, active, maxLeverage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SavePrice flushes the latest simulated price so a restart resumes close to
// where the series left off.
func (s *Store) SavePrice(ctx context.Context, symbol string, price float64) error {
	_, err := s.pool.Exec(ctx, `update instruments set current_price = $2 where symbol = $1`, symbol, price)
	return err
}

// Delete removes an instrument only when no position row references it.
func (s *Store) Delete(ctx context.Context, symbol string) error {
	var count int
	err := s.pool.QueryRow(ctx, `select count(*) from positions where symbol = $1`, symbol).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d positions", ErrHasPositions, count)
	}
	tag, err := s.pool.Exec(ctx, `delete from instruments where symbol = $1`, symbol)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
