package engine

import "errors"

var (
	ErrInsufficientFunds  = errors.New("insufficient cash")
	ErrDuplicatePosition  = errors.New("position already open for this symbol")
	ErrCollateralLimit    = errors.New("collateral would exceed 80% of account value")
	ErrInstrumentInactive = errors.New("instrument is not tradable")
	ErrInvalidLeverage    = errors.New("leverage outside allowed range")
	ErrPositionNotFound   = errors.New("position not found")
	ErrAlreadyLiquidated  = errors.New("position is liquidated")
)
