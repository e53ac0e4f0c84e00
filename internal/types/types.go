package types

type Direction string

type PositionStatus string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

const (
	PositionStatusOpen       PositionStatus = "open"
	PositionStatusClosed     PositionStatus = "closed"
	PositionStatusLiquidated PositionStatus = "liquidated"
)

func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}
