package domain

import "time"

// Direction is the trade direction a signal points at.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionFlat  Direction = "FLAT"
)

// Sign returns +1 for long, -1 for short, 0 for flat.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	}
	return 0
}

// Opposite returns the opposing direction. Flat stays flat.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	}
	return DirectionFlat
}

// Signal is one strategy's read of a symbol at a moment in time.
// Created by the signal engine, consumed once by the risk engine, never mutated.
type Signal struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"` // 0..1
	Strategy   string    `json:"strategy"`
	Price      float64   `json:"price"` // last price the strategy saw
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// Flat reports whether the signal carries no trade intent.
func (s Signal) Flat() bool {
	return s.Direction == DirectionFlat || s.Direction == ""
}

// Strategy turns a window of snapshots into a signal. Implementations must be
// pure over the supplied window: no side effects, no shared mutable state.
// A window shorter than MinLookback must yield a flat signal, not an error.
type Strategy interface {
	Name() string
	MinLookback() int
	Generate(window *SnapshotWindow) Signal
}
