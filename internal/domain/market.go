package domain

import "time"

// MarketSnapshot is a point-in-time view of one symbol's market.
// Snapshots are immutable once produced by the feed.
type MarketSnapshot struct {
	Symbol             string    `json:"symbol"`
	Timestamp          time.Time `json:"timestamp"`
	OpenPrice          float64   `json:"openPrice"`
	LastPrice          float64   `json:"lastPrice"`
	Volume             float64   `json:"volume"`
	PriceChangePercent float64   `json:"priceChangePercent"`
}

// SnapshotWindow is a rolling, time-ordered window of snapshots for one symbol.
// Oldest first. Strategies read it, nothing mutates entries in place.
type SnapshotWindow struct {
	Symbol    string
	Snapshots []MarketSnapshot
	maxSize   int
}

// NewSnapshotWindow creates a window that keeps at most maxSize snapshots.
func NewSnapshotWindow(symbol string, maxSize int) *SnapshotWindow {
	if maxSize < 1 {
		maxSize = 1
	}
	return &SnapshotWindow{
		Symbol:  symbol,
		maxSize: maxSize,
	}
}

// Append adds a snapshot and drops the oldest when the window is full.
func (w *SnapshotWindow) Append(s MarketSnapshot) {
	w.Snapshots = append(w.Snapshots, s)
	if len(w.Snapshots) > w.maxSize {
		w.Snapshots = w.Snapshots[len(w.Snapshots)-w.maxSize:]
	}
}

// Len returns the number of snapshots currently held.
func (w *SnapshotWindow) Len() int {
	return len(w.Snapshots)
}

// Last returns the most recent snapshot, or nil if the window is empty.
func (w *SnapshotWindow) Last() *MarketSnapshot {
	if len(w.Snapshots) == 0 {
		return nil
	}
	return &w.Snapshots[len(w.Snapshots)-1]
}

// Closes returns the last-price series, oldest first.
func (w *SnapshotWindow) Closes() []float64 {
	closes := make([]float64, len(w.Snapshots))
	for i, s := range w.Snapshots {
		closes[i] = s.LastPrice
	}
	return closes
}
