package indicators

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	require.InDelta(t, 4.0, SMA(data, 3), 1e-9)
	require.InDelta(t, 3.0, SMA(data, 5), 1e-9)
	require.Equal(t, 0.0, SMA(data, 6)) // not enough data
}

func TestRateOfChange(t *testing.T) {
	data := []float64{100, 110, 121}
	require.InDelta(t, 0.21, RateOfChange(data, 2), 1e-9)
	require.InDelta(t, 0.1, RateOfChange(data, 1), 1e-9)
	require.Equal(t, 0.0, RateOfChange(data, 3)) // period exceeds history
}

func TestSlope(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5}
	require.InDelta(t, 1.0, Slope(rising), 1e-9)

	flat := []float64{3, 3, 3, 3}
	require.InDelta(t, 0.0, Slope(flat), 1e-9)
}

func TestCalculateEMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	ema := CalculateEMA(data, 3)
	require.Len(t, ema, len(data))
	require.InDelta(t, 2.0, ema[2], 1e-9) // seeded with the SMA
	// k = 0.5: ema[3] = 4*0.5 + 2*0.5 = 3
	require.InDelta(t, 3.0, ema[3], 1e-9)
	require.InDelta(t, 4.0, ema[4], 1e-9)
}

func TestCalculateRSI(t *testing.T) {
	// Strictly rising prices pin RSI at 100, strictly falling at 0.
	rising := make([]float64, 20)
	falling := make([]float64, 20)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 100 - float64(i)
	}
	up := CalculateRSI(rising, 14)
	down := CalculateRSI(falling, 14)
	require.InDelta(t, 100.0, up[len(up)-1], 1e-9)
	require.InDelta(t, 0.0, down[len(down)-1], 1e-9)

	short := CalculateRSI([]float64{1, 2, 3}, 14)
	require.Equal(t, 0.0, short[len(short)-1])
}
