package indicators

import "math"

// SMA computes the simple moving average of the last period values.
// Returns 0 when there is not enough data.
func SMA(data []float64, period int) float64 {
	if period <= 0 || len(data) < period {
		return 0
	}
	sum := 0.0
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// StdDev computes the population standard deviation of the last period values.
func StdDev(data []float64, period int) float64 {
	if period <= 1 || len(data) < period {
		return 0
	}
	window := data[len(data)-period:]
	mean := SMA(data, period)
	sumSq := 0.0
	for _, v := range window {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(period))
}

// RateOfChange returns the fractional price change over the last period steps.
func RateOfChange(data []float64, period int) float64 {
	n := len(data)
	if period <= 0 || n <= period {
		return 0
	}
	base := data[n-1-period]
	if base == 0 {
		return 0
	}
	return (data[n-1] - base) / base
}

// Slope fits a least-squares line through data and returns its slope.
func Slope(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}

	sumX := 0.0
	sumY := 0.0
	sumXY := 0.0
	sumX2 := 0.0
	for i, y := range data {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := float64(n)*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (float64(n)*sumXY - sumX*sumY) / denom
}
