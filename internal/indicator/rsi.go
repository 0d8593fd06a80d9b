// Package indicator computes technical indicators over ordered price series.
//
// Outputs are aligned with their inputs: out[i] belongs to values[i]. Entries
// that lack enough lookback are NaN.
package indicator

import "math"

// RSI returns the Relative Strength Index of closes using Wilder smoothing.
// The first defined value is at index period and is seeded with the simple
// mean of the first period gains and losses.
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period < 1 || len(closes) <= period {
		return out
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		g, l := change(closes[i-1], closes[i])
		gain += g
		loss += l
	}
	p := float64(period)
	avgGain := gain / p
	avgLoss := loss / p
	out[period] = rsiValue(avgGain, avgLoss)
	for i := period + 1; i < len(closes); i++ {
		g, l := change(closes[i-1], closes[i])
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

// Latest returns the last defined value of series.
func Latest(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	last := series[len(series)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}

func change(prev, curr float64) (float64, float64) {
	diff := curr - prev
	if diff > 0 {
		return diff, 0
	}
	return 0, -diff
}

func rsiValue(avgGain, avgLoss float64) float64 {
	total := avgGain + avgLoss
	if total == 0 {
		return 0
	}
	return 100 * avgGain / total
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
