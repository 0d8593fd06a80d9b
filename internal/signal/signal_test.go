package signal

import (
	"errors"
	"testing"
	"time"

	"gmx-rsi-bot/internal/market"
)

func TestClassifyThresholdsAreStrict(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		rsi  float64
		want Signal
	}{
		{rsi: 0, want: Long},
		{rsi: 10, want: Long},
		{rsi: 40.999, want: Long},
		{rsi: 41, want: Flat},
		{rsi: 50, want: Flat},
		{rsi: 60, want: Flat},
		{rsi: 60.001, want: Short},
		{rsi: 95, want: Short},
		{rsi: 100, want: Short},
	}
	for _, tc := range cases {
		if got := Classify(tc.rsi, th); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.rsi, got, tc.want)
		}
	}
}

func TestGenerateInsufficientData(t *testing.T) {
	g := NewGenerator(14, 0, DefaultThresholds())
	_, err := g.Generate(series(13, func(i int) float64 { return 100 + float64(i) }))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := g.Generate(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty input, got %v", err)
	}
}

func TestGenerateRisingSeriesIsShort(t *testing.T) {
	g := NewGenerator(14, 0, DefaultThresholds())
	reading, err := g.Generate(series(30, func(i int) float64 { return 100 + float64(i) }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Signal != Short {
		t.Fatalf("expected short on overbought series, got %s (rsi %.2f)", reading.Signal, reading.RSI)
	}
	if reading.Close != 129 {
		t.Fatalf("expected latest close 129, got %v", reading.Close)
	}
}

func TestGenerateFallingSeriesIsLong(t *testing.T) {
	g := NewGenerator(14, 0, DefaultThresholds())
	reading, err := g.Generate(series(30, func(i int) float64 { return 200 - float64(i) }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Signal != Long {
		t.Fatalf("expected long on oversold series, got %s (rsi %.2f)", reading.Signal, reading.RSI)
	}
}

func TestGenerateAlternatingSeriesIsFlat(t *testing.T) {
	g := NewGenerator(14, 0, DefaultThresholds())
	reading, err := g.Generate(series(40, func(i int) float64 {
		if i%2 == 0 {
			return 100
		}
		return 101
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Signal != Flat {
		t.Fatalf("expected flat, got %s (rsi %.2f)", reading.Signal, reading.RSI)
	}
}

func TestGenerateVolumeMA(t *testing.T) {
	g := NewGenerator(14, 20, DefaultThresholds())
	samples := series(20, func(i int) float64 { return 100 + float64(i%3) })
	reading, err := g.Generate(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reading.HasVolumeMA || reading.VolumeMA != 10 {
		t.Fatalf("expected volume MA 10, got %v (ok=%v)", reading.VolumeMA, reading.HasVolumeMA)
	}
	g = NewGenerator(14, 200, DefaultThresholds())
	reading, _ = g.Generate(samples)
	if reading.HasVolumeMA {
		t.Fatalf("expected undefined volume MA with short window")
	}
}

func series(n int, price func(int) float64) []market.Sample {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Sample, n)
	for i := range out {
		out[i] = market.Sample{Time: start.Add(time.Duration(i) * 15 * time.Minute), Close: price(i), Volume: 10}
	}
	return out
}
