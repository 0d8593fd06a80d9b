package signal

import (
	"errors"
	"fmt"
	"time"

	"gmx-rsi-bot/internal/indicator"
	"gmx-rsi-bot/internal/market"
)

var ErrInsufficientData = errors.New("insufficient samples for indicator")

// Signal is the desired position direction.
type Signal int

const (
	Short Signal = -1
	Flat  Signal = 0
	Long  Signal = 1
)

func (s Signal) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

type Thresholds struct {
	LongBelow  float64
	ShortAbove float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{LongBelow: 41, ShortAbove: 60}
}

// Classify maps an RSI value to a signal. Both comparisons are strict, so a
// value equal to either threshold is Flat.
func Classify(rsi float64, th Thresholds) Signal {
	switch {
	case rsi < th.LongBelow:
		return Long
	case rsi > th.ShortAbove:
		return Short
	default:
		return Flat
	}
}

type Reading struct {
	Time        time.Time
	Close       float64
	RSI         float64
	Signal      Signal
	VolumeMA    float64
	HasVolumeMA bool
	Samples     int
}

type Generator struct {
	period       int
	volumePeriod int
	thresholds   Thresholds
}

func NewGenerator(period, volumePeriod int, th Thresholds) *Generator {
	if period <= 0 {
		period = 14
	}
	return &Generator{period: period, volumePeriod: volumePeriod, thresholds: th}
}

// Generate computes the latest reading from samples ordered oldest first.
func (g *Generator) Generate(samples []market.Sample) (Reading, error) {
	rsi, ok := indicator.Latest(indicator.RSI(market.Closes(samples), g.period))
	if !ok {
		return Reading{}, fmt.Errorf("rsi(%d) over %d samples: %w", g.period, len(samples), ErrInsufficientData)
	}
	last := samples[len(samples)-1]
	reading := Reading{
		Time:    last.Time,
		Close:   last.Close,
		RSI:     rsi,
		Signal:  Classify(rsi, g.thresholds),
		Samples: len(samples),
	}
	if g.volumePeriod > 0 {
		reading.VolumeMA, reading.HasVolumeMA = indicator.Latest(indicator.SMA(market.Volumes(samples), g.volumePeriod))
	}
	return reading, nil
}
