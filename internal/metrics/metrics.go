package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(float64)
}

type Metrics struct {
	Ticks           Counter
	OrdersPlaced    Counter
	OrdersSimulated Counter
	OrdersFailed    Counter
	EstimateFailed  Counter
	FetchFailed     Counter
	CircuitOpened   Counter
	CircuitClosed   Counter

	RSI           Gauge
	OraclePrice   Gauge
	BalanceUSD    Gauge
	PositionState Gauge
	PositionValue Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	n := noopCounter{}
	g := noopGauge{}
	return &Metrics{
		Ticks:           n,
		OrdersPlaced:    n,
		OrdersSimulated: n,
		OrdersFailed:    n,
		EstimateFailed:  n,
		FetchFailed:     n,
		CircuitOpened:   n,
		CircuitClosed:   n,
		RSI:             g,
		OraclePrice:     g,
		BalanceUSD:      g,
		PositionState:   g,
		PositionValue:   g,
	}
}
