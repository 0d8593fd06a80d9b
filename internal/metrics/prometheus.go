package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "gmx_rsi_bot"

type Prometheus struct {
	Metrics *Metrics

	registry        *prometheus.Registry
	ticks           prometheus.Counter
	ordersPlaced    prometheus.Counter
	ordersSimulated prometheus.Counter
	ordersFailed    prometheus.Counter
	estimateFailed  prometheus.Counter
	fetchFailed     prometheus.Counter
	circuitOpened   prometheus.Counter
	circuitClosed   prometheus.Counter
	rsi             prometheus.Gauge
	oraclePrice     prometheus.Gauge
	balanceUSD      prometheus.Gauge
	positionState   prometheus.Gauge
	positionValue   prometheus.Gauge
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry:        prometheus.NewRegistry(),
		ticks:           newCounter("ticks_total", "Total number of polling iterations."),
		ordersPlaced:    newCounter("orders_placed_total", "Total number of orders broadcast."),
		ordersSimulated: newCounter("orders_simulated_total", "Total number of orders built in debug mode."),
		ordersFailed:    newCounter("orders_failed_total", "Total number of order submission failures."),
		estimateFailed:  newCounter("estimate_failed_total", "Total number of simulated orders whose gas estimate reverted."),
		fetchFailed:     newCounter("fetch_failed_total", "Total number of oracle or balance fetch failures."),
		circuitOpened:   newCounter("circuit_opened_total", "Total number of times the fetch circuit opened."),
		circuitClosed:   newCounter("circuit_closed_total", "Total number of fetch circuit recoveries."),
		rsi:             newGauge("rsi", "Latest RSI value."),
		oraclePrice:     newGauge("oracle_price", "Latest oracle mid price."),
		balanceUSD:      newGauge("balance_usd", "Latest wallet balance in USD."),
		positionState:   newGauge("position_state", "Position state: -1 short, 0 flat, 1 long."),
		positionValue:   newGauge("position_value_usd", "Notional of the open position in USD."),
	}
	p.registry.MustRegister(
		p.ticks, p.ordersPlaced, p.ordersSimulated, p.ordersFailed, p.estimateFailed,
		p.fetchFailed, p.circuitOpened, p.circuitClosed,
		p.rsi, p.oraclePrice, p.balanceUSD, p.positionState, p.positionValue,
	)
	p.Metrics = &Metrics{
		Ticks:           p.ticks,
		OrdersPlaced:    p.ordersPlaced,
		OrdersSimulated: p.ordersSimulated,
		OrdersFailed:    p.ordersFailed,
		EstimateFailed:  p.estimateFailed,
		FetchFailed:     p.fetchFailed,
		CircuitOpened:   p.circuitOpened,
		CircuitClosed:   p.circuitClosed,
		RSI:             p.rsi,
		OraclePrice:     p.oraclePrice,
		BalanceUSD:      p.balanceUSD,
		PositionState:   p.positionState,
		PositionValue:   p.positionValue,
	}
	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
