package metrics

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	engineTime   *prometheus.CounterVec
	orderCounter *prometheus.CounterVec
	bookGauge    *prometheus.GaugeVec
	tickCounter  *prometheus.CounterVec
)

func setupMetrics() error {
	et := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickex",
			Subsystem: "engine",
			Name:      "seconds_total",
			Help:      "Time spent in engine calls",
		},
		[]string{"pair", "engine", "fn"},
	)
	if err := prometheus.Register(et); err != nil {
		return err
	}
	engineTime = et

	oc := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickex",
			Subsystem: "orders",
			Name:      "total",
			Help:      "Number of orders processed",
		},
		[]string{"pair", "outcome"},
	)
	if err := prometheus.Register(oc); err != nil {
		return err
	}
	orderCounter = oc

	bg := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tickex",
			Subsystem: "book",
			Name:      "orders",
			Help:      "Orders resting on the book",
		},
		[]string{"pair", "side"},
	)
	if err := prometheus.Register(bg); err != nil {
		return err
	}
	bookGauge = bg

	tc := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickex",
			Subsystem: "ticks",
			Name:      "total",
			Help:      "Completed auction cycles",
		},
		[]string{"pair"},
	)
	if err := prometheus.Register(tc); err != nil {
		return err
	}
	tickCounter = tc
	return nil
}

// OrderCounterInc increments the order counter for a pair and outcome.
func OrderCounterInc(pair, outcome string) {
	if orderCounter == nil {
		return
	}
	orderCounter.WithLabelValues(pair, outcome).Inc()
}

// BookGaugeSet sets the resting order count for one side of a pair.
func BookGaugeSet(pair, side string, n uint64) {
	if bookGauge == nil {
		return
	}
	bookGauge.WithLabelValues(pair, side).Set(float64(n))
}

// TickCounterInc increments the completed tick counter for a pair.
func TickCounterInc(pair string) {
	if tickCounter == nil {
		return
	}
	tickCounter.WithLabelValues(pair).Inc()
}

// Start enable metrics (given config).
func Start(conf Config) {
	if !conf.Enabled {
		return
	}
	if err := setupMetrics(); err != nil {
		panic("could not set up metrics")
	}
	http.Handle(conf.Path, promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", conf.Port), nil))
	}()
}
