package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    ViewRenders = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "queue_console",
        Name:      "view_renders_total",
        Help:      "Total number of views swapped into the main region",
    }, []string{"view"})

    ViewFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "queue_console",
        Name:      "view_failures_total",
        Help:      "Total number of view transitions abandoned on fetch or render errors",
    }, []string{"view", "stage"})

    StaleResults = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "queue_console",
        Name:      "stale_results_total",
        Help:      "Fetch results or poll ticks discarded because a newer navigation happened",
    })

    PollTicks = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "queue_console",
        Name:      "poll_ticks_total",
        Help:      "Total number of raft log poll ticks that re-fetched the view",
    })

    PollActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "queue_console",
        Name:      "poll_active",
        Help:      "1 while a raft log poll tick is scheduled, else 0",
    })

    BindingMisses = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "queue_console",
        Name:      "binding_misses_total",
        Help:      "Operator actions that matched no trigger on screen",
    })

    // Admin API client
    FetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "queue_console",
        Subsystem: "adminapi",
        Name:      "requests_total",
        Help:      "Admin API requests by operation and result",
    }, []string{"op", "result"})
    FetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Namespace: "queue_console",
        Subsystem: "adminapi",
        Name:      "request_duration_seconds",
        Help:      "Admin API request latency by operation",
        Buckets:   prometheus.DefBuckets,
    }, []string{"op"})

    // Dev admin server
    DevApplies = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "queue_console",
        Subsystem: "devserver",
        Name:      "applies_total",
        Help:      "Raft applies issued by the dev admin server",
    }, []string{"source", "result"})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(ViewRenders)
        prometheus.MustRegister(ViewFailures)
        prometheus.MustRegister(StaleResults)
        prometheus.MustRegister(PollTicks)
        prometheus.MustRegister(PollActive)
        prometheus.MustRegister(BindingMisses)
        prometheus.MustRegister(FetchTotal)
        prometheus.MustRegister(FetchLatency)
        prometheus.MustRegister(DevApplies)
    })
}
