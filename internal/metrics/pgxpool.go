package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolSnapshot struct {
	acquired, max, total, idle int32
}

// RegisterPgxPoolMetrics exposes connection pool statistics of the
// relational store as Prometheus gauges.
func RegisterPgxPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	return registerPoolGauges(reg, func() poolSnapshot {
		s := pool.Stat()
		return poolSnapshot{
			acquired: s.AcquiredConns(),
			max:      s.MaxConns(),
			total:    s.TotalConns(),
			idle:     s.IdleConns(),
		}
	})
}

func registerPoolGauges(reg prometheus.Registerer, stat func() poolSnapshot) error {
	gauge := func(name, help string, value func(poolSnapshot) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "civicwatch",
			Subsystem: "pgxpool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(stat())) })
	}
	for _, c := range []prometheus.Collector{
		gauge("acquired_conns", "Number of currently acquired connections in the pool",
			func(s poolSnapshot) int32 { return s.acquired }),
		gauge("max_conns", "Maximum number of connections in the pool",
			func(s poolSnapshot) int32 { return s.max }),
		gauge("total_conns", "Total number of connections in the pool",
			func(s poolSnapshot) int32 { return s.total }),
		gauge("idle_conns", "Number of idle connections in the pool",
			func(s poolSnapshot) int32 { return s.idle }),
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
