package docmap

import "github.com/prometheus/client_golang/prometheus"

var DDLStatements = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "docmap",
	Subsystem: "schema",
	Name:      "ddl_statements_total",
	Help:      "DDL statements executed, by target table or function",
}, []string{"object"})

var StorageConstructions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "docmap",
	Subsystem: "schema",
	Name:      "storage_constructions_total",
	Help:      "Storage handle constructions, by document alias and result",
}, []string{"document", "result"})

var EnsureDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "docmap",
	Subsystem: "schema",
	Name:      "ensure_duration_seconds",
	Help:      "Time spent bringing one document table up to date",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
}, []string{"document"})

var HiloBlocks = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "docmap",
	Subsystem: "sequences",
	Name:      "hilo_blocks_total",
	Help:      "Hi values claimed from the database",
}, []string{"entity"})

var CompiledQueryCache = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "docmap",
	Subsystem: "planner",
	Name:      "compiled_cache_total",
	Help:      "Compiled query cache lookups, by result",
}, []string{"result"})

// RegisterMetrics registers every docmap collector with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{DDLStatements, StorageConstructions, EnsureDuration, HiloBlocks, CompiledQueryCache} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
