package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)

	// IncDrop counts one rejection. Station and reason come from the typed
	// drop taxonomy, never from payload bytes.
	IncDrop(station, reason string)

	SetGauge(name string, v float64)
	ObserveLatency(name string, seconds float64)
}

type Field struct {
	Key   string
	Value any
}
