/*
Package observability exports engine activity as Prometheus metrics.

Metrics are fed exclusively through domain.LifecycleHooks, so the engine itself
has no dependency on Prometheus:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng := statecraft.New(statecraft.WithLifecycleHooks(m.Hooks()))
*/
package observability
