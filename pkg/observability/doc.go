/*
Package observability turns lifecycle hooks into logs and Prometheus metrics.

Metrics registers the counters and gauges; Hooks builds a domain.LifecycleHooks
value that feeds them and logs every publish decision, node execution and
connection change. Several hook sets can be merged with Combine.
*/
package observability
