// Package prometheus renders session manager metrics in Prometheus text
// exposition format.
//
// Counters are named sessionauth_*_total; the single histogram is
// sessionauth_verify_latency_seconds. Nothing is registered globally: callers
// mount [Exporter.Handler] themselves.
package prometheus
