// Package metrics holds the Prometheus collectors of a vysync process.
//
// Collectors live on a private registry. Batch runs push it to a pushgateway
// once the report is final; the serve command exposes it on /metrics.
// Metrics implements reconcile.Observer, and the VCOM and Yuman clients
// report every outbound call through ObserveRequest.
package metrics
