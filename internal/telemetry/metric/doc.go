// Package metric owns the process Prometheus registry and its HTTP
// exposition.
//
//   - prometheus.go: registry with Go and process collectors, /metrics
//     handler and server
//   - collector.go: scrape-time collector for committed record counts
package metric
