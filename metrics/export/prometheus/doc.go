// Package prometheus renders taskAuth engine metrics in the Prometheus text
// exposition format.
//
// Mount [Exporter.Handler] on a scrape route. Nothing is registered globally.
package prometheus
