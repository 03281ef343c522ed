// Package observability provides structured logging and Prometheus metrics
// for the access engine service.
package observability
