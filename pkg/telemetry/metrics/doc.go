// Package metrics provides Prometheus instrumentation for the proxy.
//
// A Collector owns a private registry and exposes:
//
//   - relay_proxy_requests_total{route,status}
//   - relay_proxy_request_duration_seconds{route}
//   - relay_proxy_tokens_total{protocol,type}
//   - relay_proxy_backend_calls_total{endpoint,op,status}
//   - relay_proxy_fault_recoveries_total{endpoint,outcome}
//   - relay_proxy_backend_healthy{endpoint}
//
// Duration buckets reach into the minutes because a single accelerator
// generation routinely runs that long.
//
// The Collector implements session.Observer, so wiring fault-recovery
// metrics is just passing the collector to the session driver.
package metrics
