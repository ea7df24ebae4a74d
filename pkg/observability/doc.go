/*
Package observability turns group lifecycle hooks into logs, Prometheus metrics and a
live event stream.

Each helper returns a domain.LifecycleHooks value; Combine merges several so one engine
can feed all of them.
*/
package observability
