/*
Package observability turns preview lifecycle hooks into structured logs and Prometheus metrics.

Hooks built here can be combined with Chain and handed to chatflow.WithLifecycleHooks.
*/
package observability
