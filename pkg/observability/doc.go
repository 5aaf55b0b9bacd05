/*
Package observability provides tools for monitoring the Turnstile engine.

It turns lifecycle hooks into Prometheus metrics and structured audit logs,
and sets up OpenTelemetry tracing so every turn is exported as a span.
*/
package observability
