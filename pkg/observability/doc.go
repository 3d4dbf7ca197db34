/*
Package observability turns graph lifecycle events into Prometheus metrics
and structured log lines. Both are exposed as domain.LifecycleHooks, so they
plug into a graph with graph.WithLifecycleHooks and combine with
domain.MergeHooks.
*/
package observability
