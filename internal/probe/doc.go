// Package probe invokes an ffprobe-compatible tool and normalizes its JSON
// output into a ProbeSummary. A single JSON call replaces the many
// narrowly-scoped ffprobe invocations an ad-hoc script would otherwise make.
package probe
