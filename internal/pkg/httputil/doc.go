// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Handlers write through these helpers so every endpoint returns the same
// JSON envelope: {"error": "..."} for failures, the payload itself otherwise.
package httputil
