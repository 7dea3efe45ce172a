// Package domain defines the core business types for the lead email finder.
//
// Types in this package are value objects with no I/O: candidate records
// awaiting resolution, per-record results, bulk request snapshots, and the
// single-search history entries persisted to the results store.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No clients, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Constants and enums belong here
package domain
