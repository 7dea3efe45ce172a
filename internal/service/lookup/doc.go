// Package lookup resolves one candidate record to an email address.
//
// A lookup checks the required fields, consults the cache, runs the tiered
// data lake query on a miss, filters the business email through the
// identity normalizer and writes successful results back to the cache.
// FindEmail wraps a lookup with search history persistence for the single
// search endpoint. The bulk orchestrator calls Lookup directly.
package lookup
