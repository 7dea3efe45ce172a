// Package cache memoizes successful email resolutions.
//
// The Gateway is a best-effort layer over a Store: every backend failure is
// logged and reported to the caller as a miss (reads) or silently dropped
// (writes). Negative results are never stored.
//
// Stores:
//   - DynamoStore: DynamoDB table keyed by cacheKey with an epoch ttl attribute
//   - RedisStore:  SET key value EX ttl
//   - MemoryStore: in-process map, for local development and tests
package cache
