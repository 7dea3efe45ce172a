// Package storage persists lookup results and serves the per-user history.
//
// Objects live in a BlobStore (S3 in production, a local directory in
// development) under
//
//	{basePrefix}user-data/{identity}/{feature}/{id}.json
//
// where feature is find-email for single searches and bulk-find-email for
// bulk requests.
package storage
