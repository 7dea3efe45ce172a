// Package bulk implements the bulk email lookup pipeline.
//
// An upload is parsed, validated and paginated before any lookup runs. The
// requested page is resolved in fixed-size chunks: chunks run one after
// another while the records inside a chunk are looked up concurrently and
// collected by index, so output order always matches input order. Found
// emails are then verified one at a time, and the page is stored in the
// caller's history under a request id derived from the upload time and a
// hash of the file.
//
// Stored requests can be retried record by record, retried as a whole
// (producing a new request that supersedes the old one) or replaced with a
// client-edited copy.
package bulk
