// Package identity validates and canonicalizes the inputs of a lookup:
// candidate emails returned by the query backend and the required fields of
// a candidate record. Every function here is pure apart from WARN logging of
// rejected emails.
package identity
