// Package verification checks deliverability of resolved emails through an
// external provider and classifies them as personal or business.
//
// Verification fails closed: a malformed address or a provider error
// yields false, never an error. Batch verification is strictly sequential
// and optionally rate limited to stay inside provider quotas.
package verification
