// Package query resolves a candidate record to an email address against an
// asynchronous analytical backend (Athena or Snowflake).
//
// A lookup runs up to two tiers. Tier 1 constrains on all four record
// fields; tier 2 drops the LinkedIn predicate and runs only when tier 1
// returned neither a business nor a personal email. Each tier is a full
// submit, poll, extract cycle:
//
//	submit  up to Policy.SubmitAttempts tries, linear backoff, longer when throttled
//	poll    Queued -> Running -> Succeeded | Failed | Cancelled | TimedOut
//	extract row 0 is the header, row 1 holds BUSINESS_EMAIL, PERSONAL_EMAILS
//
// Polling is bounded by Policy.PollAttempts and never blocks a batch
// indefinitely. Sleeping goes through an injected Sleeper so tests run
// without real timers.
package query
