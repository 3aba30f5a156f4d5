// Package memory provides in-process implementations of the vote pipeline ports.
//
// GuardStore and Bus back single-instance deployments that run without Redis.
// Ledger mirrors the transactional contract of the Postgres ledger.
package memory
