// Package app provides the vote pipeline use cases.
//
// Weight calculation, admission, ledger commit orchestration, broadcast and manipulation
// detection. Depends on domain ports, never on concrete adapters.
package app
