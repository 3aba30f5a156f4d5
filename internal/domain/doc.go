// Package domain defines the core vote pipeline types and the ports adapters implement.
//
// Concept-oriented files (vote.go, weight.go, profile.go, guard.go, bus.go, ...) hold shared
// types and interfaces only. No I/O lives here.
package domain
