// Package domain contains the core poll model: polls with time windows,
// ordered options, anonymous votes, the lifecycle evaluator, and the
// option reconciliation algorithm. Everything here is pure; persistence
// and transport live in the adapters.
package domain
