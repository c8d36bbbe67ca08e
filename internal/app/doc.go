// Package app provides the application service layer.
//
// Orchestrates use cases: poll lifecycle, vote recording, result fanout.
// Sits between HTTP handlers and domain repositories. Depends on domain
// interfaces, not concrete implementations.
package app
