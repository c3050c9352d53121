// Package version exposes build metadata for vm-maintenance.
//
// Version, Commit and BuildTime are injected through ldflags at build time.
package version
