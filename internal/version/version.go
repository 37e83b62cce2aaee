// Package version holds build metadata, overridden at link time with
// -ldflags "-X github.com/Priya8975/event-registry/internal/version.Version=...".
package version

var Version = "dev"
