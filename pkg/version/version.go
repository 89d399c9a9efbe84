// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X github.com/yabridge-updater/yabridge-updater/pkg/version.Version=v1.2.3"
package version

// Version is the release tag of this build, or "dev" for local builds
var Version = "dev"
