// Package buildinfo reports the collsnap version.
//
// Version and Commit are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/collsnap/internal/infra/buildinfo.Version=v0.3.0"
//
// GoVersion comes from the binary's embedded build info.
package buildinfo
