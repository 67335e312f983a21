// Package config defines the collsnap configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: credential masking for display and logs
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// COLLSNAP_ environment variables and CLI flags.
package config
