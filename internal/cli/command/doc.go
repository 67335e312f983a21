// Package command defines the collsnap command-line interface.
//
// Every command runs against the stores described by the loaded
// configuration. Configuration is layered: defaults, then the YAML file
// given by --config, then COLLSNAP_* environment variables (optionally
// read from .env files), then global flags.
//
//	collsnap snapshots create average_artist_prices
//	collsnap -o json snapshots list average_artist_prices
//	collsnap schedule --interval 10m --metrics-addr :9090 average_artist_prices
package command
