package config

import "github.com/yndnr/collsnap/internal/telemetry/logger"

// Sanitize returns a copy of cfg with credentials in DSNs masked, for
// display and logging.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Storage.DSN = logger.RedactString(cfg.Storage.DSN)
	if cfg.Routes != nil {
		out.Routes = make(map[string]StorageSection, len(cfg.Routes))
		for base, r := range cfg.Routes {
			r.DSN = logger.RedactString(r.DSN)
			out.Routes[base] = r
		}
	}
	return &out
}
