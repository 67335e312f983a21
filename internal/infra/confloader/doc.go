// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first: the caller's defaults (the target struct
// as passed in), a YAML file, environment variables, then an explicit map
// (CLI flags).
//
// Environment variables carry the COLLSNAP_ prefix and use a double
// underscore between sections, so single underscores survive inside key
// names: COLLSNAP_STORAGE__DATA_DIR sets storage.data_dir.
//
// Watcher reports changes to the config file so long-running commands can
// reload it.
package confloader
