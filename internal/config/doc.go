// Package config loads vm-maintenance settings.
//
// Settings come from a YAML file, an optional dotenv file and VMM_*
// environment variables, in that order of increasing precedence. Anything
// left unset falls back to Default.
package config
