// Package system runs external OS commands (apt-get, dpkg, shutdown) behind
// an Executor interface so services can be tested without touching the host.
package system
