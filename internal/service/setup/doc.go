// Package setup bootstraps a VM for unattended maintenance: it installs the
// unattended-upgrades package and writes the apt, cron and logrotate files
// that schedule the other procedures.
package setup
