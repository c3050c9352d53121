// Package scheduler runs the maintenance procedures in-process on cron
// schedules, for hosts that do not use the system cron daemon.
package scheduler
