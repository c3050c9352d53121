// Package common holds helpers shared by several services.
//
// RunLock keeps two runs of the same procedure from overlapping on one host,
// whether they come from cron, the daemon or an operator.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
