// Package backup implements the weekly backup procedure: snapshot the VM disk,
// then prune the VM's automatic snapshots down to the newest few.
package backup
