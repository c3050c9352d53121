// Package rebootcheck implements the weekly reboot check: restart the VM only
// when the package manager left a reboot-required marker behind.
package rebootcheck
