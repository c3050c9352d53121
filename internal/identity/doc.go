// Package identity resolves which VM the procedures are running on.
//
// On Compute Engine the answer comes from the metadata server; any field can
// be pinned in configuration instead, which is also how the procedures run
// off-VM and in tests.
package identity
