// Package logger wraps zap with a global sugared logger and context helpers.
//
// Every service receives a context and logs through it, so a procedure can
// name its logger once (WithName) and attach fields (WithKV) that follow the
// call chain down to the repository and system layers.
package logger
