// Package cli is responsible for the command tree, validating user input,
// and handling process-level concerns like signals and exit codes. It
// translates flags into the application's configuration.
package cli
