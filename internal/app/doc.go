// Package app contains the core application wiring. It defines the main App
// struct, its configuration, and the run lifecycle that ties the scheduler
// loop, the HTTP server and the reset watcher together, decoupled from any
// specific entrypoint like a CLI.
package app
