// Package config defines the format-agnostic configuration model for the
// scheduler, its defaults and validation, along with the Loader interface
// implemented by concrete formats such as HCL.
//
// The `config.Model` is the single source of truth for the `engine` and the
// components it drives; `app` translates it into their settings.
package config
