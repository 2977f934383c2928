// Package hcl provides the concrete HCL implementation of the configuration
// Loader defined in the `config` package. It is responsible for file
// discovery, parsing, expression evaluation against the process environment,
// and translating the decoded blocks into the format-agnostic model.
package hcl
