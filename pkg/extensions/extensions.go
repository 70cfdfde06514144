// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines interfaces for pluggable infrastructure.
//
// The guide service works out of the box as a local deployment with no
// external identity provider. Hosted deployments provide concrete
// implementations of these interfaces and inject them via
// ServiceOptions; the defaults are no-op implementations.
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
// Multiple goroutines may call methods simultaneously.
package extensions

// ServiceOptions groups all extension points for service configuration.
//
// Pass this to the router setup to enable hosted-deployment features.
// All fields are optional; nil values are replaced with no-op defaults.
//
// Example:
//
//	// Local: use defaults
//	opts := extensions.DefaultOptions()
//
//	// Hosted: inject implementations
//	opts := extensions.ServiceOptions{
//	    AuthProvider: identityServiceProvider,
//	}
type ServiceOptions struct {
	// AuthProvider validates authentication tokens.
	// Default: NopAuthProvider (always returns valid local admin)
	AuthProvider AuthProvider
}

// DefaultOptions returns ServiceOptions with no-op defaults.
//
// This is the configuration used for local deployments: every request
// authenticates as the local admin user.
//
// Returns:
//   - ServiceOptions with all fields set to no-op implementations
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
	}
}

// WithAuth returns a copy of opts with the given AuthProvider.
// Useful for fluent configuration.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithDefaults fills any nil fields with their no-op defaults.
func (opts ServiceOptions) WithDefaults() ServiceOptions {
	if opts.AuthProvider == nil {
		opts.AuthProvider = &NopAuthProvider{}
	}
	return opts
}
