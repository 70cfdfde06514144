// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when authentication or authorization fails.
// Enterprise implementations should wrap this error with additional context.
//
// Example:
//
//	if !validToken {
//	    return nil, fmt.Errorf("invalid token format: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// Role names recognized by the guide service. Roles are strictly
// ordered: admin implies editor, editor implies user.
const (
	RoleUser   = "user"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// AuthInfo contains identity information returned after successful authentication.
//
// Required fields (always populated):
//   - UserID: Unique identifier for the user
//
// Optional fields (may be empty):
//   - Email: User's email address
//   - Roles: List of roles the user holds
//
// Example:
//
//	info := &AuthInfo{
//	    UserID: "user-123",
//	    Email:  "user@example.com",
//	    Roles:  []string{"editor"},
//	}
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	// This is the only required field and must never be empty.
	UserID string

	// Email is the user's email address.
	// May be empty if not provided by the auth provider.
	Email string

	// Roles contains the user's role memberships for authorization
	// decisions. Recognized roles: "user", "editor", "admin".
	Roles []string
}

// HasRole checks if the user has a specific role.
//
// This is a convenience method for authorization checks:
//
//	if !authInfo.HasRole(extensions.RoleAdmin) {
//	    return ErrUnauthorized
//	}
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsEditor reports whether the user may use the editorial surface.
// Admins are editors everywhere.
func (a *AuthInfo) IsEditor() bool {
	return a.HasRole(RoleEditor) || a.HasRole(RoleAdmin)
}

// IsAdmin reports whether the user bypasses ownership checks.
func (a *AuthInfo) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// The guide engine trusts whatever identity the provider resolves; its
// own enforcement is limited to role and ownership checks. Production
// deployments plug in a provider backed by the identity service;
// local development uses NopAuthProvider.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's identity.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - token: The authentication token (JWT, session ID, API key, etc.)
	//
	// Returns:
	//   - *AuthInfo: User identity information if valid
	//   - error: ErrUnauthorized (or wrapped) if invalid, other errors for failures
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider is the default authentication provider for local
// development. It always returns a valid local user with admin
// privileges, enabling the service to run without any identity
// infrastructure.
//
// Thread-safe: This implementation has no mutable state.
type NopAuthProvider struct{}

// Validate always returns a valid local user with admin privileges.
//
// The token parameter is ignored - any value (including empty string)
// results in successful authentication. This is intentional for local
// single-user deployments.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Email:  "",
		Roles:  []string{RoleAdmin},
	}, nil
}

// StaticAuthProvider resolves tokens against a fixed in-memory table.
// Useful for tests and single-tenant deployments with provisioned API
// keys. Unknown tokens fail with ErrUnauthorized.
//
// Thread-safe after construction: the table must not be mutated once
// the provider is in use.
type StaticAuthProvider struct {
	// Users maps token to the identity it authenticates.
	Users map[string]*AuthInfo
}

// Validate looks the token up in the static table.
func (p *StaticAuthProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if info, ok := p.Users[token]; ok {
		return info, nil
	}
	return nil, ErrUnauthorized
}

// Compile-time interface compliance checks.
var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*StaticAuthProvider)(nil)
)
