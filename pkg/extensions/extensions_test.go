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
	"testing"
)

// ============================================================================
// ServiceOptions Tests
// ============================================================================

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.AuthProvider == nil {
		t.Fatal("DefaultOptions().AuthProvider should not be nil")
	}
	if _, ok := opts.AuthProvider.(*NopAuthProvider); !ok {
		t.Error("DefaultOptions().AuthProvider should be *NopAuthProvider")
	}
}

func TestServiceOptions_WithAuth(t *testing.T) {
	custom := &StaticAuthProvider{Users: map[string]*AuthInfo{}}

	opts := DefaultOptions().WithAuth(custom)

	if opts.AuthProvider != custom {
		t.Error("WithAuth should replace the auth provider")
	}
}

func TestServiceOptions_WithDefaults(t *testing.T) {
	var opts ServiceOptions

	opts = opts.WithDefaults()

	if opts.AuthProvider == nil {
		t.Error("WithDefaults should fill a nil AuthProvider")
	}

	// An already-set provider must survive.
	custom := &StaticAuthProvider{Users: map[string]*AuthInfo{}}
	opts = ServiceOptions{AuthProvider: custom}.WithDefaults()
	if opts.AuthProvider != custom {
		t.Error("WithDefaults should not replace a set AuthProvider")
	}
}

// ============================================================================
// AuthInfo Tests
// ============================================================================

func TestAuthInfo_HasRole(t *testing.T) {
	info := &AuthInfo{UserID: "u1", Roles: []string{RoleUser, RoleEditor}}

	if !info.HasRole(RoleEditor) {
		t.Error("expected HasRole(editor) to be true")
	}
	if info.HasRole(RoleAdmin) {
		t.Error("expected HasRole(admin) to be false")
	}
}

func TestAuthInfo_RoleHierarchy(t *testing.T) {
	tests := []struct {
		name     string
		roles    []string
		isEditor bool
		isAdmin  bool
	}{
		{"plain user", []string{RoleUser}, false, false},
		{"editor", []string{RoleEditor}, true, false},
		{"admin implies editor", []string{RoleAdmin}, true, true},
		{"no roles", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &AuthInfo{UserID: "u1", Roles: tt.roles}
			if got := info.IsEditor(); got != tt.isEditor {
				t.Errorf("IsEditor() = %v, want %v", got, tt.isEditor)
			}
			if got := info.IsAdmin(); got != tt.isAdmin {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.isAdmin)
			}
		})
	}
}

// ============================================================================
// Provider Tests
// ============================================================================

func TestNopAuthProvider_Validate(t *testing.T) {
	provider := &NopAuthProvider{}

	info, err := provider.Validate(context.Background(), "any-token")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if info.UserID != "local-user" {
		t.Errorf("UserID = %q, want %q", info.UserID, "local-user")
	}
	if !info.IsAdmin() {
		t.Error("local user should hold the admin role")
	}

	// Empty tokens authenticate too; the provider is for local use.
	if _, err := provider.Validate(context.Background(), ""); err != nil {
		t.Errorf("Validate with empty token returned error: %v", err)
	}
}

func TestStaticAuthProvider_Validate(t *testing.T) {
	provider := &StaticAuthProvider{Users: map[string]*AuthInfo{
		"tok-1": {UserID: "alice", Roles: []string{RoleEditor}},
	}}

	info, err := provider.Validate(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if info.UserID != "alice" {
		t.Errorf("UserID = %q, want %q", info.UserID, "alice")
	}

	_, err = provider.Validate(context.Background(), "unknown")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("unknown token error = %v, want ErrUnauthorized", err)
	}
}
