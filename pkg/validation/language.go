// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// database queries and translation-map keys. Using these validators prevents
// injection attacks and keeps language identifiers consistent across the
// content pipeline.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// languagePattern matches BCP-47 primary language subtags with an
// optional region: "en", "de", "pt-BR". Lowercase language, uppercase
// region, no script subtags (the content pipeline never produces them).
var languagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2})?$`)

// ValidateLanguageCode validates a language code used as a translation
// map key or an available-languages entry.
//
// Valid codes:
//   - 2–3 lowercase letters ("en", "de", "haw")
//   - optional region suffix ("pt-BR", "zh-TW")
//
// Returns an error if the code is invalid.
//
// Example:
//
//	if err := validation.ValidateLanguageCode(lang); err != nil {
//	    return fmt.Errorf("invalid language: %w", err)
//	}
func ValidateLanguageCode(code string) error {
	if code == "" {
		return fmt.Errorf("language code cannot be empty")
	}

	if !languagePattern.MatchString(code) {
		return fmt.Errorf("invalid language code: %q (expected a BCP-47 primary subtag like \"en\" or \"pt-BR\")", code)
	}

	return nil
}

// ValidateLanguageCodes validates multiple language codes.
// Returns an error listing all invalid codes if any fail validation.
func ValidateLanguageCodes(codes []string) error {
	var invalid []string
	for _, c := range codes {
		if err := ValidateLanguageCode(c); err != nil {
			invalid = append(invalid, c)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid language codes: %v", invalid)
	}
	return nil
}

// SanitizeLanguageCode normalizes and validates a language code.
// Lowercases the language subtag, uppercases the region subtag, and
// returns the result if valid.
//
//	lang, err := validation.SanitizeLanguageCode(" PT-br ")
//	// lang == "pt-BR"
func SanitizeLanguageCode(code string) (string, error) {
	normalized := strings.TrimSpace(code)
	if i := strings.IndexByte(normalized, '-'); i >= 0 {
		normalized = strings.ToLower(normalized[:i]) + "-" + strings.ToUpper(normalized[i+1:])
	} else {
		normalized = strings.ToLower(normalized)
	}
	if err := ValidateLanguageCode(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
