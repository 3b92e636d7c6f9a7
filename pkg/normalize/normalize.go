// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

// Package normalize canonicalizes user-supplied login identifiers.
//
// # Usage
//
// Usernames and email addresses are normalized before they are validated,
// stored or looked up, so that visually identical input (full-width digits,
// composed vs decomposed accents) maps to one account.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Username applies NFKC and trims surrounding whitespace. Case is preserved.
func Username(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// Email applies NFKC, trims and case-folds the address.
func Email(s string) string {
	return cases.Fold().String(strings.TrimSpace(norm.NFKC.String(s)))
}

// Text applies NFC and trims. Used for free-form display fields.
func Text(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Optional normalizes a pointer field with fn and maps blank input to nil.
func Optional(s *string, fn func(string) string) *string {
	if s == nil {
		return nil
	}
	normalized := fn(*s)
	if normalized == "" {
		return nil
	}
	return &normalized
}
