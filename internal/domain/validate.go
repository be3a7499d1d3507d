package domain

import (
	"strings"
)

// NormalizeUsername lowercases and trims a submitted username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername enforces the account naming rule: lowercase alphanumeric,
// at least 3 characters. Callers must normalize first.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return &ValidationError{Field: "username", Reason: "must be at least 3 characters"}
	}
	for _, r := range username {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return &ValidationError{Field: "username", Reason: "must be alphanumeric"}
		}
	}
	return nil
}

// NormalizeEmail lowercases and trims a submitted email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail does a shape check only; deliverability is proven by the
// verification email, not by parsing.
func ValidateEmail(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return &ValidationError{Field: "email", Reason: "malformed address"}
	}
	if !strings.Contains(email[at+1:], ".") {
		return &ValidationError{Field: "email", Reason: "malformed address"}
	}
	return nil
}

// NormalizeDomain lowercases a submitted domain and appends .com when no TLD
// was given, matching the sales flow which only sells .com domains.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		return d
	}
	if !strings.HasSuffix(d, ".com") {
		d += ".com"
	}
	return d
}

// ValidateDomain rejects obviously malformed domain names before any
// registrar call is made.
func ValidateDomain(domain string) error {
	if domain == "" || domain == ".com" {
		return &ValidationError{Field: "domain", Reason: "domain name is required"}
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) < 1 || len(label) > 63 {
			return &ValidationError{Field: "domain", Reason: "each label must be 1-63 characters"}
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return &ValidationError{Field: "domain", Reason: "labels cannot start or end with a hyphen"}
		}
		for _, r := range label {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
				return &ValidationError{Field: "domain", Reason: "domain contains invalid characters"}
			}
		}
	}
	return nil
}
