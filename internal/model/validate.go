package model

import "regexp"

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{1,61}[a-zA-Z0-9]\.[a-zA-Z]{2,}$`)

// ValidDomain reports whether name is an acceptable domain name.
func ValidDomain(name string) bool {
	return domainPattern.MatchString(name)
}

// ValidateDomain returns a ValidationError when name is not acceptable.
func ValidateDomain(name string) error {
	if name == "" {
		return NewValidationError("domain", "domain is required")
	}
	if !ValidDomain(name) {
		return NewValidationError("domain", "please enter a valid domain: %q", name)
	}
	return nil
}
