package service

import "strings"

// maskIdentifier hides most of a login identifier so audit logs never carry
// usable credentials. Emails keep the first character and the domain; other
// identifiers (tax ids) keep only the last four characters.
func maskIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}

	if at := strings.Index(identifier, "@"); at > 0 {
		return identifier[:1] + "***" + identifier[at:]
	}

	if len(identifier) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(identifier)-4) + identifier[len(identifier)-4:]
}
