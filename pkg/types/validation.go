package types

import "strings"

// ValidatePollSpec checks a create-poll request: non-empty question and at
// least 2 distinct, non-empty option labels. Returns ErrInvalidPollSpec on
// any violation.
func ValidatePollSpec(question string, options []string) error {
	if strings.TrimSpace(question) == "" {
		return ErrInvalidPollSpec
	}
	seen := make(map[string]bool, len(options))
	for _, opt := range options {
		if strings.TrimSpace(opt) == "" {
			return ErrInvalidPollSpec
		}
		if seen[opt] {
			return ErrInvalidPollSpec
		}
		seen[opt] = true
	}
	if len(seen) < 2 {
		return ErrInvalidPollSpec
	}
	return nil
}

// IsValidRole reports whether role is one of the two participant roles.
func IsValidRole(role string) bool {
	return role == RoleTeacher || role == RoleStudent
}

// HasOption reports whether answer is one of the poll's option labels.
func (p *Poll) HasOption(answer string) bool {
	for _, opt := range p.Options {
		if opt == answer {
			return true
		}
	}
	return false
}
