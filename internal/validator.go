package internal

import (
	"fmt"
	"strings"
	"time"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/validation"
)

const (
	// Username constraints
	maxUsernameLength = 15

	// Batched lookups (tweets?ids=, users?ids=, users/by?usernames=)
	maxLookupIDs = 100

	// Search query constraints
	maxQueryLength = 1024

	// User agent constraints
	maxUserAgentLength = 256
)

// Validator checks request arguments before any network call is made. Every
// failure is a *ConfigError so callers can tell local mistakes from API errors.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// IsID reports whether s has the shape of a numeric resource ID.
func IsID(s string) bool {
	return validation.IsValidID(s)
}

// ValidateID checks a single numeric resource ID. field names the argument in the error.
func (v *Validator) ValidateID(field, id string) error {
	if id == "" {
		return configErr(field, "ID cannot be empty")
	}
	if !IsID(id) {
		return configErr(field, fmt.Sprintf("%q is not a numeric ID", id))
	}
	return nil
}

// ValidateIDs checks a batch of IDs for a multi-ID lookup.
func (v *Validator) ValidateIDs(field string, ids []string) error {
	if len(ids) == 0 {
		return configErr(field, "at least one ID is required")
	}
	if len(ids) > maxLookupIDs {
		return configErr(field, fmt.Sprintf("cannot request more than %d IDs at once (got %d)", maxLookupIDs, len(ids)))
	}
	for i, id := range ids {
		if err := v.ValidateID(fmt.Sprintf("%s[%d]", field, i), id); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUsername checks a handle: 1 to 15 letters, digits or underscores.
// A single leading "@" is tolerated.
func (v *Validator) ValidateUsername(name string) error {
	name = strings.TrimPrefix(name, "@")
	if name == "" {
		return configErr("username", "username cannot be empty")
	}
	if len(name) > maxUsernameLength {
		return configErr("username", fmt.Sprintf("username cannot exceed %d characters", maxUsernameLength))
	}
	for i, ch := range name {
		if !(ch >= 'a' && ch <= 'z') && !(ch >= 'A' && ch <= 'Z') && !(ch >= '0' && ch <= '9') && ch != '_' {
			return configErr("username", fmt.Sprintf("username contains invalid character '%c' at position %d", ch, i))
		}
	}
	return nil
}

// ValidateQuery checks a search query or stream rule value.
func (v *Validator) ValidateQuery(field, query string) error {
	if strings.TrimSpace(query) == "" {
		return configErr(field, "query cannot be empty")
	}
	if len(query) > maxQueryLength {
		return configErr(field, fmt.Sprintf("query cannot exceed %d characters", maxQueryLength))
	}
	return nil
}

// ValidateMaxResults checks a page size against an endpoint's bounds. Zero means
// "use the endpoint default" and is always accepted.
func (v *Validator) ValidateMaxResults(n, lo, hi int) error {
	if n == 0 {
		return nil
	}
	if n < lo || n > hi {
		return configErr("max_results", fmt.Sprintf("must be between %d and %d (got %d)", lo, hi, n))
	}
	return nil
}

// ValidateTimeRange checks that start precedes end when both are set.
func (v *Validator) ValidateTimeRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return configErr("start_time", "start_time must be before end_time")
	}
	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func (v *Validator) ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return fmt.Errorf("user agent cannot be empty")
	}
	if strings.ContainsAny(ua, "\r\n") {
		return fmt.Errorf("user agent cannot contain newline characters")
	}
	if len(ua) > maxUserAgentLength {
		return fmt.Errorf("user agent too long (max %d characters)", maxUserAgentLength)
	}
	return nil
}

func configErr(field, msg string) error {
	return &pkgerrs.ConfigError{Field: field, Message: msg}
}
