package viewstate

import (
	"errors"
	"regexp"
)

// DefaultKeyPrefix namespaces table titles in storage.
const DefaultKeyPrefix = "table-state-"

// ErrInvalidTitle is returned by ValidateTitle.
var ErrInvalidTitle = errors.New("viewstate: invalid table title")

var titlePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// ValidateTitle checks that title is usable as a storage namespace from
// outside the process (HTTP paths, CLI arguments).
func ValidateTitle(title string) error {
	if !titlePattern.MatchString(title) {
		return ErrInvalidTitle
	}
	return nil
}

// Key returns the storage key for title under prefix.
func Key(prefix, title string) string {
	return prefix + title
}
