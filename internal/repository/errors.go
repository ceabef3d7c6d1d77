// Package repository implements the MySQL persistence layer, including
// the integrity store the admission engine runs on.  This file defines
// sentinel error values reused across repositories so higher layers can
// distinguish failure scenarios with errors.Is instead of inspecting
// driver-specific errors.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as a staff member managing another
// staff member's event.  Handlers should translate this into an HTTP
// 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEventNotFound is returned when a referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrSessionNotFound is returned when a referenced attendance session
// does not exist.
var ErrSessionNotFound = errors.New("session not found")

// isDuplicateKey reports whether the error is a MySQL unique-key
// violation (error 1062).  The driver does not expose a typed error for
// this here, so the numeric code is matched in the message.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "duplicate entry")
}
