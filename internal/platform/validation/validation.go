// Package validation runs declarative field validators over a form payload
// and collects the failures as a field to message map.
package validation

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/medici/medici/internal/platform/apperr"
)

// Errors maps a form field name to its message. Absent fields are valid.
type Errors map[string]string

// Add records msg for field unless the field already failed.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Err converts the collected failures into an apperr validation error, or nil.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return apperr.Validation(e)
}

// Rules holds one predicate per field. A predicate returns "" when the field
// is valid and the user-facing message otherwise.
type Rules[T any] map[string]func(T) string

// Validate runs every predicate against form.
func (r Rules[T]) Validate(form T) Errors {
	errs := Errors{}
	for field, check := range r {
		if msg := check(form); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

func Blank(s string) bool { return strings.TrimSpace(s) == "" }

func Email(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Slug reports whether s is a lowercase, hyphen separated alias.
func Slug(s string) bool { return slugPattern.MatchString(s) }

// MaxLen reports whether s fits in n characters.
func MaxLen(s string, n int) bool { return len([]rune(s)) <= n }

// ParseID parses a UUID taken from field, reporting a field error otherwise.
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Field(field, "invalid id")
	}
	return id, nil
}
