package valueobject

import (
	"regexp"
	"strings"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
)

const MaxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

var commonProviders = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
}

// Email is a validated, lower-cased email address.
type Email struct {
	value string
}

// NewEmail trims, validates and normalizes raw.
func NewEmail(raw string) (Email, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Email{}, domainerr.Validation("email", "cannot be empty")
	}
	if len(v) > MaxEmailLength {
		return Email{}, domainerr.Validation("email", "too long")
	}
	if !emailPattern.MatchString(v) {
		return Email{}, domainerr.Validation("email", "invalid format: "+raw)
	}
	return Email{value: v}, nil
}

func (e Email) String() string { return e.value }

func (e Email) IsZero() bool { return e.value == "" }

func (e Email) Equals(other Email) bool { return e.value == other.value }

// LocalPart returns everything before the '@'.
func (e Email) LocalPart() string {
	i := strings.IndexByte(e.value, '@')
	if i < 0 {
		return ""
	}
	return e.value[:i]
}

// Domain returns everything after the '@'.
func (e Email) Domain() string {
	i := strings.IndexByte(e.value, '@')
	if i < 0 {
		return ""
	}
	return e.value[i+1:]
}

func (e Email) IsCommonProvider() bool {
	_, ok := commonProviders[e.Domain()]
	return ok
}
