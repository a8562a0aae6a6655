package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
)

// Minimal internal validator to avoid external dependency. Supports:
// - required
// - phone10 (exactly 10 digits after stripping separators)
// - emailok (local@domain.tld shape)
// - pwdmin (min length 6)

var (
	rePhone10 = regexp.MustCompile(`^[0-9]{10}$`)
	reEmailOK = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reDigits  = regexp.MustCompile(`[^0-9]`)
)

// DigitsOnly strips everything but digits from s.
func DigitsOnly(s string) string {
	return reDigits.ReplaceAllString(s, "")
}

// IsValidPhone reports whether s contains exactly 10 digits once separators are stripped.
func IsValidPhone(s string) bool {
	return rePhone10.MatchString(DigitsOnly(s))
}

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return reEmailOK.MatchString(strings.TrimSpace(s))
}

// ValidateStruct inspects struct tags `validate:"..."` and returns the first error encountered.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.New("ValidateStruct expects a struct or pointer to struct")
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}
		parts := strings.Split(tag, ",")
		fv := v.Field(i)
		var sval string
		if fv.IsValid() && fv.Kind() == reflect.String {
			sval = fv.String()
		}
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "required" {
				if sval == "" {
					return errors.New(field.Name + " is required")
				}
			} else if p == "phone10" {
				if sval != "" && !IsValidPhone(sval) {
					return errors.New(field.Name + " must be a 10 digit phone number")
				}
			} else if p == "emailok" {
				if sval != "" && !IsValidEmail(sval) {
					return errors.New(field.Name + " must be a valid email address")
				}
			} else if p == "pwdmin" {
				if len(sval) < 6 {
					return errors.New(field.Name + " must be at least 6 characters")
				}
			}
		}
	}
	return nil
}
