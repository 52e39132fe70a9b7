// Package validator checks raw user text before it is sent to the remote transform api.
// Format-specific rules produce positional, human-readable diagnostics in two passes: a
// lightweight advisory pass run as the user types and a strict pass run on submit, which
// blocks the transform call. It also provides a small form-level error collector and
// generic field helpers used by the console.
package validator

import (
	"strconv"
	"strings"
)

// Validator is a struct that contains field errors and non-field errors.
type Validator struct {
	FieldErrors    map[string]string
	NonFieldErrors []string
}

// Valid returns true if the FieldErrors map and NonFieldErrors are empty.
func (v *Validator) Valid() bool {
	return len(v.FieldErrors) == 0 && len(v.NonFieldErrors) == 0
}

// AddFieldError adds an error message to the FieldErrors map, the first message per key wins.
func (v *Validator) AddFieldError(key, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}

	if _, exists := v.FieldErrors[key]; !exists {
		v.FieldErrors[key] = message
	}
}

// AddNonFieldError adds an error message to the NonFieldErrors slice.
func (v *Validator) AddNonFieldError(message string) {
	v.NonFieldErrors = append(v.NonFieldErrors, message)
}

// CheckField adds an error message to the FieldErrors map only if a validation check is not passed.
func (v *Validator) CheckField(ok bool, key, message string) {
	if !ok {
		v.AddFieldError(key, message)
	}
}

// Blank returns true if a value is an empty string.
func Blank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// IsNumber returns true if specified value is a number.
func IsNumber(value string) bool {
	_, err := strconv.Atoi(value)
	return err == nil
}

// PermittedValue returns true if value is one of permitted values.
func PermittedValue[T comparable](value T, permittedValues ...T) bool {
	for i := range permittedValues {
		if value == permittedValues[i] {
			return true
		}
	}
	return false
}
