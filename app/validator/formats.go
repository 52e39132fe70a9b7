package validator

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FormatValidator checks the grammar of one encoded format.
// Both methods return nil for valid input.
type FormatValidator interface {
	Strict(text string) *Diagnostic      // blocking, on submit
	Lightweight(text string) *Diagnostic // advisory, on every keystroke
}

// JSONValidator requires a complete JSON document, scalar values included
type JSONValidator struct{}

var reJSONPosition = regexp.MustCompile(`position (\d+)`)

// Strict parses the whole document and reports the error position
func (JSONValidator) Strict(text string) *Diagnostic {
	err := parseJSON(text)
	if err == nil {
		return nil
	}
	return blocking(JSONSyntax, FieldText, "Invalid JSON at position %s. %s", jsonErrorPosition(text, err), err.Error())
}

// Lightweight makes the same parse with a shorter message
func (JSONValidator) Lightweight(text string) *Diagnostic {
	err := parseJSON(text)
	if err == nil {
		return nil
	}
	return warning(JSONSyntax, FieldText, "JSON syntax error at position %s", jsonErrorPosition(text, err))
}

// parseJSON checks syntax only, values like 1e999 are legal even if they don't fit float64
func parseJSON(text string) error {
	data := []byte(text)
	if json.Valid(data) {
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return errors.New("invalid json")
}

// jsonErrorPosition returns the character offset of a parse error or "unknown"
func jsonErrorPosition(text string, err error) string {
	var se *json.SyntaxError
	if errors.As(err, &se) {
		off := int(se.Offset)
		// offset points past the offending byte for invalid characters
		if strings.HasPrefix(se.Error(), "invalid character") && off > 0 {
			off--
		}
		off = min(max(off, 0), len(text))
		return strconv.Itoa(utf8.RuneCountInString(text[:off]))
	}
	if m := reJSONPosition.FindStringSubmatch(err.Error()); len(m) == 2 {
		return m[1]
	}
	return "unknown"
}

// JWTValidator checks compact JWT structure, header.payload.signature
type JWTValidator struct{}

const jwtParts = 3

// Strict checks the segment count and the charset of every segment.
// Empty signature is allowed for unsigned tokens.
func (JWTValidator) Strict(text string) *Diagnostic {
	parts := strings.Split(strings.TrimSpace(text), ".")
	if len(parts) != jwtParts {
		return blocking(JWTPartCount, FieldText,
			"Invalid JWT structure. Found %d part(s), expected %d parts (header.payload.signature).", len(parts), jwtParts)
	}

	for i, p := range parts {
		if p == "" {
			if i == jwtParts-1 {
				continue
			}
			return blocking(JWTInvalidChars, FieldText, "JWT part %d is empty. Only the signature part may be empty.", i+1)
		}
		if bad := jwtCharset.Violations(p); len(bad) > 0 {
			return blocking(JWTInvalidChars, FieldText, "Invalid characters in JWT part %d: %q. Only %s are allowed.",
				i+1, joinChars(bad), jwtCharset.Describe)
		}
	}
	return nil
}

// Lightweight checks the segment count only
func (JWTValidator) Lightweight(text string) *Diagnostic {
	n := len(strings.Split(strings.TrimSpace(text), "."))
	switch {
	case n < jwtParts:
		return warning(JWTPartCount, FieldText, "JWT incomplete. Found %d/%d parts.", n, jwtParts)
	case n > jwtParts:
		return warning(JWTPartCount, FieldText, "JWT has too many parts. Found %d, expected %d.", n, jwtParts)
	}
	return nil
}

// Base64Validator checks standard and MIME base64, whitespace is ignored
type Base64Validator struct{}

// Strict checks charset, then padding
func (Base64Validator) Strict(text string) *Diagnostic {
	clean := StripSpace(text)
	if bad := base64Charset.Violations(clean); len(bad) > 0 {
		return blocking(Base64InvalidChars, FieldText, "Invalid Base64 characters found: %q. Only %s are allowed.",
			joinChars(bad), base64Charset.Describe)
	}
	return base64Padding.Check(clean)
}

// Lightweight checks charset only
func (Base64Validator) Lightweight(text string) *Diagnostic {
	if bad := base64Charset.Violations(text); len(bad) > 0 {
		return warning(Base64InvalidChars, FieldText, "Invalid characters: %q", joinChars(bad))
	}
	return nil
}

// Base32Validator checks base32, case-insensitive, whitespace is ignored
type Base32Validator struct{}

// Strict checks charset, then padding placement
func (Base32Validator) Strict(text string) *Diagnostic {
	clean := strings.ToUpper(StripSpace(text))
	if bad := base32Charset.Violations(clean); len(bad) > 0 {
		return blocking(Base32InvalidChars, FieldText, "Invalid Base32 characters found: %q. Only %s are allowed.",
			joinChars(bad), base32Charset.Describe)
	}
	return base32Padding.Check(clean)
}

// Lightweight checks charset only
func (Base32Validator) Lightweight(text string) *Diagnostic {
	if bad := base32Charset.Violations(strings.ToUpper(text)); len(bad) > 0 {
		return warning(Base32InvalidChars, FieldText, "Invalid characters: %q", joinChars(bad))
	}
	return nil
}

// URLValidator checks percent-encoding escapes, the same rules for both passes
type URLValidator struct{}

// Strict requires every '%' to be followed by two hex digits
func (URLValidator) Strict(text string) *Diagnostic {
	for i := 0; i < len(text); i++ {
		if text[i] != '%' {
			continue
		}
		rest := text[i+1:]
		switch {
		case rest == "", len(rest) == 1 && isHex(rest[0]):
			return blocking(URLEncodingIncomplete, FieldText,
				"Incomplete URL encoding at the end. '%%' must be followed by exactly 2 hexadecimal digits.")
		case !isHex(rest[0]) || len(rest) == 1 || !isHex(rest[1]):
			return blocking(URLEncodingInvalidHex, FieldText,
				"Invalid URL encoding found: %q. After '%%', only hexadecimal digits (0-9, A-F) are allowed.", escapeAt(text, i))
		}
		i += 2
	}
	return nil
}

// Lightweight is the same as Strict, inputs are short and the check is linear
func (v URLValidator) Lightweight(text string) *Diagnostic {
	d := v.Strict(text)
	if d != nil {
		d.Severity = Warning
	}
	return d
}

// escapeAt returns the escape starting at i, up to three characters
func escapeAt(text string, i int) string {
	end := i
	for n := 0; n < 3 && end < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[i:end]
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
