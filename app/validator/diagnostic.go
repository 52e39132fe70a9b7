package validator

import "fmt"

// Severity of a diagnostic
type Severity string

// enum of severities
const (
	Warning  Severity = "warning"  // advisory, from the lightweight pass
	Blocking Severity = "blocking" // from the strict pass, prevents the transform call
)

// Code identifies the violated rule
type Code string

// enum of diagnostic codes
const (
	EmptyInput            Code = "EmptyInput"
	SecretMissing         Code = "SecretMissing"
	SecretTooShort        Code = "SecretTooShort"
	JSONSyntax            Code = "JsonSyntax"
	JWTPartCount          Code = "JwtPartCount"
	JWTInvalidChars       Code = "JwtInvalidChars"
	Base64InvalidChars    Code = "Base64InvalidChars"
	Base64BadPadding      Code = "Base64BadPadding"
	Base32InvalidChars    Code = "Base32InvalidChars"
	Base32BadPadding      Code = "Base32BadPadding"
	URLEncodingInvalidHex Code = "UrlEncodingInvalidHex"
	URLEncodingIncomplete Code = "UrlEncodingIncomplete"
)

// fields a diagnostic can be attached to
const (
	FieldText   = "text"
	FieldSecret = "secret"
)

// Diagnostic describes the first violated rule of a validation call.
// A nil *Diagnostic means the input is valid.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Field    string   `json:"field"`
}

// Error implements error interface, so a blocking diagnostic can travel as an error
func (d *Diagnostic) Error() string {
	return d.Message
}

// IsBlocking returns true for non-nil blocking diagnostic
func (d *Diagnostic) IsBlocking() bool {
	return d != nil && d.Severity == Blocking
}

func blocking(code Code, field, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: Blocking, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

func warning(code Code, field, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: Warning, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}
