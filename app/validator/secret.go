package validator

import "unicode/utf8"

// MinSecretLen is the minimal length of a secret for keyed operations (hmac, jwt)
const MinSecretLen = 3

// SecretStrict checks presence and length of a secret on submit
func SecretStrict(secret string) *Diagnostic {
	if Blank(secret) {
		return blocking(SecretMissing, FieldSecret, "Secret key is missing. This operation requires a secret key.")
	}
	if n := utf8.RuneCountInString(secret); n < MinSecretLen {
		return blocking(SecretTooShort, FieldSecret,
			"Secret key too short. Current: %d characters. Required: at least %d characters.", n, MinSecretLen)
	}
	return nil
}

// SecretLightweight warns about a short secret while typing, empty secret is not flagged until submit
func SecretLightweight(secret string) *Diagnostic {
	if Blank(secret) {
		return nil
	}
	if n := utf8.RuneCountInString(secret); n < MinSecretLen {
		return warning(SecretTooShort, FieldSecret, "Secret key too short (%d/%d characters minimum)", n, MinSecretLen)
	}
	return nil
}
