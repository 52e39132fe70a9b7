package validator

import "strings"

const padChar = "="

// PaddingRule checks placement and count of trailing '=' in padded encodings.
// Input is expected to be whitespace-free.
type PaddingRule struct {
	Name   string // encoding name used in messages
	MaxPad int    // max number of padding characters, 0 means unlimited
	Code   Code
}

var (
	base64Padding = PaddingRule{Name: "Base64", MaxPad: 2, Code: Base64BadPadding}
	base32Padding = PaddingRule{Name: "Base32", Code: Base32BadPadding} // up to 6 pad chars are legal
)

// Check returns blocking diagnostic if padding is too long or not confined to the suffix
func (p PaddingRule) Check(s string) *Diagnostic {
	count := strings.Count(s, padChar)
	if count == 0 {
		return nil
	}
	if p.MaxPad > 0 && count > p.MaxPad {
		return blocking(p.Code, FieldText, "Invalid %s padding. Found %d '=' characters, maximum allowed is %d.",
			p.Name, count, p.MaxPad)
	}
	trailing := len(s) - len(strings.TrimRight(s, padChar))
	if trailing != count {
		return blocking(p.Code, FieldText, "Invalid %s padding. Padding '=' must only be at the end of the string.", p.Name)
	}
	return nil
}
