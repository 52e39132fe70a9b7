package validator

import "strings"

// CharsetRule checks text against an alphabet of allowed characters
type CharsetRule struct {
	Allowed   func(r rune) bool
	SkipSpace bool   // ignore ascii whitespace, for whitespace-tolerant formats
	Describe  string // human readable list of allowed characters
}

var (
	base64Charset = CharsetRule{
		Allowed:   func(r rune) bool { return isAlnum(r) || r == '+' || r == '/' || r == '=' },
		SkipSpace: true,
		Describe:  "A-Z, a-z, 0-9, +, /, and =",
	}

	// base32 input is upper-cased before the check
	base32Charset = CharsetRule{
		Allowed:   func(r rune) bool { return (r >= 'A' && r <= 'Z') || (r >= '2' && r <= '7') || r == '=' },
		SkipSpace: true,
		Describe:  "A-Z, 2-7, and =",
	}

	jwtCharset = CharsetRule{
		Allowed:  func(r rune) bool { return isAlnum(r) || r == '-' || r == '_' },
		Describe: "A-Z, a-z, 0-9, -, and _",
	}
)

// Violations returns characters of text not allowed by the rule, deduplicated in order of appearance
func (c CharsetRule) Violations(text string) []rune {
	var res []rune
	seen := map[rune]bool{}
	for _, r := range text {
		if c.SkipSpace && isSpace(r) {
			continue
		}
		if c.Allowed(r) || seen[r] {
			continue
		}
		seen[r] = true
		res = append(res, r)
	}
	return res
}

// StripSpace removes all ascii whitespace from s
func StripSpace(s string) string {
	if strings.IndexFunc(s, isSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, s)
}

// joinChars makes "a, b, c" from the list of characters
func joinChars(chars []rune) string {
	parts := make([]string, 0, len(chars))
	for _, r := range chars {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}

func isAlnum(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
