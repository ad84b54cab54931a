package predicate

import "regexp"

// Replacement tokens emitted in place of detected PII. These are exact
// literal tokens, not a confidence-keyed format: masking here is a one-way,
// unconditional rewrite (SPEC_FULL.md intentionally drops the source
// proxy's reversible session-token/Ollama-verification machinery — masking
// never needs to be undone downstream in this pipeline).
const (
	tokenEmail = "|||EMAIL_ADDRESS|||"
	tokenPhone = "|||PHONE_NUMBER|||"
	tokenIPv4  = "|||IP_ADDRESS|||"
)

var (
	emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// North-American 10-digit forms, with optional parens/spaces/dashes.
	// RE2 has no lookarounds; maskAllGuarded rejects matches that sit
	// inside a longer digit run.
	phoneNANP = regexp.MustCompile(`(?:\d{10}|\(\d{3}\)[ \-]?\d{3}[ \-]?\d{4}|\d{3}[ \-]?\d{3}[ \-]?\d{4})`)

	// International form: optional country code, then NNN-NNNN-NNNN.
	phoneIntl = regexp.MustCompile(`(?:(?:\+\d{1,3}|\(\+\d{1,3}\))[ \-]?)?\d{3}[ \-]?\d{4}[ \-]?\d{4}`)

	// IPv4: deliberately does not validate octet ranges (matches source
	// behavior — see DESIGN.md Open Question resolution 2).
	ipv4RE = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// MaskEmail replaces email addresses with tokenEmail, returning the masked
// text and the number of substitutions made.
func MaskEmail(text string) (string, int) {
	return maskAll(text, emailRE, tokenEmail)
}

// MaskPhone replaces phone numbers with tokenPhone. It runs the
// North-American pattern first, then the international pattern, matching
// the two-pass structure of the source masker.
func MaskPhone(text string) (string, int) {
	text, n1 := maskAllGuarded(text, phoneNANP, tokenPhone)
	text, n2 := maskAllGuarded(text, phoneIntl, tokenPhone)
	return text, n1 + n2
}

// MaskIPv4 replaces dotted-quad sequences with tokenIPv4. Octet ranges are
// not validated, so non-address quads (e.g. version strings) may match;
// this mirrors the source behavior intentionally.
func MaskIPv4(text string) (string, int) {
	return maskAll(text, ipv4RE, tokenIPv4)
}

// maskAll replaces every match of re in text with token, and returns the
// number of replacements.
func maskAll(text string, re *regexp.Regexp, token string) (string, int) {
	n := 0
	out := re.ReplaceAllStringFunc(text, func(string) string {
		n++
		return token
	})
	return out, n
}

// maskAllGuarded behaves like maskAll but additionally enforces the
// lookaround-equivalent boundary the source regex achieves with
// (?<!\d)...(?!\d): a match is only applied if it is not itself immediately
// preceded or followed by another digit in the original text. Go's RE2
// engine has no lookaround support, so the guard is applied post-hoc against
// match offsets.
func maskAllGuarded(text string, re *regexp.Regexp, token string) (string, int) {
	locs := re.FindAllStringIndex(text, -1)
	if locs == nil {
		return text, 0
	}

	var b []byte
	last := 0
	n := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start < last {
			continue // overlapped with a previous replacement
		}
		if isDigitBoundary(text, start, end) {
			continue
		}
		b = append(b, text[last:start]...)
		b = append(b, token...)
		last = end
		n++
	}
	b = append(b, text[last:]...)
	return string(b), n
}

// isDigitBoundary reports whether the byte immediately before start or
// immediately after end is an ASCII digit, meaning the match is really a
// substring of a longer digit run and should not be masked as a phone
// number.
func isDigitBoundary(text string, start, end int) bool {
	if start > 0 && isASCIIDigit(text[start-1]) {
		return true
	}
	if end < len(text) && isASCIIDigit(text[end]) {
		return true
	}
	return false
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }
