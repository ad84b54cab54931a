package predicate

import (
	"strings"
	"testing"
)

func TestGopherQuality_OneLessThanMinFailsTooShort(t *testing.T) {
	// minWords-1 tokens of a word that clears every other check in
	// isolation must still fail on token count alone (strict < boundary).
	text := strings.TrimSpace(strings.Repeat("normal ", 49))
	passed, reason := GopherQuality(text, 50)
	if passed || reason != ReasonTooShort {
		t.Errorf("got passed=%v reason=%v, want fail too_short with minWords-1 tokens", passed, reason)
	}
}

func TestGopherQuality_ExactlyMinDoesNotFailTooShort(t *testing.T) {
	// Exactly minWords tokens must clear the too-short gate (matching the
	// source's strict total_tokens < word_limit comparison), even though
	// this particular word choice still fails on average word length.
	text := strings.TrimSpace(strings.Repeat("ok ", 50))
	passed, reason := GopherQuality(text, 50)
	if passed || reason != ReasonAvgLenOOB {
		t.Errorf("got passed=%v reason=%v, want fail avg_len_oob (too_short gate must not trigger at exactly minWords)", passed, reason)
	}
}

func TestGopherQuality_OneMoreThanMinPasses(t *testing.T) {
	text := strings.Repeat("cats ", 51)
	passed, reason := GopherQuality(strings.TrimSpace(text), 50)
	if !passed {
		t.Errorf("expected pass with minWords+1 tokens, got reason=%v", reason)
	}
}

func TestGopherQuality_S3_AvgLenOutOfBounds(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("the be ", 100))
	passed, reason := GopherQuality(text, 5)
	if passed || reason != ReasonAvgLenOOB {
		t.Errorf("got passed=%v reason=%v, want fail avg_len_oob", passed, reason)
	}
}

func TestGopherQuality_LowAlpha(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("123 456 789 ", 20))
	passed, reason := GopherQuality(text, 5)
	if passed || reason != ReasonLowAlpha {
		t.Errorf("got passed=%v reason=%v, want fail low_alpha", passed, reason)
	}
}

func TestGopherQuality_ExcessEllipsis(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("this line trails off...\n")
	}
	passed, reason := GopherQuality(b.String(), 5)
	if passed || reason != ReasonExcessEllipsis {
		t.Errorf("got passed=%v reason=%v, want fail excess_ellipsis", passed, reason)
	}
}

func TestGopherQuality_Ok(t *testing.T) {
	text := strings.Repeat("reasonable sentence with normal words here ", 10)
	passed, reason := GopherQuality(text, 5)
	if !passed || reason != ReasonOK {
		t.Errorf("got passed=%v reason=%v, want ok", passed, reason)
	}
}

func TestMaskEmail(t *testing.T) {
	out, n := MaskEmail("Feel free to contact me at test@gmail.com if you have questions.")
	if n != 1 {
		t.Errorf("count: got %d, want 1", n)
	}
	if !strings.Contains(out, tokenEmail) {
		t.Errorf("output missing token: %q", out)
	}
}

func TestMaskEmail_Idempotent(t *testing.T) {
	text := "Email me at a.b@c.io please."
	once, _ := MaskEmail(text)
	twice, n := MaskEmail(once)
	if once != twice {
		t.Errorf("masking not idempotent: once=%q twice=%q", once, twice)
	}
	if n != 0 {
		t.Errorf("second pass should find no new matches, got %d", n)
	}
}

func TestMaskPhone(t *testing.T) {
	out, n := MaskPhone("Call me at (212) 555-1212.")
	if n != 1 {
		t.Errorf("count: got %d, want 1", n)
	}
	if !strings.Contains(out, tokenPhone) {
		t.Errorf("output missing token: %q", out)
	}
}

func TestMaskIPv4_DoesNotValidateOctetRanges(t *testing.T) {
	out, n := MaskIPv4("The bogus address 999.999.999.999 matches anyway.")
	if n != 1 {
		t.Errorf("count: got %d, want 1 (octet ranges intentionally unvalidated)", n)
	}
	if !strings.Contains(out, tokenIPv4) {
		t.Errorf("output missing token: %q", out)
	}
}

func TestS2_EmailAndPhoneTogether(t *testing.T) {
	text := "Email me at a.b@c.io or call (212) 555-1212."
	text, emailCount := MaskEmail(text)
	text, phoneCount := MaskPhone(text)

	want := "Email me at |||EMAIL_ADDRESS||| or call |||PHONE_NUMBER|||."
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
	if emailCount != 1 || phoneCount != 1 {
		t.Errorf("counts: got (%d,%d), want (1,1)", emailCount, phoneCount)
	}
}

type stubPredictor struct {
	label string
	conf  float64
}

func (s stubPredictor) Predict(string) (string, float64, error) {
	return s.label, s.conf, nil
}

func TestS5_LanguageDetection(t *testing.T) {
	lang, conf, err := DetectLanguage(stubPredictor{"fr", 0.92}, "Bonjour   tout le   monde")
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if lang != "fr" || conf <= 0.8 {
		t.Errorf("got (%s, %f), want (fr, >0.8)", lang, conf)
	}
}
