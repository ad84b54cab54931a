package predicate

import "testing"

func TestLanguageStep_RejectsBelowThreshold(t *testing.T) {
	step := LanguageStep("language", stubPredictor{"en", 0.5}, "en", 0.8)
	ok, _, err := step.Run("whatever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected rejection below confidence threshold")
	}
}

func TestLanguageStep_RejectsWrongLang(t *testing.T) {
	step := LanguageStep("language", stubPredictor{"fr", 0.95}, "en", 0.8)
	ok, _, _ := step.Run("Bonjour")
	if ok {
		t.Error("expected rejection for non-target language")
	}
}

func TestLanguageStep_Passes(t *testing.T) {
	step := LanguageStep("language", stubPredictor{"en", 0.95}, "en", 0.8)
	ok, out, _ := step.Run("hello there")
	if !ok || out != "hello there" {
		t.Errorf("got (%v, %q), want pass with unchanged text", ok, out)
	}
}

func TestPIIMaskStep_NeverRejects(t *testing.T) {
	step := PIIMaskStep("pii")
	ok, out, err := step.Run("Email me at a.b@c.io.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("pii masking must never reject")
	}
	if out == "Email me at a.b@c.io." {
		t.Error("expected text to be rewritten")
	}
}

func TestClassifierStep_RejectsAboveThreshold(t *testing.T) {
	step := ClassifierStep("nsfw", stubPredictor{"nsfw", 0.9}, "nsfw", 0.8)
	ok, _, _ := step.Run("text")
	if ok {
		t.Error("expected rejection at confidence above threshold")
	}
}

func TestClassifierStep_PassesBelowThreshold(t *testing.T) {
	step := ClassifierStep("nsfw", stubPredictor{"nsfw", 0.5}, "nsfw", 0.8)
	ok, _, _ := step.Run("text")
	if !ok {
		t.Error("expected pass below confidence threshold")
	}
}

func TestQualityStep_DelegatesToGopherQuality(t *testing.T) {
	step := QualityStep("quality", 50)
	ok, _, _ := step.Run("too short")
	if ok {
		t.Error("expected rejection for short text")
	}
}
