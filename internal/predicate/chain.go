package predicate

// Step is one stage of a shard worker's predicate chain: a named check that
// either passes a record through (possibly rewriting its text, as PII
// masking does) or rejects it under a tag. Chains are built by the caller
// (the shard worker) from a Registry of loaded predictors plus the
// zero-dependency pure functions in this package.
type Step struct {
	Tag string
	Run func(text string) (ok bool, out string, err error)
}

// Chain is an ordered list of Steps, applied until the first rejection.
type Chain []Step

// LanguageStep builds a Step that rejects text whose detected language or
// confidence doesn't match (targetLang, minConfidence). An empty targetLang
// accepts any language at or above minConfidence.
func LanguageStep(tag string, p Predictor, targetLang string, minConfidence float64) Step {
	return Step{
		Tag: tag,
		Run: func(text string) (bool, string, error) {
			lang, conf, err := DetectLanguage(p, text)
			if err != nil {
				return false, text, err
			}
			if conf < minConfidence {
				return false, text, nil
			}
			if targetLang != "" && lang != targetLang {
				return false, text, nil
			}
			return true, text, nil
		},
	}
}

// QualityStep builds a Step wrapping GopherQuality.
func QualityStep(tag string, minWords int) Step {
	return Step{
		Tag: tag,
		Run: func(text string) (bool, string, error) {
			ok, reason := GopherQuality(text, minWords)
			if !ok {
				return false, text, nil
			}
			_ = reason
			return true, text, nil
		},
	}
}

// PIIMaskStep builds a Step that rewrites text via email/phone/IPv4
// masking in sequence. It never rejects a record.
func PIIMaskStep(tag string) Step {
	return Step{
		Tag: tag,
		Run: func(text string) (bool, string, error) {
			text, _ = MaskEmail(text)
			text, _ = MaskPhone(text)
			text, _ = MaskIPv4(text)
			return true, text, nil
		},
	}
}

// ClassifierStep builds a Step that rejects text when classify returns a
// label equal to rejectLabel at confidence >= threshold.
func ClassifierStep(tag string, p Predictor, rejectLabel string, threshold float64) Step {
	return Step{
		Tag: tag,
		Run: func(text string) (bool, string, error) {
			label, conf, err := p.Predict(text)
			if err != nil {
				return false, text, err
			}
			if label == rejectLabel && conf >= threshold {
				return false, text, nil
			}
			return true, text, nil
		},
	}
}
