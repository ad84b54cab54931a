package predicate

import "strings"

// Predictor is the uniform interface every classifier in the predictor
// registry (C2) implements. Declared here, not imported from the registry
// package, so predicate stays a leaf with no dependency on how models are
// loaded — only on the shape of their output.
type Predictor interface {
	Predict(text string) (label string, confidence float64, err error)
}

// DetectLanguage normalizes whitespace and defers to p for the actual
// inference, returning (lang_tag, confidence).
func DetectLanguage(p Predictor, text string) (string, float64, error) {
	normalized := normalizeWhitespace(text)
	return p.Predict(normalized)
}

// ClassifyNSFW returns the nsfw/non-nsfw label and confidence for text.
// Thresholding against the caller-supplied cutoff happens in the shard
// worker's predicate chain, not here — the classifier itself never rejects.
func ClassifyNSFW(p Predictor, text string) (string, float64, error) {
	return p.Predict(text)
}

// ClassifyToxic returns the toxic/non-toxic label and confidence for text.
func ClassifyToxic(p Predictor, text string) (string, float64, error) {
	return p.Predict(text)
}

func normalizeWhitespace(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}
