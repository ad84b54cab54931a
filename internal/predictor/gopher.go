package predictor

import "webcorpus/internal/predicate"

// gopherPredictor adapts predicate.GopherQuality to the Predictor interface
// so the quality filters can be looked up through the same registry as the
// learned classifiers, under names quality_c4 and quality_wiki.
type gopherPredictor struct {
	minWords int
}

// loadGopherPredictor returns a Loader ignoring modelDir: the Gopher
// heuristic has no model artifact to load.
func loadGopherPredictor(minWords int) Loader {
	return func(string) (Predictor, error) {
		return &gopherPredictor{minWords: minWords}, nil
	}
}

// Predict returns "pass" or "reject_"+reason as the label, with confidence
// 1.0 always: the heuristic is deterministic, not probabilistic.
func (g *gopherPredictor) Predict(text string) (string, float64, error) {
	ok, reason := predicate.GopherQuality(text, g.minWords)
	if ok {
		return "pass", 1.0, nil
	}
	return "reject_" + string(reason), 1.0, nil
}
