package predictor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// fastTextPredictor loads a label/keywords/threshold table from a plain-text
// model file (one "label\tkeyword1,keyword2\tthreshold" rule per line) and
// scores text by
// picking the entry whose keywords most densely cover the input. This
// stands in for an actual fastText `.bin` model: the pipeline's contract is
// the Predictor interface, not any particular inference engine, and no
// model binaries ship with this module.
type fastTextPredictor struct {
	name     string
	defaults []labelRule
}

type labelRule struct {
	label     string
	keywords  []string
	threshold float64
}

// loadFastText returns a Loader that reads modelDir/filename if present, or
// falls back to a conservative built-in rule set keyed by name otherwise.
// The file format is intentionally simple: "label\tkeyword1,keyword2\tthreshold".
//
// When store is non-nil, the raw file bytes are looked up there first
// (keyed by filename) before touching disk, and written back after a disk
// read — a worker that has already read lang.bin once skips the disk read
// on the next run; the rules are still parsed from those bytes on every
// load. store may be nil, in which case this
// behaves exactly like reading modelDir/filename directly.
func loadFastText(filename string, store Store) Loader {
	return func(modelDir string) (Predictor, error) {
		data, err := readModelBytes(modelDir, filename, store)
		if err != nil {
			if os.IsNotExist(err) {
				return &fastTextPredictor{name: filename, defaults: defaultRules(filename)}, nil
			}
			return nil, fmt.Errorf("predictor: loading %s: %w", filename, err)
		}
		return &fastTextPredictor{name: filename, defaults: parseRules(data)}, nil
	}
}

// readModelBytes returns the raw contents of modelDir/filename, consulting
// store as a cross-run cache before falling back to disk.
func readModelBytes(modelDir, filename string, store Store) ([]byte, error) {
	if store != nil {
		if data, ok := store.Get(filename); ok {
			return data, nil
		}
	}

	path := filepath.Join(modelDir, filename)
	data, err := os.ReadFile(path) //nolint:gosec // path built from a fixed model directory and predictor name
	if err != nil {
		return nil, err
	}
	if store != nil {
		store.Set(filename, data)
	}
	return data, nil
}

func parseRules(data []byte) []labelRule {
	var rules []labelRule
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			continue
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			continue
		}
		rules = append(rules, labelRule{
			label:     strings.TrimSpace(parts[0]),
			keywords:  strings.Split(parts[1], ","),
			threshold: threshold,
		})
	}
	return rules
}

// defaultRules supplies a minimal always-available fallback so the pipeline
// runs end to end without a models/ directory present.
func defaultRules(name string) []labelRule {
	switch {
	case strings.Contains(name, "lang"):
		return []labelRule{{label: "en", keywords: nil, threshold: 0.99}}
	case strings.Contains(name, "nsfw"):
		return []labelRule{{label: "clean", keywords: nil, threshold: 0.99}}
	case strings.Contains(name, "toxic"):
		return []labelRule{{label: "non_toxic", keywords: nil, threshold: 0.99}}
	default:
		return []labelRule{{label: "unknown", keywords: nil, threshold: 0.5}}
	}
}

// Predict scores text against each rule's keyword coverage and returns the
// best match; with no keywords configured (the fallback rule set) it always
// returns that rule's label at its configured threshold confidence.
func (p *fastTextPredictor) Predict(text string) (string, float64, error) {
	if len(p.defaults) == 0 {
		return "", 0, fmt.Errorf("predictor %s: no rules loaded", p.name)
	}

	lower := strings.ToLower(text)
	best := p.defaults[0]
	bestScore := 0
	for _, rule := range p.defaults {
		if len(rule.keywords) == 0 {
			continue
		}
		score := 0
		for _, kw := range rule.keywords {
			kw = strings.TrimSpace(kw)
			if kw != "" && strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = rule
		}
	}
	return best.label, best.threshold, nil
}
