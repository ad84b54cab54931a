// Package predictor implements the process-local lazy classifier cache
// named in the component contract as C2.
//
// The source keeps classifier handles in a module-global dict, shared by
// every worker process — exactly the anti-pattern SPEC_FULL.md's Design
// Notes call out ("process-wide state → process-local registries"). Here,
// the filter orchestrator (C5) constructs one *Registry per worker
// goroutine; nothing is package-level, so there is nothing to accidentally
// share across concurrent workers.
package predictor

import (
	"fmt"
	"sync"
)

// Predictor is the uniform `predict(text) -> (label, confidence)` interface
// every classifier implements.
type Predictor interface {
	Predict(text string) (label string, confidence float64, err error)
}

// Loader constructs a Predictor for a given name, reading whatever backing
// model file it needs from modelDir. Loaders are registered once, up front;
// Registry defers calling them until the name is first requested.
type Loader func(modelDir string) (Predictor, error)

// Registry is a process-local, lazily populated predictor cache. A Registry
// must never be shared between worker goroutines: construct one per worker
// so non-thread-safe model handles are never touched concurrently.
type Registry struct {
	modelDir string
	loaders  map[string]Loader
	store    Store

	mu    sync.Mutex
	ready map[string]Predictor
	errs  map[string]error
}

// New returns a Registry backed by modelDir, pre-registered with the
// pipeline's standard predictor set (lang, nsfw, toxic, quality_c4,
// quality_wiki). Models are not loaded until first use. Equivalent to
// NewWithStore(modelDir, nil) — no cross-run persistence.
func New(modelDir string) *Registry {
	return NewWithStore(modelDir, nil)
}

// NewWithStore is like New but consults store (if non-nil) to avoid
// re-reading from disk a model file a previous run already loaded; the
// file's rules are still parsed on each load. store is typically
// an OpenStore-backed bbolt database shared across runs against the same
// modelDir.
func NewWithStore(modelDir string, store Store) *Registry {
	r := &Registry{
		modelDir: modelDir,
		loaders:  make(map[string]Loader),
		store:    store,
		ready:    make(map[string]Predictor),
		errs:     make(map[string]error),
	}
	r.Register("lang", loadFastText("lang.bin", store))
	r.Register("nsfw", loadFastText("nsfw.bin", store))
	r.Register("toxic", loadFastText("toxic.bin", store))
	r.Register("quality_c4", loadGopherPredictor(50))
	r.Register("quality_wiki", loadGopherPredictor(100))
	return r
}

// Register installs a loader for name, overwriting any previous loader.
// Intended for tests and for extending the default set; Get still only
// invokes it once.
func (r *Registry) Register(name string, loader Loader) {
	r.mu.Lock()
	r.loaders[name] = loader
	r.mu.Unlock()
}

// Get returns the Predictor for name, loading it on first access. Models
// are never evicted for the lifetime of the Registry, matching the
// component contract.
func (r *Registry) Get(name string) (Predictor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.ready[name]; ok {
		return p, nil
	}
	if err, ok := r.errs[name]; ok {
		return nil, err
	}

	loader, ok := r.loaders[name]
	if !ok {
		return nil, fmt.Errorf("predictor: no loader registered for %q", name)
	}
	p, err := loader(r.modelDir)
	if err != nil {
		r.errs[name] = err
		return nil, err
	}
	r.ready[name] = p
	return p, nil
}

// Close releases the Registry's backing store, if one was supplied via
// NewWithStore. Safe to call on a Registry with no store.
func (r *Registry) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
