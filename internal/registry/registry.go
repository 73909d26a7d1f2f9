package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// LoadError reports an artifact that exists but could not be turned into a
// usable model.
type LoadError struct {
	Antibiotic string
	Key        string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model for %s (%s): %v", e.Antibiotic, e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type LoadEvent struct {
	Antibiotic string
	Key        string
	Capability Capability
	Duration   time.Duration
	Err        error
}

type Options struct {
	// FeatureSize is the expected vector length (4^k); 0 disables the check.
	FeatureSize int
	// SusceptibleLabel is the class label meaning "susceptible".
	SusceptibleLabel int
	// OnLoad fires after every load attempt of an existing artifact.
	OnLoad func(LoadEvent)
}

// Model is a loaded artifact with its resolved scoring function.
type Model struct {
	Key        string
	Capability Capability
	Classifier Classifier

	featureSize int
	score       scoreFunc
}

func (m *Model) ProbabilityOfSusceptibility(x []float64) (float64, error) {
	if m.featureSize > 0 && len(x) != m.featureSize {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, len(x), m.featureSize)
	}
	return m.score(x), nil
}

// Registry lazily loads one model per antibiotic and caches it for the
// lifetime of the process. Absence is never cached, so artifacts added
// later are picked up on the next request.
type Registry struct {
	store Store
	opts  Options

	mu    sync.RWMutex
	cache map[string]*Model
	locks map[string]*sync.Mutex
}

func New(store Store, opts Options) *Registry {
	return &Registry{
		store: store,
		opts:  opts,
		cache: make(map[string]*Model),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *Registry) cached(key string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.cache[key]
	return m, ok
}

func (r *Registry) keyLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

// Has reports whether an artifact exists for the antibiotic without loading it.
func (r *Registry) Has(ctx context.Context, antibiotic string) (bool, error) {
	key := NormalizeName(antibiotic)
	if _, ok := r.cached(key); ok {
		return true, nil
	}
	return r.store.Exists(ctx, key)
}

// Get returns the model for an antibiotic. found is false, with a nil error,
// when no artifact exists.
func (r *Registry) Get(ctx context.Context, antibiotic string) (*Model, bool, error) {
	key := NormalizeName(antibiotic)
	if m, ok := r.cached(key); ok {
		return m, true, nil
	}

	// One loader per key; other keys proceed concurrently.
	l := r.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if m, ok := r.cached(key); ok {
		return m, true, nil
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}

	start := time.Now()
	m, err := r.load(ctx, key)
	if errors.Is(err, ErrArtifactNotFound) {
		return nil, false, nil
	}

	if r.opts.OnLoad != nil {
		ev := LoadEvent{Antibiotic: antibiotic, Key: key, Duration: time.Since(start), Err: err}
		if m != nil {
			ev.Capability = m.Capability
		}
		r.opts.OnLoad(ev)
	}

	if err != nil {
		return nil, false, &LoadError{Antibiotic: antibiotic, Key: key, Err: err}
	}

	r.mu.Lock()
	r.cache[key] = m
	r.mu.Unlock()
	return m, true, nil
}

func (r *Registry) load(ctx context.Context, key string) (*Model, error) {
	data, err := r.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	c, err := Decode(data, r.opts.FeatureSize)
	if err != nil {
		return nil, err
	}
	score, capability, err := resolve(c, r.opts.SusceptibleLabel)
	if err != nil {
		return nil, err
	}
	return &Model{
		Key:         key,
		Capability:  capability,
		Classifier:  c,
		featureSize: r.opts.FeatureSize,
		score:       score,
	}, nil
}

// ProbabilityOfSusceptibility scores x with the antibiotic's model. found is
// false when there is no artifact; errors are load or input failures.
func (r *Registry) ProbabilityOfSusceptibility(ctx context.Context, antibiotic string, x []float64) (float64, bool, error) {
	m, found, err := r.Get(ctx, antibiotic)
	if err != nil || !found {
		return 0, found, err
	}
	p, err := m.ProbabilityOfSusceptibility(x)
	if err != nil {
		return 0, true, &LoadError{Antibiotic: antibiotic, Key: m.Key, Err: err}
	}
	return p, true, nil
}

// Cached lists the keys of models currently held in memory.
func (r *Registry) Cached() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.cache))
	for k := range r.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
