package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	loads atomic.Int32
	err   error
}

func newCountingStore() *countingStore {
	return &countingStore{data: map[string][]byte{}}
}

func (s *countingStore) put(key, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = []byte(body)
}

func (s *countingStore) Exists(_ context.Context, key string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *countingStore) Load(_ context.Context, key string) ([]byte, error) {
	s.loads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return d, nil
}

const logistic4 = `{"model_type":"logistic_regression","coef":[0,0,0,0],"intercept":0.9946}`

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Meropenem", "meropenem"},
		{"Piperacillin-Tazobactam", "piperacillin_tazobactam"},
		{"  Co-trimoxazole (oral) ", "co_trimoxazole_oral"},
		{"aac(6')-Ib", "aac_6_ib"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestRegistry_MissingArtifact(t *testing.T) {
	store := newCountingStore()
	r := New(store, Options{FeatureSize: 4, SusceptibleLabel: 1})

	p, found, err := r.ProbabilityOfSusceptibility(context.Background(), "Amoxicillin", make([]float64, 4))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, p)
	assert.Empty(t, r.Cached())
}

func TestRegistry_AbsenceNotCached(t *testing.T) {
	store := newCountingStore()
	r := New(store, Options{FeatureSize: 4, SusceptibleLabel: 1})
	ctx := context.Background()

	_, found, err := r.Get(ctx, "Meropenem")
	require.NoError(t, err)
	require.False(t, found)

	store.put("meropenem", logistic4)

	m, found, err := r.Get(ctx, "Meropenem")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "meropenem", m.Key)
}

func TestRegistry_LoadsOnceAndCaches(t *testing.T) {
	store := newCountingStore()
	store.put("meropenem", logistic4)
	r := New(store, Options{FeatureSize: 4, SusceptibleLabel: 1})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, found, err := r.ProbabilityOfSusceptibility(ctx, "Meropenem", make([]float64, 4))
			assert.NoError(t, err)
			assert.True(t, found)
			assert.InDelta(t, 0.73, p, 0.001)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.loads.Load())
	assert.Equal(t, []string{"meropenem"}, r.Cached())
}

func TestRegistry_CapabilityPreference(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		label    int
		x        []float64
		wantCap  Capability
		wantP    float64
	}{
		{
			name:     "logistic uses probabilities",
			artifact: `{"model_type":"logistic_regression","coef":[1,0,0,0],"intercept":0}`,
			label:    1,
			x:        []float64{0, 0, 0, 0},
			wantCap:  CapabilityProbability,
			wantP:    0.5,
		},
		{
			name:     "svm squashes margin",
			artifact: `{"model_type":"linear_svm","coef":[[2,0,0,0]],"intercept":[0]}`,
			label:    1,
			x:        []float64{0, 0, 0, 0},
			wantCap:  CapabilityMargin,
			wantP:    0.5,
		},
		{
			name:     "svm margin inverted when susceptible is first class",
			artifact: `{"model_type":"linear_svm","coef":[0,0,0,0],"intercept":100}`,
			label:    0,
			x:        []float64{0, 0, 0, 0},
			wantCap:  CapabilityMargin,
			wantP:    0,
		},
		{
			name:     "threshold hard label susceptible",
			artifact: `{"model_type":"threshold","feature":2,"threshold":3}`,
			label:    1,
			x:        []float64{0, 0, 5, 0},
			wantCap:  CapabilityLabel,
			wantP:    1,
		},
		{
			name:     "threshold hard label resistant",
			artifact: `{"model_type":"threshold","feature":2,"threshold":3}`,
			label:    1,
			x:        []float64{0, 0, 1, 0},
			wantCap:  CapabilityLabel,
			wantP:    0,
		},
		{
			name:     "custom class labels",
			artifact: `{"model_type":"logistic_regression","classes":[-1,7],"coef":[0,0,0,0],"intercept":0.9946}`,
			label:    -1,
			x:        []float64{0, 0, 0, 0},
			wantCap:  CapabilityProbability,
			wantP:    0.27,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			store.put("drug", tt.artifact)
			r := New(store, Options{FeatureSize: 4, SusceptibleLabel: tt.label})

			m, found, err := r.Get(context.Background(), "Drug")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, tt.wantCap, m.Capability)

			p, err := m.ProbabilityOfSusceptibility(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantP, p, 0.001)
		})
	}
}

func TestRegistry_LoadFailures(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		label    int
		wantErr  error
	}{
		{"invalid json", `{"model_type":`, 1, ErrMalformedArtifact},
		{"missing type", `{"coef":[0,0,0,0]}`, 1, ErrMalformedArtifact},
		{"unknown type", `{"model_type":"random_forest"}`, 1, ErrUnsupportedArtifact},
		{"coef length", `{"model_type":"logistic_regression","coef":[0,0]}`, 1, ErrFeatureMismatch},
		{"feature out of range", `{"model_type":"threshold","feature":9,"threshold":1}`, 1, ErrFeatureMismatch},
		{"label not in classes", logistic4, 5, ErrLabelNotInClasses},
		{"three classes", `{"model_type":"threshold","classes":[0,1,2],"feature":0}`, 1, ErrMalformedArtifact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			store.put("drug", tt.artifact)

			var events []LoadEvent
			r := New(store, Options{
				FeatureSize:      4,
				SusceptibleLabel: tt.label,
				OnLoad:           func(ev LoadEvent) { events = append(events, ev) },
			})

			_, _, err := r.ProbabilityOfSusceptibility(context.Background(), "Drug", make([]float64, 4))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, "Drug", le.Antibiotic)
			assert.Equal(t, "drug", le.Key)

			require.Len(t, events, 1)
			assert.Error(t, events[0].Err)
			assert.Empty(t, r.Cached())
		})
	}
}

func TestRegistry_VectorLengthMismatch(t *testing.T) {
	store := newCountingStore()
	store.put("meropenem", logistic4)
	r := New(store, Options{FeatureSize: 4, SusceptibleLabel: 1})

	_, found, err := r.ProbabilityOfSusceptibility(context.Background(), "Meropenem", make([]float64, 3))
	assert.True(t, found)
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestRegistry_StoreErrorPropagates(t *testing.T) {
	store := newCountingStore()
	store.err = errors.New("disk on fire")
	r := New(store, Options{FeatureSize: 4, SusceptibleLabel: 1})

	_, _, err := r.Get(context.Background(), "Meropenem")
	assert.EqualError(t, err, "disk on fire")
}

func TestRegistry_HasDoesNotLoad(t *testing.T) {
	store := newCountingStore()
	store.put("meropenem", logistic4)
	r := New(store, Options{FeatureSize: 4, SusceptibleLabel: 1})
	ctx := context.Background()

	ok, err := r.Has(ctx, "Meropenem")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Has(ctx, "Gentamicin")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Zero(t, store.loads.Load())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meropenem.json"), []byte(logistic4), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "gentamicin.json"), 0o755))
	s := NewFileStore(dir, "")
	ctx := context.Background()

	ok, err := s.Exists(ctx, "meropenem")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "gentamicin")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not artifacts")

	ok, err = s.Exists(ctx, "../meropenem")
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := s.Load(ctx, "meropenem")
	require.NoError(t, err)
	assert.JSONEq(t, logistic4, string(data))

	_, err = s.Load(ctx, "amoxicillin")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	keys, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"meropenem"}, keys)
}

func TestRegistry_WithFileStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "piperacillin_tazobactam.json"), []byte(logistic4), 0o644))
	r := New(NewFileStore(dir, ".json"), Options{FeatureSize: 4, SusceptibleLabel: 1})

	p, found, err := r.ProbabilityOfSusceptibility(context.Background(), "Piperacillin-Tazobactam", make([]float64, 4))
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 0.73, p, 0.001)
}
