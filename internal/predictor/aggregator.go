package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/OldStager01/genomerx/internal/kmer"
	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/internal/metrics"
	"github.com/OldStager01/genomerx/internal/sequence"
	"github.com/OldStager01/genomerx/pkg/models"
)

const (
	OutcomeSuccess    = "success"
	OutcomeModelError = "model_error"
)

var ErrInvalidProbability = errors.New("model returned a probability outside [0,1]")

// Scorer answers the single per-antibiotic query the pipeline needs.
// found=false means no model exists and is not an error.
type Scorer interface {
	ProbabilityOfSusceptibility(ctx context.Context, antibiotic string, features []float64) (p float64, found bool, err error)
}

// ModelError fails a whole request: one broken artifact must not
// produce a partially scored report.
type ModelError struct {
	Antibiotic string
	Err        error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error for %s: %v", e.Antibiotic, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

type Option func(*Aggregator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator runs the read, encode, score and rank pipeline. It holds no
// per-request state and is safe for concurrent use.
type Aggregator struct {
	cfg     Config
	encoder *kmer.Encoder
	scorer  Scorer
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(cfg Config, scorer Scorer, opts ...Option) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, errors.New("predictor: scorer is required")
	}
	enc, err := kmer.NewEncoder(cfg.K)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		cfg:     cfg,
		encoder: enc,
		scorer:  scorer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Aggregator) Config() Config { return a.cfg }

func (a *Aggregator) Encoder() *kmer.Encoder { return a.encoder }

// Run produces a report for one upload. Identical (filename, data) pairs
// yield identical reports apart from Date.
func (a *Aggregator) Run(ctx context.Context, filename string, data []byte) (*models.PredictionReport, error) {
	start := time.Now()
	log := logger.WithFile(ctx, filename)

	parsed := sequence.Parse(filename, data)
	seq := parsed.Sequence
	log.WithFields(logrus.Fields{
		"format": parsed.Format,
		"length": len(seq),
	}).Debug("sequence decoded")
	a.metrics.ObserveSequenceLength(len(seq))

	rng := newRand(Seed(filename, len(data), seq))
	pathogen := a.cfg.Pathogens[rng.Intn(len(a.cfg.Pathogens))]
	features := a.encoder.Encode(seq).Float64s()

	scores := make([]models.AntibioticScore, 0, len(a.cfg.Antibiotics))
	for _, name := range a.cfg.Antibiotics {
		p, found, err := a.scorer.ProbabilityOfSusceptibility(ctx, name, features)
		if err == nil && found && (math.IsNaN(p) || p < 0 || p > 1) {
			err = fmt.Errorf("%w: %v", ErrInvalidProbability, p)
		}
		if err != nil {
			a.metrics.ObservePrediction(OutcomeModelError, time.Since(start))
			log.WithError(err).WithField("antibiotic", name).Error("model scoring failed")
			return nil, &ModelError{Antibiotic: name, Err: err}
		}

		var score models.AntibioticScore
		if found {
			score = models.NewAntibioticScore(name, int(math.RoundToEven(p*100)), metrics.SourceModel)
		} else {
			pct := a.cfg.FallbackMin + rng.Intn(a.cfg.FallbackMax-a.cfg.FallbackMin+1)
			score = models.NewAntibioticScore(name, pct, metrics.SourceFallback)
			log.WithField("antibiotic", name).Debug("no model, using fallback score")
		}
		a.metrics.IncScore(name, score.Source)
		scores = append(scores, score)
	}

	mdr := IsMDR(scores, a.cfg.MDRThreshold, a.cfg.MDRMinCount)
	ranked := Rank(scores)
	genes := sampleGenes(rng, a.cfg.Genes, a.cfg.MaxGenes)

	report := &models.PredictionReport{
		FileName:        filename,
		Date:            a.now().UTC(),
		PID:             10000 + rng.Intn(90000),
		Pathogen:        pathogen,
		Format:          string(parsed.Format),
		SequenceLength:  len(seq),
		Antibiotics:     ranked,
		Recommendations: Recommend(ranked, a.cfg.TopN),
		MDR:             mdr,
		Genes:           genes,
	}

	if mdr {
		a.metrics.IncMDR()
	}
	a.metrics.ObservePrediction(OutcomeSuccess, time.Since(start))
	log.WithFields(logrus.Fields{
		"pathogen": pathogen,
		"mdr":      mdr,
		"duration": time.Since(start).String(),
	}).Info("prediction completed")

	return report, nil
}
