package registry

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnsupportedArtifact = errors.New("artifact exposes no prediction interface")
	ErrLabelNotInClasses   = errors.New("susceptible label not among artifact classes")
	ErrFeatureMismatch     = errors.New("feature vector length mismatch")
)

// Classifier is a trained two-class model over a k-mer count vector.
// Concrete artifacts implement one or more of the capability interfaces below.
type Classifier interface {
	Classes() []int
}

// ProbabilityEstimator returns class probabilities ordered like Classes().
type ProbabilityEstimator interface {
	PredictProba(x []float64) []float64
}

// MarginEstimator returns a signed distance; positive favours Classes()[1].
type MarginEstimator interface {
	DecisionFunction(x []float64) float64
}

// LabelPredictor returns a hard class label.
type LabelPredictor interface {
	Predict(x []float64) int
}

type Capability string

const (
	CapabilityProbability Capability = "probability"
	CapabilityMargin      Capability = "margin"
	CapabilityLabel       Capability = "label"
)

type scoreFunc func(x []float64) float64

// resolve picks the richest interface the classifier supports and turns it
// into a single P(susceptible) function.
func resolve(c Classifier, susceptibleLabel int) (scoreFunc, Capability, error) {
	classes := c.Classes()
	idx := -1
	for i, label := range classes {
		if label == susceptibleLabel {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, "", fmt.Errorf("%w: label %d, classes %v", ErrLabelNotInClasses, susceptibleLabel, classes)
	}

	if m, ok := c.(ProbabilityEstimator); ok {
		return func(x []float64) float64 {
			return m.PredictProba(x)[idx]
		}, CapabilityProbability, nil
	}

	if m, ok := c.(MarginEstimator); ok {
		return func(x []float64) float64 {
			p := sigmoid(m.DecisionFunction(x))
			if idx == 0 {
				return 1 - p
			}
			return p
		}, CapabilityMargin, nil
	}

	if m, ok := c.(LabelPredictor); ok {
		return func(x []float64) float64 {
			if m.Predict(x) == susceptibleLabel {
				return 1
			}
			return 0
		}, CapabilityLabel, nil
	}

	return nil, "", ErrUnsupportedArtifact
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}

// LogisticRegression supports probability, margin and label queries.
type LogisticRegression struct {
	Coef      []float64
	Intercept float64
	Labels    []int
}

func (m *LogisticRegression) Classes() []int { return m.Labels }

func (m *LogisticRegression) DecisionFunction(x []float64) float64 {
	return dot(m.Coef, x) + m.Intercept
}

func (m *LogisticRegression) PredictProba(x []float64) []float64 {
	p := sigmoid(m.DecisionFunction(x))
	return []float64{1 - p, p}
}

func (m *LogisticRegression) Predict(x []float64) int {
	if m.DecisionFunction(x) > 0 {
		return m.Labels[1]
	}
	return m.Labels[0]
}

// LinearSVM has no calibrated probabilities; only margin and label.
type LinearSVM struct {
	Coef      []float64
	Intercept float64
	Labels    []int
}

func (m *LinearSVM) Classes() []int { return m.Labels }

func (m *LinearSVM) DecisionFunction(x []float64) float64 {
	return dot(m.Coef, x) + m.Intercept
}

func (m *LinearSVM) Predict(x []float64) int {
	if m.DecisionFunction(x) > 0 {
		return m.Labels[1]
	}
	return m.Labels[0]
}

// Threshold is a single-feature decision stump that only yields labels.
type Threshold struct {
	Feature int
	Cutoff  float64
	Labels  []int
}

func (m *Threshold) Classes() []int { return m.Labels }

func (m *Threshold) Predict(x []float64) int {
	if x[m.Feature] >= m.Cutoff {
		return m.Labels[1]
	}
	return m.Labels[0]
}
