package registry

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	ModelTypeLogistic  = "logistic_regression"
	ModelTypeLinearSVM = "linear_svm"
	ModelTypeThreshold = "threshold"
)

var ErrMalformedArtifact = errors.New("malformed artifact")

var defaultClasses = []int{0, 1}

// Decode parses a JSON model artifact. featureSize, when positive, is the
// expected input length (4^k) and is checked against the coefficients.
func Decode(data []byte, featureSize int) (Classifier, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedArtifact)
	}
	doc := gjson.ParseBytes(data)

	classes, err := decodeClasses(doc.Get("classes"))
	if err != nil {
		return nil, err
	}

	modelType := doc.Get("model_type").String()
	switch modelType {
	case ModelTypeLogistic, ModelTypeLinearSVM:
		coef := decodeCoef(doc.Get("coef"))
		if len(coef) == 0 {
			return nil, fmt.Errorf("%w: %s without coef", ErrMalformedArtifact, modelType)
		}
		if featureSize > 0 && len(coef) != featureSize {
			return nil, fmt.Errorf("%w: coef has %d entries, want %d", ErrFeatureMismatch, len(coef), featureSize)
		}
		intercept := doc.Get("intercept")
		if intercept.IsArray() {
			intercept = intercept.Get("0")
		}
		if modelType == ModelTypeLogistic {
			return &LogisticRegression{Coef: coef, Intercept: intercept.Float(), Labels: classes}, nil
		}
		return &LinearSVM{Coef: coef, Intercept: intercept.Float(), Labels: classes}, nil

	case ModelTypeThreshold:
		feature := doc.Get("feature")
		if !feature.Exists() {
			return nil, fmt.Errorf("%w: threshold without feature", ErrMalformedArtifact)
		}
		idx := int(feature.Int())
		if idx < 0 || (featureSize > 0 && idx >= featureSize) {
			return nil, fmt.Errorf("%w: feature index %d out of range", ErrFeatureMismatch, idx)
		}
		return &Threshold{Feature: idx, Cutoff: doc.Get("threshold").Float(), Labels: classes}, nil

	case "":
		return nil, fmt.Errorf("%w: missing model_type", ErrMalformedArtifact)
	}

	return nil, fmt.Errorf("%w: model_type %q", ErrUnsupportedArtifact, modelType)
}

func decodeClasses(v gjson.Result) ([]int, error) {
	if !v.Exists() {
		return defaultClasses, nil
	}
	arr := v.Array()
	if len(arr) != 2 {
		return nil, fmt.Errorf("%w: expected 2 classes, got %d", ErrMalformedArtifact, len(arr))
	}
	classes := []int{int(arr[0].Int()), int(arr[1].Int())}
	if classes[0] == classes[1] {
		return nil, fmt.Errorf("%w: duplicate class %d", ErrMalformedArtifact, classes[0])
	}
	return classes, nil
}

// decodeCoef accepts a flat array or the single-row [[...]] shape.
func decodeCoef(v gjson.Result) []float64 {
	arr := v.Array()
	if len(arr) == 1 && arr[0].IsArray() {
		arr = arr[0].Array()
	}
	coef := make([]float64, 0, len(arr))
	for _, c := range arr {
		coef = append(coef, c.Float())
	}
	return coef
}
