package models

import "time"

// AntibioticScore is one antibiotic's susceptibility estimate.
// Susceptible + Resistant is always 100.
type AntibioticScore struct {
	Name        string `json:"name"`
	Susceptible int    `json:"susceptible"`
	Resistant   int    `json:"resistant"`
	Source      string `json:"source,omitempty"`
}

func NewAntibioticScore(name string, susceptible int, source string) AntibioticScore {
	if susceptible < 0 {
		susceptible = 0
	}
	if susceptible > 100 {
		susceptible = 100
	}
	return AntibioticScore{
		Name:        name,
		Susceptible: susceptible,
		Resistant:   100 - susceptible,
		Source:      source,
	}
}

type Recommendation struct {
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
}

// PredictionReport is the result of one pipeline run.
type PredictionReport struct {
	ID              string            `json:"id,omitempty"`
	FileName        string            `json:"fileName"`
	Date            time.Time         `json:"date"`
	PID             int               `json:"pid"`
	Pathogen        string            `json:"pathogen"`
	Format          string            `json:"format,omitempty"`
	SequenceLength  int               `json:"sequenceLength"`
	Antibiotics     []AntibioticScore `json:"antibiotics"`
	Recommendations []Recommendation  `json:"recommendations"`
	MDR             bool              `json:"mdr"`
	Genes           []string          `json:"genes"`
}

// Resistant returns the antibiotics whose susceptibility is below threshold,
// in report order.
func (r *PredictionReport) Resistant(threshold int) []AntibioticScore {
	var out []AntibioticScore
	for _, a := range r.Antibiotics {
		if a.Susceptible < threshold {
			out = append(out, a)
		}
	}
	return out
}

// PredictionSummary is the trimmed row shown in history listings.
type PredictionSummary struct {
	ID       string    `json:"id"`
	FileName string    `json:"fileName"`
	Date     time.Time `json:"date"`
	PID      int       `json:"pid"`
	Pathogen string    `json:"pathogen"`
	MDR      bool      `json:"mdr"`
}

func (r *PredictionReport) Summary() PredictionSummary {
	return PredictionSummary{
		ID:       r.ID,
		FileName: r.FileName,
		Date:     r.Date,
		PID:      r.PID,
		Pathogen: r.Pathogen,
		MDR:      r.MDR,
	}
}
