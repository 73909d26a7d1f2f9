package predictor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OldStager01/genomerx/internal/kmer"
)

var DefaultAntibiotics = []string{
	"Ceftriaxone",
	"Ciprofloxacin",
	"Meropenem",
	"Azithromycin",
	"Gentamicin",
	"Piperacillin-Tazobactam",
	"Amoxicillin",
}

var DefaultPathogens = []string{
	"Escherichia coli",
	"Staphylococcus aureus",
	"Klebsiella pneumoniae",
	"Pseudomonas aeruginosa",
	"Salmonella enterica",
}

var DefaultGenes = []string{"blaCTX-M", "mecA", "NDM-1", "KPC", "aac(6')-Ib", "qnrS", "gyrA_S83L"}

// Config fixes the catalogs and scoring policy for the lifetime of an
// Aggregator. Catalog order is display order and the ranking tie-break.
type Config struct {
	K           int
	Antibiotics []string
	Pathogens   []string
	Genes       []string

	// Inclusive range for scores of antibiotics without a model.
	FallbackMin int
	FallbackMax int

	// A report is MDR when at least MDRMinCount antibiotics score below
	// MDRThreshold.
	MDRThreshold int
	MDRMinCount  int

	TopN     int
	MaxGenes int
}

func DefaultConfig() Config {
	return Config{
		K:            4,
		Antibiotics:  append([]string(nil), DefaultAntibiotics...),
		Pathogens:    append([]string(nil), DefaultPathogens...),
		Genes:        append([]string(nil), DefaultGenes...),
		FallbackMin:  40,
		FallbackMax:  95,
		MDRThreshold: 40,
		MDRMinCount:  3,
		TopN:         3,
		MaxGenes:     2,
	}
}

func (c Config) Validate() error {
	var errs []string

	if c.K < 1 || c.K > kmer.MaxK {
		errs = append(errs, fmt.Sprintf("k must be between 1 and %d", kmer.MaxK))
	}
	if len(c.Antibiotics) == 0 {
		errs = append(errs, "antibiotic catalog is empty")
	}
	if len(c.Pathogens) == 0 {
		errs = append(errs, "pathogen catalog is empty")
	}
	seen := make(map[string]bool, len(c.Antibiotics))
	for _, a := range c.Antibiotics {
		if seen[a] {
			errs = append(errs, fmt.Sprintf("duplicate antibiotic %q", a))
		}
		seen[a] = true
	}
	if c.FallbackMin < 0 || c.FallbackMax > 100 || c.FallbackMin > c.FallbackMax {
		errs = append(errs, "fallback range must satisfy 0 <= min <= max <= 100")
	}
	if c.MDRThreshold < 0 || c.MDRThreshold > 100 {
		errs = append(errs, "mdr threshold must be between 0 and 100")
	}
	if c.MDRMinCount < 1 {
		errs = append(errs, "mdr min count must be positive")
	}
	if c.TopN < 0 {
		errs = append(errs, "top_n cannot be negative")
	}
	if c.MaxGenes < 0 {
		errs = append(errs, "max genes cannot be negative")
	}

	if len(errs) > 0 {
		return errors.New("predictor config: " + strings.Join(errs, "; "))
	}
	return nil
}
