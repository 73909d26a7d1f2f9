package config

import (
	"github.com/OldStager01/genomerx/internal/predictor"
)

// ToPredictorConfig merges the catalog and scoring sections. Empty catalogs
// keep the built-in defaults.
func (c *Config) ToPredictorConfig() predictor.Config {
	pc := predictor.DefaultConfig()
	pc.K = c.Models.KmerSize
	if len(c.Catalog.Antibiotics) > 0 {
		pc.Antibiotics = c.Catalog.Antibiotics
	}
	if len(c.Catalog.Pathogens) > 0 {
		pc.Pathogens = c.Catalog.Pathogens
	}
	if len(c.Catalog.Genes) > 0 {
		pc.Genes = c.Catalog.Genes
	}
	pc.FallbackMin = c.Scoring.FallbackMin
	pc.FallbackMax = c.Scoring.FallbackMax
	pc.MDRThreshold = c.Scoring.MDRThreshold
	pc.MDRMinCount = c.Scoring.MDRMinCount
	pc.TopN = c.Scoring.TopN
	pc.MaxGenes = c.Scoring.MaxGenes
	return pc
}
