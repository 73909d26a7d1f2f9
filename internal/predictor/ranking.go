package predictor

import (
	"math/rand"
	"sort"

	"github.com/OldStager01/genomerx/pkg/models"
)

// Rank returns a copy of scores ordered by descending susceptibility.
// Equal scores keep their input (catalog) order.
func Rank(scores []models.AntibioticScore) []models.AntibioticScore {
	ranked := append([]models.AntibioticScore(nil), scores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Susceptible > ranked[j].Susceptible
	})
	return ranked
}

// Recommend projects the first n ranked scores.
func Recommend(ranked []models.AntibioticScore, n int) []models.Recommendation {
	if n > len(ranked) {
		n = len(ranked)
	}
	recs := make([]models.Recommendation, 0, n)
	for _, s := range ranked[:n] {
		recs = append(recs, models.Recommendation{Name: s.Name, Confidence: s.Susceptible})
	}
	return recs
}

// IsMDR counts every score, not only the recommended ones.
func IsMDR(scores []models.AntibioticScore, threshold, minCount int) bool {
	n := 0
	for _, s := range scores {
		if s.Susceptible < threshold {
			n++
		}
	}
	return n >= minCount
}

// sampleGenes draws between 0 and max distinct candidates, sorted.
func sampleGenes(rng *rand.Rand, candidates []string, max int) []string {
	count := rng.Intn(max + 1)
	if count > len(candidates) {
		count = len(candidates)
	}
	genes := make([]string, 0, count)
	for _, i := range rng.Perm(len(candidates))[:count] {
		genes = append(genes, candidates[i])
	}
	sort.Strings(genes)
	return genes
}
