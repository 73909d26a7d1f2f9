package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/internal/predictor"
	"github.com/OldStager01/genomerx/internal/registry"
)

// ModelIndex reports artifact presence without loading it.
type ModelIndex interface {
	Has(ctx context.Context, antibiotic string) (bool, error)
}

type CatalogHandler struct {
	cfg    predictor.Config
	models ModelIndex
}

func NewCatalogHandler(cfg predictor.Config, models ModelIndex) *CatalogHandler {
	return &CatalogHandler{cfg: cfg, models: models}
}

type CatalogAntibiotic struct {
	Name     string `json:"name"`
	Key      string `json:"key"`
	HasModel bool   `json:"hasModel"`
}

type CatalogResponse struct {
	Antibiotics []CatalogAntibiotic `json:"antibiotics"`
	Pathogens   []string            `json:"pathogens"`
	Genes       []string            `json:"genes"`
	KmerSize    int                 `json:"kmerSize"`
}

// Catalog godoc
// @Summary  Antibiotics, pathogens and genes the pipeline reports on
// @Tags     catalog
// @Produce  json
// @Success  200  {object}  CatalogResponse
// @Router   /api/v1/catalog [get]
func (h *CatalogHandler) Catalog(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, BuildCatalog(ctx, h.cfg, h.models))
}

// BuildCatalog is shared with the CLI. A store error marks the model absent.
func BuildCatalog(ctx context.Context, cfg predictor.Config, models ModelIndex) CatalogResponse {
	resp := CatalogResponse{
		Antibiotics: make([]CatalogAntibiotic, 0, len(cfg.Antibiotics)),
		Pathogens:   cfg.Pathogens,
		Genes:       cfg.Genes,
		KmerSize:    cfg.K,
	}

	for _, name := range cfg.Antibiotics {
		entry := CatalogAntibiotic{Name: name, Key: registry.NormalizeName(name)}
		if models != nil {
			ok, err := models.Has(ctx, name)
			if err != nil {
				logger.FromContext(ctx).WithError(err).WithField("antibiotic", name).Warn("model lookup failed")
			}
			entry.HasModel = ok && err == nil
		}
		resp.Antibiotics = append(resp.Antibiotics, entry)
	}
	return resp
}
