package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/pkg/database/queries"
	"github.com/OldStager01/genomerx/pkg/models"
	"github.com/OldStager01/genomerx/pkg/validation"
)

type ReportReader interface {
	GetRecent(ctx context.Context, limit int) ([]*models.PredictionReport, error)
	GetByID(ctx context.Context, id string) (*models.PredictionReport, error)
	Count(ctx context.Context) (int, error)
}

type HistoryHandler struct {
	reports      ReportReader
	defaultLimit int
	maxLimit     int
}

func NewHistoryHandler(reports ReportReader, defaultLimit, maxLimit int) *HistoryHandler {
	if defaultLimit <= 0 {
		defaultLimit = 25
	}
	if maxLimit < defaultLimit {
		maxLimit = 200
	}
	return &HistoryHandler{reports: reports, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

type HistoryResponse struct {
	Reports []*models.PredictionReport `json:"reports"`
	Count   int                        `json:"count"`
	Total   int                        `json:"total"`
	Limit   int                        `json:"limit"`
}

// List godoc
// @Summary  Recent prediction reports, newest first
// @Tags     history
// @Produce  json
// @Param    limit  query  int  false  "Maximum reports (default 25, max 200)"
// @Success  200  {object}  HistoryResponse
// @Failure  400  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /api/v1/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}
	limit = validation.ClampLimit(limit, h.defaultLimit, h.maxLimit)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	reports, err := h.reports.GetRecent(ctx, limit)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("failed to load history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load history"})
		return
	}
	if reports == nil {
		reports = []*models.PredictionReport{}
	}

	total, err := h.reports.Count(ctx)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("failed to count history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{Reports: reports, Count: len(reports), Total: total, Limit: limit})
}

// Get godoc
// @Summary  One prediction report
// @Tags     history
// @Produce  json
// @Param    id  path  string  true  "Report ULID"
// @Success  200  {object}  models.PredictionReport
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /api/v1/history/{id} [get]
func (h *HistoryHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if err := validation.ValidateReportID(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	report, err := h.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, queries.ErrPredictionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "report not found"})
			return
		}
		logger.FromContext(ctx).WithError(err).Error("failed to load report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load report"})
		return
	}

	c.JSON(http.StatusOK, report)
}
