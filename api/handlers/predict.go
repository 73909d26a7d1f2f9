package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/genomerx/internal/events"
	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/pkg/models"
	"github.com/OldStager01/genomerx/pkg/validation"
)

const uploadField = "file"

type Predictor interface {
	Run(ctx context.Context, filename string, data []byte) (*models.PredictionReport, error)
}

type ReportWriter interface {
	Insert(ctx context.Context, report *models.PredictionReport) error
}

type PredictHandler struct {
	predictor    Predictor
	reports      ReportWriter
	publisher    *events.Publisher
	mdrThreshold int
	maxBytes     int64
	timeout      time.Duration
}

type PredictOptions struct {
	MDRThreshold int
	MaxBytes     int64
	Timeout      time.Duration
}

func NewPredictHandler(p Predictor, reports ReportWriter, publisher *events.Publisher, opts PredictOptions) *PredictHandler {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &PredictHandler{
		predictor:    p,
		reports:      reports,
		publisher:    publisher,
		mdrThreshold: opts.MDRThreshold,
		maxBytes:     opts.MaxBytes,
		timeout:      opts.Timeout,
	}
}

// Predict godoc
// @Summary      Predict antibiotic susceptibility
// @Description  Upload a FASTA, CSV or text genome file and receive a susceptibility report.
// @Tags         predictions
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Genome file"
// @Success      200   {object}  models.PredictionReport
// @Failure      400   {object}  ErrorResponse
// @Failure      413   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /api/v1/predict [post]
func (h *PredictHandler) Predict(c *gin.Context) {
	filename, data, status, err := h.readUpload(c)
	if err != nil {
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	publisher := h.publisher.WithTraceID(logger.TraceIDFromContext(ctx))
	log := logger.WithFile(ctx, filename)

	report, err := h.predictor.Run(ctx, filename, data)
	if err == nil && h.reports != nil {
		if err = h.reports.Insert(ctx, report); err != nil {
			err = fmt.Errorf("persist report: %w", err)
		}
	}
	if err != nil {
		log.WithError(err).Error("prediction failed")
		publisher.PredictionFailed(filename, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "prediction failed"})
		return
	}

	log.WithField("id", report.ID).Info("prediction completed")
	publisher.PredictionCompleted(report)
	if report.MDR {
		publisher.MDRDetected(report, h.mdrThreshold)
	}

	c.JSON(http.StatusOK, report)
}

func (h *PredictHandler) readUpload(c *gin.Context) (string, []byte, int, error) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, http.StatusRequestEntityTooLarge, errors.New("file too large")
		}
		return "", nil, http.StatusBadRequest, errors.New("no file uploaded")
	}

	filename, err := validation.CleanFilename(fh.Filename)
	if err != nil {
		return "", nil, http.StatusBadRequest, err
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return "", nil, http.StatusRequestEntityTooLarge, errors.New("file too large")
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, http.StatusBadRequest, errors.New("cannot read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, http.StatusBadRequest, errors.New("cannot read uploaded file")
	}
	return filename, data, http.StatusOK, nil
}
