package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/genomerx/pkg/models"
)

var ErrPredictionNotFound = errors.New("prediction not found")

// PredictionRepository is the append-only history log. IDs are ULIDs, so
// ordering by id is ordering by creation time on every driver.
type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

const predictionColumns = `id, created_at, filename, pid, pathogen, format, sequence_length,
		antibiotics, recommendations, genes, mdr`

// Insert stores the report. It mutates the report it is given: the assigned
// ID is written to report.ID, and report.Date is set to the insert time when
// it is zero. Callers must not share the report across goroutines while the
// insert runs.
func (r *PredictionRepository) Insert(ctx context.Context, report *models.PredictionReport) error {
	if report.Date.IsZero() {
		report.Date = time.Now().UTC()
	}
	if report.ID == "" {
		report.ID = models.NewULID(report.Date)
	}

	antibiotics, err := json.Marshal(nonNil(report.Antibiotics))
	if err != nil {
		return fmt.Errorf("marshal antibiotics: %w", err)
	}
	recommendations, err := json.Marshal(nonNil(report.Recommendations))
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	genes, err := json.Marshal(nonNil(report.Genes))
	if err != nil {
		return fmt.Errorf("marshal genes: %w", err)
	}

	query := `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.Date.UTC().Format(time.RFC3339Nano),
		report.FileName,
		report.PID,
		report.Pathogen,
		report.Format,
		report.SequenceLength,
		string(antibiotics),
		string(recommendations),
		string(genes),
		report.MDR,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (r *PredictionRepository) GetRecent(ctx context.Context, limit int) ([]*models.PredictionReport, error) {
	if limit <= 0 {
		limit = 25
	}

	query := `SELECT ` + predictionColumns + ` FROM predictions ORDER BY id DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]*models.PredictionReport, 0, limit)
	for rows.Next() {
		report, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

func (r *PredictionRepository) GetByID(ctx context.Context, id string) (*models.PredictionReport, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	report, err := scanPrediction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPredictionNotFound
	}
	return report, err
}

func (r *PredictionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(s scanner) (*models.PredictionReport, error) {
	var (
		report                              models.PredictionReport
		createdAt                           string
		antibiotics, recommendations, genes string
	)

	err := s.Scan(
		&report.ID, &createdAt, &report.FileName, &report.PID, &report.Pathogen,
		&report.Format, &report.SequenceLength,
		&antibiotics, &recommendations, &genes, &report.MDR,
	)
	if err != nil {
		return nil, err
	}

	if report.Date, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(antibiotics), &report.Antibiotics); err != nil {
		return nil, fmt.Errorf("decode antibiotics: %w", err)
	}
	if err := json.Unmarshal([]byte(recommendations), &report.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(genes), &report.Genes); err != nil {
		return nil, fmt.Errorf("decode genes: %w", err)
	}
	return &report, nil
}

// nonNil keeps empty lists as [] rather than null in the stored JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
