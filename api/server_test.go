package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/genomerx/api/handlers"
	"github.com/OldStager01/genomerx/internal/app"
	"github.com/OldStager01/genomerx/internal/auth"
	"github.com/OldStager01/genomerx/internal/events"
	"github.com/OldStager01/genomerx/internal/metrics"
	"github.com/OldStager01/genomerx/pkg/config"
	"github.com/OldStager01/genomerx/pkg/database/queries"
	"github.com/OldStager01/genomerx/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// meropenemArtifact scores P(susceptible) = sigmoid(0.9946) ≈ 0.73 for any k=4 input.
func meropenemArtifact() string {
	return `{"model_type":"logistic_regression","coef":[` +
		strings.TrimSuffix(strings.Repeat("0,", 256), ",") +
		`],"intercept":0.9946}`
}

type testEnv struct {
	server *Server
	users  *queries.UserRepository
}

func newTestEnv(t *testing.T, authEnabled bool) *testEnv {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "genomerx.db")
	cfg.Models.Dir = t.TempDir()
	cfg.API.AuthEnabled = authEnabled
	cfg.API.JWTSecret = "test-secret-that-is-long-enough-123"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Models.Dir, "meropenem.json"), []byte(meropenemArtifact()), 0o644))

	ctx := context.Background()
	db, err := app.OpenDatabase(ctx, cfg, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := app.OpenStore(cfg, nil)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	bus := events.NewEventBus(cfg.Events.BufferSize)
	t.Cleanup(bus.Close)

	pipeline, err := app.NewPipeline(cfg, store, m, events.NewPublisher(bus))
	require.NoError(t, err)

	reports := queries.NewPredictionRepository(db.DB)
	users := queries.NewUserRepository(db.DB)

	srv := NewServer(cfg, Deps{
		Predictor: pipeline.Aggregator,
		Models:    pipeline.Registry,
		Reports:   reports,
		Users:     users,
		Bus:       bus,
		Metrics:   m,
		HealthChecks: []handlers.Check{
			{Name: "database", Fn: db.HealthCheck},
			store.Check,
		},
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	return &testEnv{server: srv, users: users}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestServer_PredictAndHistory(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(uploadRequest(t, "/api/v1/predict", "sample.fasta", ">s1\nACGTACGTTTGACCA\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report models.PredictionReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "sample.fasta", report.FileName)
	assert.Len(t, report.Antibiotics, 7)

	var mero *models.AntibioticScore
	for i := range report.Antibiotics {
		if report.Antibiotics[i].Name == "Meropenem" {
			mero = &report.Antibiotics[i]
		}
	}
	require.NotNil(t, mero)
	assert.Equal(t, 73, mero.Susceptible)
	assert.Equal(t, 27, mero.Resistant)
	assert.Equal(t, metrics.SourceModel, mero.Source)

	// The alias route runs the same pipeline and is deterministic.
	w = env.do(uploadRequest(t, "/api/v1/upload-predict", "sample.fasta", ">s1\nACGTACGTTTGACCA\n"))
	require.Equal(t, http.StatusOK, w.Code)
	var again models.PredictionReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, report.PID, again.PID)
	assert.Equal(t, report.Antibiotics, again.Antibiotics)
	assert.NotEqual(t, report.ID, again.ID)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history handlers.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Equal(t, 2, history.Count)
	assert.Equal(t, again.ID, history.Reports[0].ID)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/history/"+report.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pid":`)
}

func TestServer_PredictMissingFile(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_BrokenArtifactFailsRequest(t *testing.T) {
	env := newTestEnv(t, false)
	dir := env.server.config.Models.Dir
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gentamicin.json"), []byte(`{not json`), 0o644))

	w := env.do(uploadRequest(t, "/api/v1/predict", "a.txt", "ACGT"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"prediction failed"}`, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestServer_CatalogAndMetrics(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var catalog handlers.CatalogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	for _, a := range catalog.Antibiotics {
		assert.Equal(t, a.Name == "Meropenem", a.HasModel, a.Name)
	}

	env.do(uploadRequest(t, "/api/v1/predict", "x.fa", "ACGT"))

	w = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `genomerx_predictions_total{outcome="success"} 1`)
	assert.Contains(t, w.Body.String(), `genomerx_model_loads_total{result="success"} 1`)

	w = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_HistoryRequiresAuthWhenEnabled(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	hash, err := auth.HashPassword("Sup3r!secret")
	require.NoError(t, err)
	_, err = env.users.Create(context.Background(), "operator", hash)
	require.NoError(t, err)

	login := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"operator","password":"Sup3r!secret"}`))
	login.Header.Set("Content-Type", "application/json")
	w = env.do(login)
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Prediction stays open to anonymous uploads.
	w = env.do(uploadRequest(t, "/api/v1/predict", "x.fa", "ACGT"))
	assert.Equal(t, http.StatusOK, w.Code)
}
