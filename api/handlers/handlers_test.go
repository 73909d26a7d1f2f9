package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/genomerx/internal/auth"
	"github.com/OldStager01/genomerx/internal/events"
	"github.com/OldStager01/genomerx/internal/predictor"
	"github.com/OldStager01/genomerx/pkg/database/queries"
	"github.com/OldStager01/genomerx/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePredictor struct {
	report  *models.PredictionReport
	err     error
	gotFile string
	gotData []byte
}

func (f *fakePredictor) Run(_ context.Context, filename string, data []byte) (*models.PredictionReport, error) {
	f.gotFile, f.gotData = filename, data
	if f.err != nil {
		return nil, f.err
	}
	r := *f.report
	r.FileName = filename
	return &r, nil
}

type memReports struct {
	mu      sync.Mutex
	reports []*models.PredictionReport
	err     error
}

func (m *memReports) Insert(_ context.Context, r *models.PredictionReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	r.ID = models.NewULID(time.Now())
	m.reports = append(m.reports, r)
	return nil
}

func (m *memReports) GetRecent(_ context.Context, limit int) ([]*models.PredictionReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PredictionReport
	for i := len(m.reports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.reports[i])
	}
	return out, m.err
}

func (m *memReports) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports), m.err
}

func (m *memReports) GetByID(_ context.Context, id string) (*models.PredictionReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, queries.ErrPredictionNotFound
}

func upload(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "nothing here"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func mdrReport() *models.PredictionReport {
	return &models.PredictionReport{
		Pathogen: "Escherichia coli",
		Antibiotics: []models.AntibioticScore{
			models.NewAntibioticScore("Ampicillin", 12, "fallback"),
			models.NewAntibioticScore("Ciprofloxacin", 20, "fallback"),
			models.NewAntibioticScore("Meropenem", 35, "fallback"),
		},
		MDR: true,
	}
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		filename   string
		data       []byte
		maxBytes   int64
		predictErr error
		storeErr   error
		wantCode   int
		wantEvent  []models.EventType
	}{
		{
			name: "success", field: "file", filename: "sample.fasta", data: []byte(">x\nACGT\n"),
			wantCode:  http.StatusOK,
			wantEvent: []models.EventType{models.EventTypePredictionCompleted, models.EventTypeMDRDetected},
		},
		{name: "missing file", field: "", wantCode: http.StatusBadRequest},
		{name: "oversize", field: "file", filename: "big.txt", data: bytes.Repeat([]byte("A"), 64), maxBytes: 16, wantCode: http.StatusRequestEntityTooLarge},
		{
			name: "model failure", field: "file", filename: "a.fa", data: []byte("ACGT"),
			predictErr: &predictor.ModelError{Antibiotic: "Meropenem", Err: errors.New("corrupt")},
			wantCode:   http.StatusInternalServerError,
			wantEvent:  []models.EventType{models.EventTypePredictionFailed},
		},
		{
			name: "persistence failure", field: "file", filename: "a.fa", data: []byte("ACGT"),
			storeErr:  errors.New("disk full"),
			wantCode:  http.StatusInternalServerError,
			wantEvent: []models.EventType{models.EventTypePredictionFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := events.NewEventBus(8)
			defer bus.Close()
			ch := bus.SubscribeAll()

			fp := &fakePredictor{report: mdrReport(), err: tt.predictErr}
			store := &memReports{err: tt.storeErr}
			h := NewPredictHandler(fp, store, events.NewPublisher(bus), PredictOptions{MDRThreshold: 40, MaxBytes: tt.maxBytes})

			r := gin.New()
			r.POST("/predict", h.Predict)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, upload(t, tt.field, tt.filename, tt.data))

			require.Equal(t, tt.wantCode, w.Code, w.Body.String())

			switch tt.wantCode {
			case http.StatusOK:
				var got models.PredictionReport
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, tt.filename, got.FileName)
				assert.NotEmpty(t, got.ID)
				assert.Equal(t, tt.data, fp.gotData)
				assert.Len(t, store.reports, 1)
			case http.StatusInternalServerError:
				assert.JSONEq(t, `{"error":"prediction failed"}`, w.Body.String())
				assert.Empty(t, store.reports)
			}

			for _, want := range tt.wantEvent {
				select {
				case ev := <-ch:
					assert.Equal(t, want, ev.Type)
				case <-time.After(time.Second):
					t.Fatalf("expected %s event", want)
				}
			}
			select {
			case ev := <-ch:
				t.Fatalf("unexpected event %s", ev.Type)
			default:
			}
		})
	}
}

func TestPredict_StripsPathFromFilename(t *testing.T) {
	fp := &fakePredictor{report: &models.PredictionReport{}}
	h := NewPredictHandler(fp, nil, nil, PredictOptions{})

	r := gin.New()
	r.POST("/predict", h.Predict)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, upload(t, "file", "../../secret/reads.fa", []byte("ACGT")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reads.fa", fp.gotFile)
}

func TestHistory(t *testing.T) {
	store := &memReports{}
	for i := 0; i < 30; i++ {
		require.NoError(t, store.Insert(context.Background(), &models.PredictionReport{PID: 10000 + i}))
	}
	h := NewHistoryHandler(store, 25, 200)

	r := gin.New()
	r.GET("/history", h.List)
	r.GET("/history/:id", h.Get)

	tests := []struct {
		name      string
		url       string
		wantCode  int
		wantCount int
	}{
		{"default limit", "/history", http.StatusOK, 25},
		{"explicit limit", "/history?limit=3", http.StatusOK, 3},
		{"capped limit", "/history?limit=9999", http.StatusOK, 30},
		{"bad limit", "/history?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			var resp HistoryResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCount, resp.Count)
			assert.Equal(t, 30, resp.Total)
			assert.Equal(t, 10029, resp.Reports[0].PID)
		})
	}

	t.Run("by id", func(t *testing.T) {
		id := store.reports[4].ID
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"pid":10004`)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/"+models.NewULID(time.Now()), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/42", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type fakeIndex map[string]bool

func (f fakeIndex) Has(_ context.Context, name string) (bool, error) {
	if name == "Vancomycin" {
		return false, errors.New("store unavailable")
	}
	return f[name], nil
}

func TestCatalog(t *testing.T) {
	cfg := predictor.DefaultConfig()
	cfg.Antibiotics = []string{"Meropenem", "Piperacillin/Tazobactam", "Vancomycin"}
	h := NewCatalogHandler(cfg, fakeIndex{"Meropenem": true})

	r := gin.New()
	r.GET("/catalog", h.Catalog)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp CatalogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []CatalogAntibiotic{
		{Name: "Meropenem", Key: "meropenem", HasModel: true},
		{Name: "Piperacillin/Tazobactam", Key: "piperacillin_tazobactam"},
		{Name: "Vancomycin", Key: "vancomycin"},
	}, resp.Antibiotics)
	assert.Equal(t, cfg.Pathogens, resp.Pathogens)
	assert.Equal(t, cfg.K, resp.KmerSize)
}

func TestHealth(t *testing.T) {
	ok := Check{Name: "database", Fn: func(context.Context) error { return nil }}
	bad := Check{Name: "model_store", Fn: func(context.Context) error { return errors.New("circuit breaker is open") }}

	tests := []struct {
		name     string
		checks   []Check
		path     string
		wantCode int
	}{
		{"healthy", []Check{ok}, "/health", http.StatusOK},
		{"unhealthy", []Check{ok, bad}, "/health", http.StatusServiceUnavailable},
		{"ready", []Check{ok}, "/health/ready", http.StatusOK},
		{"not ready", []Check{bad}, "/health/ready", http.StatusServiceUnavailable},
		{"live ignores checks", []Check{bad}, "/health/live", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks...)
			r := gin.New()
			r.GET("/health", h.Health)
			r.GET("/health/ready", h.Ready)
			r.GET("/health/live", h.Live)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := f[username]; ok {
		return u, nil
	}
	return nil, queries.ErrUserNotFound
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("Sup3r!secret")
	require.NoError(t, err)
	users := fakeUsers{"alice": {ID: 3, Username: "alice", PasswordHash: hash}}
	svc := auth.NewService("test-secret-that-is-long-enough-123", time.Hour)
	h := NewAuthHandler(users, svc, false)

	r := gin.New()
	r.POST("/login", h.Login)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"ok", `{"username":"alice","password":"Sup3r!secret"}`, http.StatusOK},
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"bob","password":"Sup3r!secret"}`, http.StatusUnauthorized},
		{"bad body", `{"username":"alice"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp LoginResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, 3600, resp.ExpiresIn)
			claims, err := svc.ValidateToken(resp.Token)
			require.NoError(t, err)
			assert.Equal(t, 3, claims.UserID)
			assert.Contains(t, w.Header().Get("Set-Cookie"), "auth_token=")
		})
	}
}
