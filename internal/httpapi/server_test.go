package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cultura/internal/analysis"
	"github.com/ppiankov/cultura/internal/imagedata"
	"github.com/ppiankov/cultura/internal/knowledge"
	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/review"
	"github.com/ppiankov/cultura/internal/store"
)

// stubAnalyzer returns a canned outcome or error
type stubAnalyzer struct {
	outcome  *analysis.Outcome
	err      error
	useCache bool
}

func (s *stubAnalyzer) Analyze(ctx context.Context, image string, useCache bool) (*analysis.Outcome, error) {
	s.useCache = useCache
	if _, err := imagedata.Parse(image); err != nil {
		return nil, &analysis.AnalysisError{Message: "invalid image", Err: err}
	}
	return s.outcome, s.err
}

type stubRecorder struct {
	logged []*analysis.Outcome
}

func (r *stubRecorder) LogAnalysis(ctx context.Context, outcome *analysis.Outcome, itemID string) error {
	r.logged = append(r.logged, outcome)
	return nil
}

type testServer struct {
	handler  http.Handler
	analyzer *stubAnalyzer
	recorder *stubRecorder
	store    *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "cultura.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reviews := review.NewService(review.Deps{
		Repository: st,
		Corpus:     knowledge.NewLoader(filepath.Join(dir, "elementos_huanuco.json"), nil),
		Images:     store.NewMedia(filepath.Join(dir, "media")),
	})
	analyzer := &stubAnalyzer{outcome: &analysis.Outcome{Result: &model.AnalysisResult{
		Title:      "Pachamanca",
		Category:   model.CategoryGastronomy,
		Confidence: 0.9,
	}}}
	recorder := &stubRecorder{}
	srv := NewServer(Deps{Analyzer: analyzer, Catalog: st, Reviews: reviews, Recorder: recorder})
	return &testServer{handler: srv.Handler(), analyzer: analyzer, recorder: recorder, store: st}
}

type response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Reason  string            `json:"reason"`
	Errors  map[string]string `json:"errors"`
}

func (ts *testServer) do(t *testing.T, method, path string, body any, user, role string) (int, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

var testImage = imagedata.Encode([]byte("\xff\xd8\xff\xe0fake jpeg"))

func TestAnalyze_Success(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.do(t, http.MethodPost, "/api/analyze", map[string]any{"image": testImage}, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.True(t, ts.analyzer.useCache)
	assert.Len(t, ts.recorder.logged, 1)

	var result model.AnalysisResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "Pachamanca", result.Title)
}

func TestAnalyze_BypassCache(t *testing.T) {
	ts := newTestServer(t)
	code, _ := ts.do(t, http.MethodPost, "/api/analyze", map[string]any{"image": testImage, "use_cache": false}, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, ts.analyzer.useCache)
}

func TestAnalyze_LowConfidence(t *testing.T) {
	ts := newTestServer(t)
	ts.analyzer.outcome = nil
	ts.analyzer.err = &analysis.AnalysisError{
		Message:    "analysis rejected (confidence 0.25)",
		Err:        analysis.ErrLowConfidence,
		Reason:     "Posible plato típico",
		Confidence: 0.25,
	}

	code, resp := ts.do(t, http.MethodPost, "/api/analyze", map[string]any{"image": testImage}, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Posible plato típico", resp.Reason)
	assert.Equal(t, lowConfidenceMessage, resp.Message)
	assert.Empty(t, ts.recorder.logged)
}

func TestAnalyze_Errors(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.do(t, http.MethodPost, "/api/analyze", map[string]any{}, "", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "required", resp.Errors["image"])

	code, resp = ts.do(t, http.MethodPost, "/api/analyze", map[string]any{"image": "%%%"}, "", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Errors, "image")

	ts.analyzer.err = &analysis.AnalysisError{Message: "model call failed", Err: errors.New("boom")}
	code, resp = ts.do(t, http.MethodPost, "/api/analyze", map[string]any{"image": testImage}, "", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "model call failed")

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItems(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, http.MethodPost, "/api/items", map[string]any{"titulo": "Pachamanca", "categoria": "gastronomia"}, "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := ts.do(t, http.MethodPost, "/api/items", map[string]any{"titulo": "Pachamanca", "categoria": "gastronomia"}, "u1", "")
	require.Equal(t, http.StatusCreated, code)
	var item model.CulturalItem
	require.NoError(t, json.Unmarshal(resp.Data, &item))
	assert.Equal(t, model.CategoryGastronomy, item.Category)

	_, err := ts.store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)

	code, resp = ts.do(t, http.MethodPost, "/api/items", map[string]any{"categoria": "danza"}, "u1", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "required", resp.Errors["titulo"])

	code, resp = ts.do(t, http.MethodGet, "/api/items/"+item.ID, nil, "", "")
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodGet, "/api/items/missing", nil, "", "")
	assert.Equal(t, http.StatusNotFound, code)

	var items []model.CulturalItem
	code, resp = ts.do(t, http.MethodGet, "/api/items?category=GASTRONOMY", nil, "", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	assert.Len(t, items, 1)

	code, resp = ts.do(t, http.MethodGet, "/api/items?category=Danza", nil, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", string(resp.Data))

	code, resp = ts.do(t, http.MethodGet, "/api/items/mine", nil, "u1", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	assert.Len(t, items, 1)

	code, _ = ts.do(t, http.MethodGet, "/api/items/mine", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestReports_Workflow(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{
		"titulo":      "Danza de los Shapish",
		"categoria":   "Danza",
		"report_type": "NEW_ELEMENT",
		"motivo":      "Falta en el catálogo",
	}

	code, resp := ts.do(t, http.MethodPost, "/api/reports", body, "u1", "")
	require.Equal(t, http.StatusCreated, code)
	var report model.Report
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, model.ReportPending, report.Status)

	code, _ = ts.do(t, http.MethodGet, "/api/reports/"+report.ID, nil, "u2", "")
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = ts.do(t, http.MethodGet, "/api/reports/"+report.ID, nil, "u1", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodGet, "/api/reports/"+report.ID, nil, "boss", "ADMIN")
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodGet, "/api/reports", nil, "u1", "")
	assert.Equal(t, http.StatusForbidden, code)

	var reports []model.Report
	code, resp = ts.do(t, http.MethodGet, "/api/reports?status=pending", nil, "boss", "admin")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &reports))
	assert.Len(t, reports, 1)

	code, resp = ts.do(t, http.MethodGet, "/api/reports/mine", nil, "u1", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &reports))
	assert.Len(t, reports, 1)

	code, _ = ts.do(t, http.MethodPost, "/api/reports/"+report.ID+"/review", map[string]any{"action": "approve"}, "u1", "")
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = ts.do(t, http.MethodPost, "/api/reports/"+report.ID+"/review",
		map[string]any{"action": "Approve", "admin_notes": "verificado"}, "boss", "admin")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Reporte aprobado", resp.Message)
	var outcome review.Outcome
	require.NoError(t, json.Unmarshal(resp.Data, &outcome))
	assert.True(t, outcome.AddedToCorpus)
	require.NotNil(t, outcome.Item)

	code, _ = ts.do(t, http.MethodPost, "/api/reports/"+report.ID+"/review", map[string]any{"action": "reject"}, "boss", "admin")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(t, http.MethodPost, "/api/reports/missing/review", map[string]any{"action": "reject"}, "boss", "admin")
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = ts.do(t, http.MethodPost, "/api/reports/"+report.ID+"/review", map[string]any{"action": "later"}, "boss", "admin")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Errors, "action")
}

func TestReports_Validation(t *testing.T) {
	ts := newTestServer(t)
	code, resp := ts.do(t, http.MethodPost, "/api/reports", map[string]any{"confianza": 2}, "u1", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Errors, "titulo")
	assert.Contains(t, resp.Errors, "confianza")
}

func TestRecoverer(t *testing.T) {
	srv := NewServer(Deps{})
	h := srv.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv := NewServer(Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
