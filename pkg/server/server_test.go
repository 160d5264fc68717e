package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/parley/pkg/agent"
	"github.com/kadirpekel/parley/pkg/rag"
	"github.com/kadirpekel/parley/pkg/store"
)

const serverTestCorpus = `Employees receive twenty vacation days annually, accruing from the first day of employment.

Payroll runs on the last business day of every month and payslips arrive by email the same day.`

type fakeAgent struct {
	answer   *agent.Answer
	err      error
	asked    string
	passages []string
}

func (f *fakeAgent) Query(ctx context.Context, question string, passages []string) (*agent.Answer, error) {
	f.asked = question
	f.passages = passages
	if f.err != nil {
		return nil, f.err
	}
	if f.answer == nil {
		return &agent.Answer{Text: "ok"}, nil
	}
	return f.answer, nil
}

type fakeEmployeeStore struct {
	employee *store.Employee
	err      error
}

func (f *fakeEmployeeStore) GetByID(ctx context.Context, id string) (*store.Employee, error) {
	return f.employee, f.err
}
func (f *fakeEmployeeStore) Search(ctx context.Context, term string, limit int) ([]store.Employee, error) {
	return nil, nil
}
func (f *fakeEmployeeStore) ListAll(ctx context.Context, limit int) ([]store.Employee, error) {
	return nil, nil
}

func newTestServer(t *testing.T, a QueryService, es store.EmployeeStore, load bool) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.txt")
	require.NoError(t, os.WriteFile(path, []byte(serverTestCorpus), 0o644))

	ragSvc, err := rag.NewService(rag.ServiceOptions{Path: path})
	require.NoError(t, err)
	if load {
		require.NoError(t, ragSvc.Load(context.Background()))
	}

	return New(Options{
		Address: "127.0.0.1:0",
		Agent:   a,
		RAG:     ragSvc,
		Store:   es,
	})
}

func postJSON(t *testing.T, handler http.Handler, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery(t *testing.T) {
	fa := &fakeAgent{answer: &agent.Answer{
		Text:    "Twenty days per year.",
		Context: []string{"Employees receive twenty vacation days annually"},
	}}
	srv := newTestServer(t, fa, nil, true)

	rec := postJSON(t, srv.Routes(), "/query", queryRequest{Query: "How many vacation days do I get?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Twenty days per year.", resp.Answer)
	require.Len(t, resp.RelevantChunks, 1)
	assert.Equal(t, "How many vacation days do I get?", fa.asked)
	// Lexical matching on short query words like "i" reaches both passages,
	// but the vacation passage outscores payroll and ranks first.
	require.Len(t, fa.passages, 2)
	assert.Contains(t, fa.passages[0], "vacation days")
}

func TestHandleQueryNotLoaded(t *testing.T) {
	srv := newTestServer(t, &fakeAgent{}, nil, false)

	rec := postJSON(t, srv.Routes(), "/query", queryRequest{Query: "anything"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not initialized")
}

func TestHandleQueryValidation(t *testing.T) {
	srv := newTestServer(t, &fakeAgent{}, nil, true)

	rec := postJSON(t, srv.Routes(), "/query", queryRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryAgentFailure(t *testing.T) {
	fa := &fakeAgent{err: errors.New("generation failed on turn 1: could not reach Ollama")}
	srv := newTestServer(t, fa, nil, true)

	rec := postJSON(t, srv.Routes(), "/query", queryRequest{Query: "when is payday"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error processing query")
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &fakeAgent{}, nil, true)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, true, resp["documents_loaded"])
	assert.Equal(t, "lexical", resp["retrieval_mode"])
}

func TestHandleGetEmployee(t *testing.T) {
	es := &fakeEmployeeStore{employee: &store.Employee{EmployeeID: "EMP001", Name: "Alice Chen"}}
	srv := newTestServer(t, &fakeAgent{}, es, true)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/employees/EMP001", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var emp store.Employee
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &emp))
	assert.Equal(t, "Alice Chen", emp.Name)
}

func TestHandleGetEmployeeNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeAgent{}, &fakeEmployeeStore{}, true)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/employees/EMP999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetEmployeeNoStore(t *testing.T) {
	srv := newTestServer(t, &fakeAgent{}, nil, true)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/employees/EMP001", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleReload(t *testing.T) {
	srv := newTestServer(t, &fakeAgent{}, nil, false)

	// Reload doubles as first load.
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reloaded successfully")

	rec = postJSON(t, srv.Routes(), "/query", queryRequest{Query: "payday"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleRootAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeAgent{}, nil, true)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/query")

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
