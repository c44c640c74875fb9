package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shrek82/jrecord/core"
	"github.com/shrek82/jrecord/httpapi"
	"github.com/shrek82/jrecord/logger"
	"github.com/shrek82/jrecord/middleware"
	"github.com/shrek82/jrecord/store/memory"
	"github.com/shrek82/jrecord/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Class  string         `json:"class"`
	ID     any            `json:"id"`
	State  string         `json:"state"`
	Fields map[string]any `json:"fields"`
	Error  string         `json:"error"`
}

func newServer(t *testing.T, opts ...httpapi.Option) (http.Handler, *core.Registry) {
	t.Helper()
	reg := core.NewRegistry()
	engine := core.New(memory.New(), &core.Options{Registry: reg, Logger: logger.NewNopLogger()})
	t.Cleanup(func() { _ = engine.Close() })

	track := reg.Define("Track", nil)
	track.OnNamed(core.EventSave, core.Before, "validate", validator.Callback(validator.Rules{
		"song": {validator.Required.Msg("song is required")},
	}))
	track.AfterCreate(core.Notify(func(r *core.Record) { r.Set("track", r.Int("track")-2) }))
	track.BeforeDestroy(core.Gate(func(r *core.Record) bool { return r.String("locked") != "yes" }))
	return httpapi.NewHandler(engine, opts...), reg
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp response
	if rr.Body.Len() > 0 && strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func TestGetHealth(t *testing.T) {
	h, _ := newServer(t)
	rr, _ := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRecordLifecycle(t *testing.T) {
	h, _ := newServer(t)

	rr, created := do(t, h, "POST", "/Track", `{"song":"Europa","track":7}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Track", created.Class)
	assert.Equal(t, "persisted", created.State)
	assert.EqualValues(t, 1, created.ID)
	assert.EqualValues(t, 5, created.Fields["track"])
	// field order is kept in the response
	assert.True(t, strings.Index(rr.Body.String(), `"song"`) < strings.Index(rr.Body.String(), `"track"`))

	rr, got := do(t, h, "GET", "/Track/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Europa", got.Fields["song"])
	assert.EqualValues(t, 7, got.Fields["track"], "the stored document predates after_create")

	rr, updated := do(t, h, "PUT", "/Track/1", `{"album":"Supernatural"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Europa", updated.Fields["song"])
	assert.Equal(t, "Supernatural", updated.Fields["album"])

	rr, _ = do(t, h, "DELETE", "/Track/1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, missing := do(t, h, "GET", "/Track/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, missing.Error, "record not found")
}

func TestErrors(t *testing.T) {
	h, _ := newServer(t)

	t.Run("UnknownClass", func(t *testing.T) {
		rr, resp := do(t, h, "POST", "/Album", `{"album":"x"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, resp.Error, "unknown class")
	})

	t.Run("InvalidBody", func(t *testing.T) {
		rr, _ := do(t, h, "POST", "/Track", `[1,2]`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Validation", func(t *testing.T) {
		rr, _ := do(t, h, "POST", "/Track", `{"track":1}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, []any{"song is required"}, body["fields"].(map[string]any)["song"])
	})

	t.Run("Halted", func(t *testing.T) {
		rr, created := do(t, h, "POST", "/Track", `{"song":"Europa","locked":"yes"}`)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr, resp := do(t, h, "DELETE", "/Track/"+jsonID(created.ID), "")
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, resp.Error, "halted")
	})

	t.Run("MissingUpdate", func(t *testing.T) {
		rr, _ := do(t, h, "PUT", "/Track/404", `{"song":"x"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRequestTracing(t *testing.T) {
	reg := core.NewRegistry()
	engine := core.New(memory.New(), &core.Options{Registry: reg, Logger: logger.NewNopLogger()})
	reg.Define("Track", nil)

	buf := &bytes.Buffer{}
	l := logger.NewStdLogger()
	l.SetOutput(buf)
	l.SetFormat(logger.LogFormatJSON)
	tracing := middleware.NewTracing()
	tracing.SetLogger(l)
	require.NoError(t, engine.Use(tracing))

	h := httpapi.NewHandler(engine)
	req := httptest.NewRequest("POST", "/Track", strings.NewReader(`{"song":"Europa"}`))
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.NotEmpty(t, entry["user_ip"])
}

func TestMetricsEndpoint(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metrics, err := middleware.NewMetrics(promReg)
	require.NoError(t, err)

	reg := core.NewRegistry()
	engine := core.New(memory.New(), &core.Options{Registry: reg, Logger: logger.NewNopLogger(), Observer: metrics})
	require.NoError(t, engine.Use(metrics))
	reg.Define("Track", nil)
	h := httpapi.NewHandler(engine, httpapi.WithMetrics(promReg))

	rr, _ := do(t, h, "POST", "/Track", `{"song":"Europa"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	req := httptest.NewRequest("GET", "/metrics", nil)
	mrr := httptest.NewRecorder()
	h.ServeHTTP(mrr, req)
	assert.Equal(t, http.StatusOK, mrr.Code)
	assert.Contains(t, mrr.Body.String(), `jrecord_store_operations_total{collection="tracks",op="insert",status="ok"} 1`)
}

func jsonID(id any) string {
	b, _ := json.Marshal(id)
	return string(b)
}
