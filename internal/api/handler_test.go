package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdx2dax/internal/config"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		ListenAddr:         ":0",
		LogLevel:           "error",
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
		MaxQueryBytes:      1 << 20,
		MaxBatchQueries:    10,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(cfg, logger).Router()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t)

	t.Run("generated", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("reused from request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "trace-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, "trace-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestConvert(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/convert", map[string]any{
		"query": "SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp convertResponse
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "EVALUATE\n{ [Sales Amount] }", resp.DAX)
	assert.Nil(t, resp.Report)
}

func TestConvert_IncludeReport(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/convert", map[string]any{
		"query":          "SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]",
		"include_report": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp convertResponse
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "CONSERVATIVE", resp.Report.LevelName)
}

func TestConvert_ParseError(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/convert", map[string]any{
		"query": "SELECT FROM",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "parse_error", resp.Kind)
	assert.NotEmpty(t, resp.Error)
	assert.Positive(t, resp.Line)
}

func TestConvert_EmptyQuery(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/convert", map[string]any{"query": ""})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "validation_error", resp.Kind)
}

func TestConvert_BadOptimizationLevel(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/convert", map[string]any{
		"query":              "SELECT {[Measures].[X]} ON 0 FROM [C]",
		"optimization_level": "turbo",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "configuration_error", resp.Kind)
}

func TestConvert_MalformedBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "validation_error", resp.Kind)
}

func TestConvert_UnknownFieldRejected(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/convert", map[string]any{
		"query":  "SELECT {[Measures].[X]} ON 0 FROM [C]",
		"target": "dax",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConvert_BodyTooLarge(t *testing.T) {
	cfg := &config.Config{
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
		MaxQueryBytes:      64,
		MaxBatchQueries:    10,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewHandler(cfg, logger).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/convert", map[string]any{
		"query": "SELECT {[Measures].[Sales Amount]} ON 0 FROM [" + strings.Repeat("x", 200) + "]",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "validation_error", resp.Kind)
}

func TestConvertBatch(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/convert/batch", map[string]any{
		"queries": []string{
			"SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]",
			"SELECT GARBAGE",
			"SELECT {[Measures].[Order Quantity]} ON 0 FROM [Adventure Works]",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []batchItemResponse `json:"results"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, 0, resp.Results[0].Index)
	assert.Equal(t, "EVALUATE\n{ [Sales Amount] }", resp.Results[0].DAX)
	assert.Empty(t, resp.Results[0].Error)

	assert.Equal(t, 1, resp.Results[1].Index)
	assert.Empty(t, resp.Results[1].DAX)
	assert.Equal(t, "parse_error", resp.Results[1].Kind)
	assert.NotEmpty(t, resp.Results[1].Error)

	assert.Equal(t, "EVALUATE\n{ [Order Quantity] }", resp.Results[2].DAX)
}

func TestConvertBatch_Validation(t *testing.T) {
	router := newTestRouter(t)

	t.Run("empty", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/convert/batch", map[string]any{
			"queries": []string{},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp errorResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "validation_error", resp.Kind)
	})

	t.Run("too many", func(t *testing.T) {
		queries := make([]string, 11)
		for i := range queries {
			queries[i] = "SELECT {[Measures].[X]} ON 0 FROM [C]"
		}
		rec := doJSON(t, router, http.MethodPost, "/api/convert/batch", map[string]any{
			"queries": queries,
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp errorResponse
		decodeBody(t, rec, &resp)
		assert.Contains(t, resp.Error, "too many queries")
	})
}

func TestLintEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/lint", map[string]any{
		"query": "SELECT {[Measures].[Sales], [Measures].[Sales]} ON 0 FROM [Cube]",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		MDX    string `json:"mdx"`
		Report struct {
			LevelName string `json:"level"`
			Actions   []struct {
				Type string `json:"type"`
			} `json:"actions"`
		} `json:"report"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "SELECT {[Measures].[Sales]} ON COLUMNS FROM [Cube]", resp.MDX)
	require.NotEmpty(t, resp.Report.Actions)
	assert.Equal(t, "remove_duplicates", resp.Report.Actions[0].Type)
}

func TestLintEndpoint_RuleToggle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/lint", map[string]any{
		"query": "SELECT {[Measures].[Sales], [Measures].[Sales]} ON 0 FROM [Cube]",
		"rules": map[string]bool{"duplicate_remover": false},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp lintResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "SELECT {[Measures].[Sales], [Measures].[Sales]} ON COLUMNS FROM [Cube]", resp.MDX)
}

func TestLintEndpoint_UnknownRule(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/lint", map[string]any{
		"query": "SELECT {[Measures].[Sales]} ON 0 FROM [Cube]",
		"rules": map[string]bool{"mystery_rule": true},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "configuration_error", resp.Kind)
}

func TestExplainEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/explain", map[string]any{
		"query":  "SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]",
		"format": "natural",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp["explanation"], "Sales Amount")
	assert.Contains(t, resp["explanation"], "Adventure Works")
}

func TestExplainEndpoint_BadFormat(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/explain", map[string]any{
		"query":  "SELECT {[Measures].[X]} ON 0 FROM [C]",
		"format": "yaml",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "validation_error", resp.Kind)
	assert.Contains(t, resp.Error, "unknown explanation format")
}
