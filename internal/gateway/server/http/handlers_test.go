package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/gateway/server/http/middleware"
	"github.com/vyrodovalexey/avaxform/internal/pipeline"
	"github.com/vyrodovalexey/avaxform/internal/remote"
)

func init() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

func newTestAPI(t *testing.T, rules *config.RuleSet) *gin.Engine {
	t.Helper()
	orchestrator, err := pipeline.New(pipeline.WithSourceGetter(remote.New("test-source")))
	require.NoError(t, err)

	srv := NewServer(&ServerConfig{MaxRequestBodySize: 1 << 10}, nil)
	NewHandler(orchestrator,
		WithRules(StaticRules{Set: rules}),
		WithMetricsHandler("", promhttp.Handler()),
	).Register(srv.Engine())
	return srv.Engine()
}

func do(engine *gin.Engine, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestPreview(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed" {
			_, _ = w.Write([]byte(`[{"name":"Remote"}]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	engine := newTestAPI(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "mapping",
			body:       `{"rule":{"mapping_config":{"person.fullName":"{{name}}"}},"sample_input":{"name":"Chang"}}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "json", body["target_format"])
				assert.Equal(t, map[string]interface{}{
					"person": map[string]interface{}{"fullName": "Chang"},
				}, body["output"])
				meta := body["meta"].(map[string]interface{})
				assert.Equal(t, true, meta["usedMapping"])
			},
		},
		{
			name:       "target format override",
			body:       `{"rule":{},"sample_input":"[{\"a\":\"1\"}]","target_format":"csv"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "csv", body["target_format"])
				assert.Equal(t, "a\n1\n", body["output_text"])
			},
		},
		{
			name:       "remote test source",
			body:       `{"rule":{},"test_source_url":"` + upstream.URL + `/feed"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, []interface{}{map[string]interface{}{"name": "Remote"}}, body["output"])
			},
		},
		{
			name:       "malformed body",
			body:       `{"rule":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing rule",
			body:       `{"sample_input":"{}"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed sample",
			body:       `{"rule":{},"sample_input":"{\"a\":"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported format",
			body:       `{"rule":{"source_format":"yaml"},"sample_input":"a: 1"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "stop on fail",
			body: `{"rule":{"filter_config":[{"expression":"record.ok","stop_on_fail":true}]},` +
				`"sample_input":[{"ok":true},{"ok":false}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "validation rejected",
			body: `{"rule":{"validation_config":[{"field":"email","type":"email"}]},` +
				`"sample_input":[{"email":"nope"}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Contains(t, body["message"], "record 1 - field email must be a valid email address")
				report := body["validation"].(map[string]interface{})
				assert.Equal(t, false, report["valid"])
			},
		},
		{
			name:       "remote source failure",
			body:       `{"rule":{},"test_source_url":"` + upstream.URL + `/down"}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "template failure",
			body:       `{"rule":{"template_config":"{{#each data}}"},"sample_input":"{}"}`,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(engine, http.MethodPost, "/api/v1/transform/preview", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, http.StatusText(tt.wantStatus), body["error"])
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestNamedRules(t *testing.T) {
	rules := &config.RuleSet{Rules: []config.TransformationRule{
		{Name: "to-csv", TargetFormat: "csv"},
		{Name: "to-xml", TargetFormat: "xml"},
		{
			Name: "emails",
			ValidationConfig: config.ValidationRules{
				{Field: "email", Type: "email"},
			},
			ValidationOnFail: "warn",
		},
	}}
	engine := newTestAPI(t, rules)

	t.Run("list", func(t *testing.T) {
		w := do(engine, http.MethodGet, "/api/v1/rules", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"rules":["to-csv","to-xml","emails"]}`, w.Body.String())
	})

	t.Run("csv output", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/v1/rules/to-csv/transform", `[{"id":1},{"id":2}]`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "id\n1\n2\n", w.Body.String())
		assert.Equal(t, "true", w.Header().Get("X-Validation-Passed"))
	})

	t.Run("query overrides target", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/v1/rules/to-csv/transform?target_format=json", `{"id":1}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"id":1}`, w.Body.String())
	})

	t.Run("xml output", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/v1/rules/to-xml/transform", `{"id":1}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/xml; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "<id>1</id>")
	})

	t.Run("warnings attached", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/v1/rules/emails/transform", `[{"email":"x"}]`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "_validationWarnings")
	})

	t.Run("unknown rule", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/v1/rules/missing/transform", `{}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/v1/rules/to-csv/transform", `"`+strings.Repeat("x", 2048)+`"`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	engine := newTestAPI(t, &config.RuleSet{Rules: []config.TransformationRule{{Name: "a"}}})

	w := do(engine, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","rules":1}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = do(engine, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gateway_http_requests_total")

	w = do(engine, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	engine := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", bytes.NewReader(nil))
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
	assert.JSONEq(t, `{"rules":[]}`, w.Body.String())
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"csv":  "text/csv; charset=utf-8",
		"XML":  "application/xml; charset=utf-8",
		"json": "application/json; charset=utf-8",
		"":     "application/json; charset=utf-8",
	}
	for format, want := range tests {
		assert.Equal(t, want, ContentTypeFor(format), format)
	}
}
