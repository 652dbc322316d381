package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("GATEWAY_LOG_FORMAT", "console")

	flags := parseFlags([]string{"-config", "/etc/xf.yaml", "-log-level", "debug", "-version"})
	assert.Equal(t, cliFlags{
		configPath:  "/etc/xf.yaml",
		logLevel:    "debug",
		logFormat:   "console",
		showVersion: true,
	}, flags)
}

func TestLogConfigFor(t *testing.T) {
	tests := []struct {
		name    string
		flags   cliFlags
		fileCfg *config.LoggingConfig
		want    observability.LogConfig
	}{
		{
			name: "defaults",
			want: observability.DefaultLogConfig(),
		},
		{
			name:    "file overrides defaults",
			fileCfg: &config.LoggingConfig{Level: "warn", Output: "stderr"},
			want:    observability.LogConfig{Level: "warn", Format: "json", Output: "stderr"},
		},
		{
			name:    "flags override file",
			flags:   cliFlags{logLevel: "debug", logFormat: "console"},
			fileCfg: &config.LoggingConfig{Level: "warn", Format: "json"},
			want:    observability.LogConfig{Level: "debug", Format: "console", Output: "stdout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logConfigFor(tt.flags, tt.fileCfg))
		})
	}
}

func TestInitApplication(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(strings.TrimSpace(`
rules:
  - rule_name: greet
    mapping_config:
      greeting: "Hello {{name}}"
`)), 0o600))

	cfg := config.DefaultConfig()
	cfg.Rules.Path = rulesPath
	cfg.Metrics.Enabled = true

	app, err := initApplication(cfg, observability.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, app.rules)

	engine := app.server.Engine()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/rules/greet/transform",
		strings.NewReader(`{"name":"Ada"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"greeting":"Hello Ada"}`, w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gateway_build_info")
	assert.Contains(t, w.Body.String(), "gateway_pipeline_runs_total")

	require.NoError(t, shutdown(app, observability.NopLogger()))
}

func TestInitApplication_MissingRules(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules.Path = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := initApplication(cfg, observability.NopLogger())
	assert.Error(t, err)
}
