package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("AVAXFORM_PORT", "9090")

	path := writeFile(t, t.TempDir(), "gateway.yaml", `
server:
  port: ${AVAXFORM_PORT}
logging:
  level: ${AVAXFORM_LOG_LEVEL:-debug}
schemaRegistry:
  timeout: 3s
rules:
  path: rules.yaml
  watch: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3*time.Second, cfg.SchemaRegistry.Timeout.Duration())
	assert.Equal(t, int64(DefaultFetchMaxBodySize), cfg.SchemaRegistry.MaxBodySize)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.True(t, cfg.Rules.Watch)
	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigFromReader(strings.NewReader("server: [unclosed"))
	assert.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("AVAXFORM_SET", "value")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "set variable", in: "a: ${AVAXFORM_SET}", want: "a: value"},
		{name: "default used", in: "a: ${AVAXFORM_UNSET:-fallback}", want: "a: fallback"},
		{name: "unset without default", in: "a: ${AVAXFORM_UNSET}", want: "a: "},
		{name: "escaped dollar", in: "a: $${AVAXFORM_SET}", want: "a: ${AVAXFORM_SET}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.in))
		})
	}
}

func TestLoadRuleSet(t *testing.T) {
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "rules.yaml", `
rules:
  - rule_name: a
    source_format: json
    target_format: csv
  - rule_name: b
    source_format: xml
`)
	set, err := LoadRuleSet(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, set.Names())
	rule, ok := set.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "xml", rule.SourceFormat)
	_, ok = set.Lookup("c")
	assert.False(t, ok)

	jsonPath := writeFile(t, dir, "rules.json", `{"rules":[{"rule_name":"j","mapping_config":"{\"x\":\"y\"}"}]}`)
	set, err = LoadRuleSet(jsonPath)
	require.NoError(t, err)
	require.Len(t, set.Rules, 1)
	assert.Len(t, set.Rules[0].MappingConfig, 1)
}

func TestLoadRule(t *testing.T) {
	dir := t.TempDir()

	single := writeFile(t, dir, "single.json", `{"rule_name":"one","target_format":"xml"}`)
	rule, err := LoadRule(single, "")
	require.NoError(t, err)
	assert.Equal(t, "one", rule.Name)

	set := writeFile(t, dir, "set.yaml", "rules:\n  - rule_name: x\n  - rule_name: y\n")
	rule, err = LoadRule(set, "y")
	require.NoError(t, err)
	assert.Equal(t, "y", rule.Name)

	_, err = LoadRule(set, "")
	assert.Error(t, err)

	only := writeFile(t, dir, "only.yaml", "rules:\n  - rule_name: solo\n")
	rule, err = LoadRule(only, "")
	require.NoError(t, err)
	assert.Equal(t, "solo", rule.Name)
}

func TestShippedConfigs(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "gateway.yaml"))
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.SchemaRegistry.Retry.MaxRetries)
	assert.Equal(t, Duration(100*time.Millisecond), cfg.Rules.DebounceDelay)

	set, err := LoadRuleSet(filepath.Join("..", "..", "configs", "rules.yaml"))
	require.NoError(t, err)
	require.NoError(t, ValidateRuleSet(set))
	assert.Equal(t, []string{"adults-to-csv", "orders-summary"}, set.Names())

	rule, ok := set.Lookup("adults-to-csv")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(rule.SampleInput), `{"data":[`))
}
