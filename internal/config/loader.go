package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// LoadConfig loads gateway configuration from a YAML file. Values missing
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

// LoadConfigFromReader loads gateway configuration from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// RuleSet is the content of a rule set file.
type RuleSet struct {
	Rules []TransformationRule `json:"rules" yaml:"rules"`
}

// Lookup returns the rule named name.
func (s *RuleSet) Lookup(name string) (*TransformationRule, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Rules {
		if s.Rules[i].Name == name {
			return &s.Rules[i], true
		}
	}
	return nil, false
}

// Names returns the rule names in file order.
func (s *RuleSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Rules))
	for i := range s.Rules {
		names = append(names, s.Rules[i].Name)
	}
	return names
}

// LoadRuleSet loads a rule set from a .json, .yaml or .yml file. Environment
// variables are substituted before parsing.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	content := []byte(substituteEnvVars(string(data)))

	var set RuleSet
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(content, &set)
	} else {
		err = yaml.Unmarshal(content, &set)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule set %s: %w", path, err)
	}
	return &set, nil
}

// LoadRule reads a single rule document. The file may hold a bare rule or a
// rule set, in which case the rule named name (or the only rule) is used.
func LoadRule(path, name string) (*TransformationRule, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	content := []byte(substituteEnvVars(string(data)))

	var shape map[string]interface{}
	if isJSONPath(path, content) {
		err = json.Unmarshal(content, &shape)
	} else {
		err = yaml.Unmarshal(content, &shape)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule %s: %w", path, err)
	}

	if _, ok := shape["rules"]; ok {
		set, err := LoadRuleSet(path)
		if err != nil {
			return nil, err
		}
		if name == "" && len(set.Rules) == 1 {
			return &set.Rules[0], nil
		}
		rule, ok := set.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("rule %q not found in %s", name, path)
		}
		return rule, nil
	}

	var rule TransformationRule
	if isJSONPath(path, content) {
		err = json.Unmarshal(content, &rule)
	} else {
		err = yaml.Unmarshal(content, &rule)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule %s: %w", path, err)
	}
	return &rule, nil
}

func isJSONPath(path string, content []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return true
	}
	trimmed := bytes.TrimSpace(content)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func readFile(path string) ([]byte, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	data, err := os.ReadFile(absPath) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. $$ escapes a literal dollar sign.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}
		if value, exists := os.LookupEnv(submatches[1]); exists {
			return value
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}
