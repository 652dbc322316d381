// Package config defines the gateway configuration and the transformation
// rule model.
//
// Gateway configuration is loaded from YAML with ${VAR} and ${VAR:-default}
// environment substitution:
//
//	cfg, err := config.LoadConfig("configs/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Transformation rules live in a separate rule set file (YAML or JSON) that
// RuleWatcher reloads when it changes on disk. Rule fields that rule stores
// keep as JSON text (filter_config, mapping_config, validation_config,
// pipeline_config) are accepted either inline or as an encoded string.
package config
