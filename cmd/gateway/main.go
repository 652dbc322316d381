// Package main is the entry point for the transformation gateway.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags(os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags, nil)
	cfg := loadAndValidateConfig(flags.configPath, logger)
	logger = initLogger(flags, &cfg.Logging)
	defer func() { _ = logger.Sync() }()

	app, err := initApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize application", observability.Error(err))
		return
	}

	runGateway(app, logger)
}

// parseFlags parses command line flags. Environment variables supply the
// defaults.
func parseFlags(args []string) cliFlags {
	fs := flag.NewFlagSet("gateway", flag.ExitOnError)
	configPath := fs.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := fs.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration file")
	logFormat := fs.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration file")
	showVersion := fs.Bool("version", false, "Show version information")
	_ = fs.Parse(args)

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("avaxform gateway version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// logConfigFor layers the flags over the file configuration over the
// defaults.
func logConfigFor(flags cliFlags, fileCfg *config.LoggingConfig) observability.LogConfig {
	logCfg := observability.DefaultLogConfig()
	if fileCfg != nil {
		if fileCfg.Level != "" {
			logCfg.Level = fileCfg.Level
		}
		if fileCfg.Format != "" {
			logCfg.Format = fileCfg.Format
		}
		if fileCfg.Output != "" {
			logCfg.Output = fileCfg.Output
		}
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}
	return logCfg
}

// initLogger initializes the process logger.
func initLogger(flags cliFlags, fileCfg *config.LoggingConfig) observability.Logger {
	logger, err := observability.NewLogger(logConfigFor(flags, fileCfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting avaxform gateway",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fatalWithSync(logger, "failed to load configuration", observability.Error(err))
		return nil
	}

	if err := config.ValidateConfig(cfg); err != nil {
		fatalWithSync(logger, "invalid configuration", observability.Error(err))
		return nil
	}

	logger.Info("configuration loaded",
		observability.Int("port", cfg.Server.Port),
		observability.String("rules", cfg.Rules.Path),
		observability.Bool("watch_rules", cfg.Rules.Watch),
	)
	return cfg
}

// fatalWithSync logs a fatal message after flushing buffered entries.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	_ = logger.Sync()
	logger.Fatal(msg, fields...)
}
