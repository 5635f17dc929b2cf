package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

const Version = "0.1.0"

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitParseError  = 2
	ExitPersistence = 3
	ExitCancelled   = 4
)

var (
	logLevelFlags []string // supports multiple --log-level flags
	configPath    string
)

var rootCmd = &cobra.Command{
	Use:   "depscope",
	Short: "depscope - service dependency graphs from heterogeneous evidence",
	Long: `depscope ingests dependency evidence from logs, configuration files,
network scans, pipelines, and other sources, normalizes it into claims,
resolves conflicts, and builds a weighted service dependency graph with
analytics on top.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// ExitCode maps an error to the process exit code: 2 for input/parse
// errors, 3 for persistence errors, 4 for cancellation, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitCancelled
	case models.IsPersistenceError(err):
		return ExitPersistence
	case models.IsAdapterError(err), models.IsInputError(err), models.IsValidationError(err):
		return ExitParseError
	default:
		return ExitFailure
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use a bare level for the default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level ingest=debug --log-level resolver=warn")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the depscope YAML config file (optional, built-in defaults apply without it)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(transitiveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

// setupLog initializes the logging system from the parsed --log-level
// flags, supporting per-package overrides.
func setupLog(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags parses CLI flags and LOG_LEVEL_* environment
// variables; CLI flags win.
//
// CLI format: ["debug"], or ["default=info", "ingest=debug"].
// Env vars: LOG_LEVEL_INGEST=debug (package name uppercased, dots to
// underscores).
func parseLogLevelFlags(flags []string) (string, map[string]string, error) {
	result := make(map[string]string)

	for _, envPair := range os.Environ() {
		if strings.HasPrefix(envPair, "LOG_LEVEL_") {
			parts := strings.SplitN(envPair, "=", 2)
			if len(parts) != 2 {
				continue
			}
			result[envKeyToPackageName(parts[0])] = parts[1]
		}
	}

	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			result["default"] = flag
			continue
		}
		parts := strings.SplitN(flag, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if err := validateLogLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return defaultLevel, result, nil
}

// envKeyToPackageName converts LOG_LEVEL_INGEST_POOL -> ingest.pool.
func envKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

func validateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
	}
	return nil
}
