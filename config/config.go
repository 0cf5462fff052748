// Package config resolves the engine process's runtime settings: library
// roots, the helper-work pool size, the log level, and the optional debug
// HTTP listener address (§6). Every setting is a command-line flag with a
// PROCFLOW_* environment variable as its default, the flag/env layering the
// teacher's example commands use (see original examples_runner/main.go).
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Config is the fully resolved set of process settings.
type Config struct {
	// DataRoot is the primary library root, scanned for lib.json
	// directories (§6: "process working directory's data/ subtree").
	DataRoot string
	// DocsRoot is the secondary, per-user library root (§6: "a per-user
	// documents subtree"). Empty disables it.
	DocsRoot string
	// HelperPoolSize bounds the concurrent helper-work goroutines node
	// behaviors may spawn (actorsys.System).
	HelperPoolSize int
	// LogLevel is one of log.Level{Debug,Info,Warn,Error,Fatal}.
	LogLevel string
	// DebugAddr is the listen address for the debug HTTP server.
	// Empty disables it.
	DebugAddr string
}

const (
	defaultDataRoot       = "./data"
	defaultHelperPoolSize = "16"
	defaultLogLevel       = "info"
	defaultDebugAddr      = ""
)

// Parse builds a Config from args (pass os.Args[1:] in main), falling back
// to PROCFLOW_* environment variables, and finally to the hardcoded
// defaults above, in that order of precedence: flag > env > default.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("procflow", flag.ContinueOnError)

	dataRoot := fs.String("data-root", envOr("PROCFLOW_DATA_ROOT", defaultDataRoot),
		"primary library root to scan for lib.json directories")
	docsRoot := fs.String("docs-root", envOr("PROCFLOW_DOCS_ROOT", ""),
		"secondary, per-user library root (empty disables it)")
	helperPoolSize := fs.Int("helper-pool-size", envOrInt("PROCFLOW_HELPER_POOL_SIZE", defaultHelperPoolSize),
		"maximum concurrent helper-work goroutines")
	logLevel := fs.String("log-level", envOr("PROCFLOW_LOG_LEVEL", defaultLogLevel),
		"log level: debug, info, warn, error, fatal")
	debugAddr := fs.String("debug-addr", envOr("PROCFLOW_DEBUG_ADDR", defaultDebugAddr),
		"listen address for the debug HTTP server (empty disables it)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *helperPoolSize <= 0 {
		return nil, fmt.Errorf("config: helper-pool-size must be positive, got %d", *helperPoolSize)
	}

	return &Config{
		DataRoot:       *dataRoot,
		DocsRoot:       *docsRoot,
		HelperPoolSize: *helperPoolSize,
		LogLevel:       *logLevel,
		DebugAddr:      *debugAddr,
	}, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrInt(key, fallback string) int {
	raw := envOr(key, fallback)
	n, err := strconv.Atoi(raw)
	if err != nil {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}
