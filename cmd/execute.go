// Package cmd contains the command line interface for the sage server.
// All application logic lives here, leaving main.go as a minimal entry
// point, following the pattern used by standard Go CLI tools.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mirutec/sage/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the sage CLI.
// It handles flag parsing and command routing; serve is the default command.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			return runServe()
		default:
			printHelp()
			return fmt.Errorf("unknown command: %s", os.Args[1])
		}
	}

	return runServe()
}

// initLogger initializes the structured logger.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
func initLogger() log.Logger {
	return log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("SAGE_LOG_JSON") != "",
	})
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// printHelp displays the help message.
func printHelp() {
	fmt.Println("sage - retrieval-augmented support answer engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sage                    Start the HTTP API server (default)")
	fmt.Println("  sage serve [addr]       Start the HTTP API server on addr")
	fmt.Println("  sage version            Show version information")
	fmt.Println("  sage help               Show this help")
	fmt.Println()
	fmt.Println("Serve options:")
	fmt.Println("  --addr host:port        Listen address (default 127.0.0.1:8080)")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  DATABASE_URL            Optional: PostgreSQL URL for the feedback archive")
	fmt.Println("  GEMINI_API_KEY          Optional: enables LLM reply refinement")
	fmt.Println("  DEBUG                   Optional: enable debug logging")
	fmt.Println("  SAGE_LOG_JSON           Optional: JSON log output")
	fmt.Println()
	fmt.Println("Configuration file: ~/.sage/config.yaml")
}
