package main

import (
	"flag"
	"strings"

	"histoflow/internal/config"
	"histoflow/internal/daemonrun"
)

func parseFlags(args []string) (daemonrun.Options, string, error) {
	fs := flag.NewFlagSet("histoflowd", flag.ContinueOnError)
	configPath := fs.String("config", "", "Configuration file path")
	logLevel := fs.String("log-level", "", "Log level override (debug, info, warn, error)")
	diagnostic := fs.Bool("diagnostic", false, "Enable diagnostic mode with DEBUG logging")
	if err := fs.Parse(args); err != nil {
		return daemonrun.Options{}, "", err
	}

	opts := daemonrun.Options{
		LogLevel:   strings.TrimSpace(*logLevel),
		Diagnostic: *diagnostic,
	}
	return opts, strings.TrimSpace(*configPath), nil
}

func resolveLogLevel(requested string, cfg *config.Config) string {
	if level := strings.TrimSpace(requested); level != "" {
		return level
	}
	if cfg != nil && strings.TrimSpace(cfg.Logging.Level) != "" {
		return cfg.Logging.Level
	}
	return "info"
}
