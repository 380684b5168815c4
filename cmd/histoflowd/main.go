package main

import (
	"context"
	"errors"
	"log"
	"os"

	"histoflow/internal/config"
	"histoflow/internal/daemonrun"
)

func main() {
	opts, configPath, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	opts.LogLevel = resolveLogLevel(opts.LogLevel, cfg)

	if err := daemonrun.Run(context.Background(), cfg, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("histoflowd: %v", err)
	}
}
