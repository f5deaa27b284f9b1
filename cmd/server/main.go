//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"log"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign"
	"github.com/himanishpuri/BeatAlign/pkg/config"
	"github.com/himanishpuri/BeatAlign/pkg/logger"
)

var (
	configPath     string
	envFile        string
	port           int
	dbPath         string
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (default $BEATALIGN_CONFIG or beatalign.yaml)")
	flag.StringVar(&envFile, "env", ".env", "Path to a .env file")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if port != 0 {
		cfg.Port = port
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if allowedOrigins != "" {
		cfg.AllowedOrigins = config.SplitOrigins(allowedOrigins)
	}
	if lvl, ok := logger.ParseLevel(cfg.LogLevel); ok {
		logger.SetLevel(lvl)
	}

	defaults, err := cfg.Align.Options()
	if err != nil {
		log.Fatalf("Invalid alignment defaults: %v", err)
	}

	service, err := beatalign.NewService(
		beatalign.WithDBPath(cfg.DBPath),
		beatalign.WithCacheSize(cfg.CacheSize),
		beatalign.WithDefaults(defaults),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           cfg.Port,
		DBPath:         cfg.DBPath,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
