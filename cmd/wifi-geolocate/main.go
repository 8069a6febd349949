// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the wifi-geolocate service.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wneessen/wifi-geolocate/internal/config"
	"github.com/wneessen/wifi-geolocate/internal/logger"
	"github.com/wneessen/wifi-geolocate/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT,
		os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.New(slog.LevelError)

	// Read config
	confRead := false
	confPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	// Read default config
	conf, err := config.New()
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	// If config file was specified, read it
	if *confPath != "" {
		file := filepath.Base(*confPath)
		path := filepath.Dir(*confPath)
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
		confRead = true
	}

	// Check if we have a config file in the default location
	if path, file := findConfigFile(); !confRead && (path != "" && file != "") {
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
	}

	log = logger.New(conf.LogLevel)

	// Initialize the service
	serv, err := service.New(conf, log)
	if err != nil {
		log.Error("failed to initialize wifi-geolocate service", logger.Err(err))
		os.Exit(1)
	}

	// Start the service loop
	log.Info("starting wifi-geolocate service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Run(ctx); err != nil {
		log.Error("failed to run wifi-geolocate service", logger.Err(err))
	}
	log.Info("shutting down wifi-geolocate service")
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "wifi-geolocate", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
