// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package service wires the configured resolver, cache store, tracker, API
// server and observation sources into a running daemon.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/wneessen/wifi-geolocate/internal/api"
	"github.com/wneessen/wifi-geolocate/internal/config"
	"github.com/wneessen/wifi-geolocate/internal/geolocate"
	"github.com/wneessen/wifi-geolocate/internal/geolocate/provider/google"
	"github.com/wneessen/wifi-geolocate/internal/geolocate/provider/ichnaea"
	"github.com/wneessen/wifi-geolocate/internal/gpswatch"
	"github.com/wneessen/wifi-geolocate/internal/http"
	"github.com/wneessen/wifi-geolocate/internal/loccache"
	"github.com/wneessen/wifi-geolocate/internal/logger"
	"github.com/wneessen/wifi-geolocate/internal/store/filestore"
	"github.com/wneessen/wifi-geolocate/internal/store/sqlitestore"
	"github.com/wneessen/wifi-geolocate/internal/tracker"
	"github.com/wneessen/wifi-geolocate/internal/wifiscan"
)

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	resolver  geolocate.Resolver
	cache     *loccache.Cache
	tracker   *tracker.Tracker
	api       *api.Server
	scheduler gocron.Scheduler
	scanner   *wifiscan.Scanner
	closers   []io.Closer
}

// New assembles a Service from the given configuration.
func New(conf *config.Config, log *logger.Logger) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		scheduler: scheduler,
	}

	httpClient := http.New(log)
	switch conf.Provider.Name {
	case config.ProviderGoogle:
		service.resolver, err = google.New(httpClient, conf.Provider.GoogleAPIKey)
	case config.ProviderIchnaea:
		service.resolver, err = ichnaea.New(httpClient)
	default:
		err = fmt.Errorf("unknown provider: %s", conf.Provider.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create geolocation provider: %w", err)
	}

	var cacheStore loccache.Store
	switch conf.Cache.Backend {
	case config.CacheBackendSQLite:
		sqlStore, err := sqlitestore.New(conf.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache store: %w", err)
		}
		service.closers = append(service.closers, sqlStore)
		cacheStore = sqlStore
	default:
		cacheStore = filestore.New(conf.Cache.Path)
	}

	service.cache = loccache.New(cacheStore, log)
	service.tracker = tracker.New(service.cache, service.resolver, log)
	service.api = api.New(service.tracker, log, conf.Listen)

	if !conf.WiFi.Disable {
		scanner, err := wifiscan.New()
		if err != nil {
			log.Warn("WiFi scanning unavailable, relying on submitted observations", logger.Err(err))
		} else {
			service.scanner = scanner
			service.closers = append(service.closers, scanner)
		}
	}

	return service, nil
}

// Run starts the service loop and blocks until the context is cancelled or the
// API server fails.
func (s *Service) Run(ctx context.Context) error {
	s.cache.Load()

	if s.config.Provider.ValidateKey {
		if provider, ok := s.resolver.(*google.Provider); ok {
			if err := provider.ValidateKey(ctx); err != nil {
				return fmt.Errorf("failed to validate Google API key: %w", err)
			}
			s.logger.Info("Google API key validated")
		}
	}

	if s.scanner != nil {
		if err := s.createScheduledJob(ctx, s.config.Intervals.Scan, s.scanCycle, "wifi_scan_job"); err != nil {
			return err
		}
	}
	s.scheduler.Start()

	if !s.config.GPSD.Disable {
		watcher := gpswatch.New(s.config.GPSD.Host, s.config.GPSD.Port, s.logger)
		go s.processGPSFixes(ctx, watcher.Watch(ctx))
	}

	// Subscribe to published attribute updates from the tracker
	sub, unsub := s.tracker.Subscribe(32)
	go s.processUpdates(ctx, sub)

	apiErr := make(chan error, 1)
	go func() {
		apiErr <- s.api.Serve(ctx)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = <-apiErr
	case err = <-apiErr:
	}

	unsub()
	if shutdownErr := s.scheduler.Shutdown(); shutdownErr != nil && err == nil {
		err = fmt.Errorf("failed to shut down scheduler: %w", shutdownErr)
	}
	for _, closer := range s.closers {
		if closeErr := closer.Close(); closeErr != nil {
			s.logger.Error("failed to close resource", logger.Err(closeErr))
		}
	}
	return err
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// scanCycle scans the local WiFi environment and runs a regular, non-forced
// resolve cycle for the local entity.
func (s *Service) scanCycle(ctx context.Context) {
	observations, err := s.scanner.Scan()
	if err != nil {
		s.logger.Warn("failed to scan WiFi access points", logger.Err(err))
		return
	}

	resolution, err := s.tracker.Resolve(ctx, s.config.Entity.ID, observations, false)
	switch {
	case errors.Is(err, geolocate.ErrNoAccessPoints):
		s.logger.Debug("no access points visible, skipping geolocation")
	case err != nil:
		s.logger.Error("failed to geolocate local entity", logger.Err(err))
	case resolution.Skipped:
		s.logger.Debug("local observation set unchanged")
	}
}

// processGPSFixes feeds gpsd fixes into the local entity's tracking state.
func (s *Service) processGPSFixes(ctx context.Context, fixes <-chan tracker.Position) {
	for {
		select {
		case <-ctx.Done():
			return
		case pos, ok := <-fixes:
			if !ok {
				return
			}
			s.tracker.SetGPS(s.config.Entity.ID, pos)
		}
	}
}

// processUpdates logs published attribute updates of all tracked entities.
func (s *Service) processUpdates(ctx context.Context, sub <-chan tracker.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub:
			if !ok {
				return
			}
			s.logger.Info("entity location updated", slog.String("entity", update.EntityID),
				slog.String("source", update.Attributes.LocationSource),
				slog.Float64("lat", update.Attributes.Latitude),
				slog.Float64("lon", update.Attributes.Longitude))
		}
	}
}
