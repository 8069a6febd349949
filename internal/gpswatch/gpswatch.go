// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpswatch streams GPS fixes from a gpsd daemon. The fixes feed the
// GPS side of the entity location projection, which always outranks a
// WiFi-resolved location.
package gpswatch

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/wifi-geolocate/internal/logger"
	"github.com/wneessen/wifi-geolocate/internal/tracker"
)

const reconnectDelay = time.Second * 30

// Watcher maintains a connection to gpsd and emits position fixes.
type Watcher struct {
	addr   string
	logger *logger.Logger
}

// New returns a new Watcher for the gpsd daemon at the given host and port.
func New(host, port string, log *logger.Logger) *Watcher {
	return &Watcher{
		addr:   net.JoinHostPort(host, port),
		logger: log,
	}
}

// Watch connects to gpsd and streams TPV fixes with at least a 2D mode on the
// returned channel until the context is cancelled. Lost connections are
// re-established after a delay; the channel is closed when the watch ends.
func (w *Watcher) Watch(ctx context.Context) <-chan tracker.Position {
	out := make(chan tracker.Position)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			session, err := gpsd.Dial(w.addr)
			if err != nil {
				w.logger.Debug("failed to connect to gpsd", slog.String("addr", w.addr), logger.Err(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectDelay):
					continue
				}
			}

			session.AddFilter("TPV", func(r interface{}) {
				tpv, ok := r.(*gpsd.TPVReport)
				if !ok {
					return
				}
				if tpv.Mode < gpsd.Mode2D {
					return
				}
				select {
				case <-ctx.Done():
				case out <- tracker.Position{Latitude: tpv.Lat, Longitude: tpv.Lon}:
				}
			})

			done := session.Watch()
			select {
			case <-ctx.Done():
				// The process exiting tears down the gpsd connection; go-gpsd
				// has no Close().
				return
			case <-done:
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()

	return out
}
