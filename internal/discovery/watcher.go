// Package discovery subscribes to the discovery service's change feed. The
// analysis backend never mutates the graph; its only interest in the feed is
// knowing when cached results went stale.
package discovery

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Event is one message on the discovery change feed.
type Event struct {
	Type       string `json:"type"` // "topology_changed", "resource_updated", "resource_removed"
	Version    string `json:"version,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
}

// Event types published by the discovery service.
const (
	EventTopologyChanged = "topology_changed"
	EventResourceUpdated = "resource_updated"
	EventResourceRemoved = "resource_removed"
)

// Invalidator is what the watcher drives on events; the analysis cache
// satisfies it.
type Invalidator interface {
	InvalidateResource(resourceID string)
	InvalidateAll()
}

// Watcher keeps a websocket subscription to the discovery feed alive and
// translates events into cache invalidations. Connection loss is tolerated:
// analyses keep working off the last stored graph, only cache freshness
// suffers until the feed returns.
type Watcher struct {
	url         string
	invalidator Invalidator
	log         *slog.Logger
	dialer      *websocket.Dialer
}

// NewWatcher builds a watcher for the given ws:// or wss:// feed URL.
func NewWatcher(url string, inv Invalidator, log *slog.Logger) *Watcher {
	return &Watcher{
		url:         url,
		invalidator: inv,
		log:         log,
		dialer:      websocket.DefaultDialer,
	}
}

// Run connects and consumes events until ctx is done, reconnecting with
// exponential backoff after every failure. A successful (re)connect
// invalidates everything, because events may have been missed while away.
func (w *Watcher) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0 // retry forever

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
		if err != nil {
			wait := bo.NextBackOff()
			w.log.Warn("discovery feed unreachable", "url", w.url, "error", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		bo.Reset()
		w.log.Info("discovery feed connected", "url", w.url)
		w.invalidator.InvalidateAll()

		w.consume(ctx, conn)
		conn.Close()
	}
}

// consume reads events until the connection breaks or ctx is done.
func (w *Watcher) consume(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn("discovery feed read failed", "error", err)
			}
			return
		}
		w.handle(message)
	}
}

func (w *Watcher) handle(message []byte) {
	var ev Event
	if err := json.Unmarshal(message, &ev); err != nil {
		w.log.Warn("discovery feed sent malformed event", "error", err)
		return
	}

	switch ev.Type {
	case EventTopologyChanged:
		w.log.Info("topology changed, dropping cached analyses", "version", ev.Version)
		w.invalidator.InvalidateAll()
	case EventResourceUpdated, EventResourceRemoved:
		if ev.ResourceID != "" {
			w.invalidator.InvalidateResource(ev.ResourceID)
		}
	default:
		// Unknown event types are ignored; the feed may grow new ones.
	}
}
