package discovery

import (
	"sync"
	"testing"

	"github.com/faultmap/faultmap-backend/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
)

type recordingInvalidator struct {
	mu        sync.Mutex
	all       int
	resources []string
}

func (r *recordingInvalidator) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all++
}

func (r *recordingInvalidator) InvalidateResource(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources = append(r.resources, id)
}

func TestHandleTopologyChanged(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewWatcher("ws://example/feed", inv, logger.StdLogger())

	w.handle([]byte(`{"type":"topology_changed","version":"v42"}`))

	assert.Equal(t, 1, inv.all)
	assert.Empty(t, inv.resources)
}

func TestHandleResourceEvents(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewWatcher("ws://example/feed", inv, logger.StdLogger())

	w.handle([]byte(`{"type":"resource_updated","resource_id":"db-1"}`))
	w.handle([]byte(`{"type":"resource_removed","resource_id":"api-2"}`))

	assert.Equal(t, 0, inv.all)
	assert.Equal(t, []string{"db-1", "api-2"}, inv.resources)
}

func TestHandleIgnoresUnknownAndMalformed(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewWatcher("ws://example/feed", inv, logger.StdLogger())

	w.handle([]byte(`{"type":"heartbeat"}`))
	w.handle([]byte(`{not json`))
	w.handle([]byte(`{"type":"resource_updated"}`)) // missing resource_id

	assert.Equal(t, 0, inv.all)
	assert.Empty(t, inv.resources)
}
