// Package websocketclient dials a WebSocket endpoint and hands every inbound
// frame to a callback. It is the transport under the EEG headset link.
package websocketclient

import (
	"context"
	"sync"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

// FrameHandler receives the raw payload of one WebSocket message.
type FrameHandler func(ctx context.Context, frame []byte) error

// WebSocketClientAdapter connects to a WebSocket endpoint and streams frames in.
type WebSocketClientAdapter struct {
	componentMetadata types.ComponentMetadata

	configLock   sync.Mutex
	url          string
	headers      map[string]string
	readLimit    int64
	writeTimeout time.Duration
	idleTimeout  time.Duration

	loggersLock sync.Mutex
	loggers     []types.Logger
}

// NewWebSocketClientAdapter constructs a WebSocket client adapter with defaults.
func NewWebSocketClientAdapter(options ...types.Option[*WebSocketClientAdapter]) *WebSocketClientAdapter {
	client := &WebSocketClientAdapter{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "WEBSOCKET_CLIENT",
		},
		headers:      make(map[string]string),
		readLimit:    1 << 20,
		writeTimeout: 5 * time.Second,
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(client)
	}

	return client
}

// GetComponentMetadata returns the adapter's metadata.
func (c *WebSocketClientAdapter) GetComponentMetadata() types.ComponentMetadata {
	c.configLock.Lock()
	defer c.configLock.Unlock()
	return c.componentMetadata
}

// URL returns the configured endpoint.
func (c *WebSocketClientAdapter) URL() string {
	return c.snapshotConfig().url
}
