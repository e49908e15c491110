package websocketclient

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers to the client.
func WithLogger(loggers ...types.Logger) types.Option[*WebSocketClientAdapter] {
	return func(c *WebSocketClientAdapter) { c.ConnectLogger(loggers...) }
}

// WithURL sets the WebSocket URL.
func WithURL(url string) types.Option[*WebSocketClientAdapter] {
	return func(c *WebSocketClientAdapter) { c.SetURL(url) }
}

// WithHeader adds a single header.
func WithHeader(key, value string) types.Option[*WebSocketClientAdapter] {
	return func(c *WebSocketClientAdapter) { c.AddHeader(key, value) }
}

// WithReadLimit sets the max inbound message size.
func WithReadLimit(limit int64) types.Option[*WebSocketClientAdapter] {
	return func(c *WebSocketClientAdapter) { c.SetReadLimit(limit) }
}

// WithWriteTimeout sets the write timeout.
func WithWriteTimeout(timeout time.Duration) types.Option[*WebSocketClientAdapter] {
	return func(c *WebSocketClientAdapter) { c.SetWriteTimeout(timeout) }
}

// WithIdleTimeout sets the read idle timeout.
func WithIdleTimeout(timeout time.Duration) types.Option[*WebSocketClientAdapter] {
	return func(c *WebSocketClientAdapter) { c.SetIdleTimeout(timeout) }
}

// WithComponentMetadata sets the adapter's name and id.
func WithComponentMetadata(name, id string) types.Option[*WebSocketClientAdapter] {
	return func(c *WebSocketClientAdapter) { c.SetComponentMetadata(name, id) }
}
