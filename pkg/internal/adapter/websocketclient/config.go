package websocketclient

import (
	"strings"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

type clientConfig struct {
	url          string
	headers      map[string]string
	readLimit    int64
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

func (c *WebSocketClientAdapter) snapshotConfig() clientConfig {
	c.configLock.Lock()
	defer c.configLock.Unlock()
	headers := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		headers[k] = v
	}
	return clientConfig{
		url:          c.url,
		headers:      headers,
		readLimit:    c.readLimit,
		writeTimeout: c.writeTimeout,
		idleTimeout:  c.idleTimeout,
	}
}

// SetURL sets the WebSocket endpoint URL.
func (c *WebSocketClientAdapter) SetURL(url string) {
	c.configLock.Lock()
	c.url = strings.TrimSpace(url)
	c.configLock.Unlock()
}

// AddHeader adds a single request header.
func (c *WebSocketClientAdapter) AddHeader(key, value string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	c.configLock.Lock()
	c.headers[key] = value
	c.configLock.Unlock()
}

// SetReadLimit sets the maximum inbound message size.
func (c *WebSocketClientAdapter) SetReadLimit(limit int64) {
	c.configLock.Lock()
	if limit > 0 {
		c.readLimit = limit
	}
	c.configLock.Unlock()
}

// SetWriteTimeout sets the timeout for writes.
func (c *WebSocketClientAdapter) SetWriteTimeout(timeout time.Duration) {
	c.configLock.Lock()
	if timeout > 0 {
		c.writeTimeout = timeout
	}
	c.configLock.Unlock()
}

// SetIdleTimeout sets the maximum idle duration for reads. Zero disables it.
func (c *WebSocketClientAdapter) SetIdleTimeout(timeout time.Duration) {
	c.configLock.Lock()
	c.idleTimeout = timeout
	c.configLock.Unlock()
}

// SetComponentMetadata sets the adapter's name and id.
func (c *WebSocketClientAdapter) SetComponentMetadata(name, id string) {
	c.configLock.Lock()
	c.componentMetadata = types.ComponentMetadata{Name: name, ID: id, Type: c.componentMetadata.Type}
	c.configLock.Unlock()
}

// ConnectLogger attaches loggers.
func (c *WebSocketClientAdapter) ConnectLogger(loggers ...types.Logger) {
	c.loggersLock.Lock()
	c.loggers = append(c.loggers, loggers...)
	c.loggersLock.Unlock()
}
