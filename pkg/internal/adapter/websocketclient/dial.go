package websocketclient

import (
	"context"
	"errors"
	"net/http"

	"nhooyr.io/websocket"
)

func (c *WebSocketClientAdapter) dial(ctx context.Context, cfg clientConfig) (*websocket.Conn, error) {
	if cfg.url == "" {
		return nil, errors.New("url not configured")
	}

	hdr := http.Header{}
	for k, v := range cfg.headers {
		hdr.Add(k, v)
	}

	conn, resp, err := websocket.Dial(ctx, cfg.url, &websocket.DialOptions{HTTPHeader: hdr})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	if cfg.readLimit > 0 {
		conn.SetReadLimit(cfg.readLimit)
	}
	return conn, nil
}
