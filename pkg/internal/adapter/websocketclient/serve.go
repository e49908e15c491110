package websocketclient

import (
	"context"
	"errors"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"nhooyr.io/websocket"
)

// Serve dials the endpoint and delivers every frame to handle until the peer
// closes normally, ctx ends, or a read fails. A handler error is logged and
// the loop continues.
func (c *WebSocketClientAdapter) Serve(ctx context.Context, handle FrameHandler) error {
	if handle == nil {
		return errors.New("frame handler cannot be nil")
	}

	cfg := c.snapshotConfig()
	conn, err := c.dial(ctx, cfg)
	if err != nil {
		c.NotifyLoggers(types.WarnLevel, "WebSocket dial failed",
			"component", c.GetComponentMetadata(), "event", "Dial", "result", "FAILURE", "url", cfg.url, "error", err)
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "client shutdown")

	c.NotifyLoggers(types.InfoLevel, "WebSocket connected",
		"component", c.GetComponentMetadata(), "event", "Dial", "result", "SUCCESS", "url", cfg.url)
	defer c.NotifyLoggers(types.InfoLevel, "WebSocket disconnected",
		"component", c.GetComponentMetadata(), "event", "Disconnect")

	return c.readLoop(ctx, cfg, conn, handle)
}

// Send dials, writes one binary or text frame, and closes. Used for control
// messages to endpoints that do not keep a session.
func (c *WebSocketClientAdapter) Send(ctx context.Context, binary bool, payload []byte) error {
	cfg := c.snapshotConfig()
	conn, err := c.dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "sent")

	writeCtx := ctx
	if cfg.writeTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, cfg.writeTimeout)
		defer cancel()
	}
	typ := websocket.MessageText
	if binary {
		typ = websocket.MessageBinary
	}
	return conn.Write(writeCtx, typ, payload)
}

func (c *WebSocketClientAdapter) readLoop(ctx context.Context, cfg clientConfig, conn *websocket.Conn, handle FrameHandler) error {
	for {
		readCtx := ctx
		var cancel context.CancelFunc
		if cfg.idleTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, cfg.idleTimeout)
		}
		_, payload, err := conn.Read(readCtx)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return ErrIdleTimeout
			}
			return c.handleReadError(err)
		}

		if err := handle(ctx, payload); err != nil {
			c.NotifyLoggers(types.WarnLevel, "Frame handler error",
				"component", c.GetComponentMetadata(), "event", "Read", "error", err)
		}
	}
}

// ErrIdleTimeout is returned by Serve when no frame arrived within the idle timeout.
var ErrIdleTimeout = errors.New("websocket: idle timeout")

func (c *WebSocketClientAdapter) handleReadError(err error) error {
	if err == nil {
		return nil
	}
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
