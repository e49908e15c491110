package websocketclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func wsTestURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http")
}

func TestWebSocketClientAdapter_Serve(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subject") != "Bob2" {
			http.Error(w, "missing header", http.StatusBadRequest)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Write(context.Background(), websocket.MessageBinary, []byte{1, 2, 3})
		_ = conn.Write(context.Background(), websocket.MessageText, []byte("tick"))
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	adapter := NewWebSocketClientAdapter(
		WithURL(wsTestURL(ts.URL)),
		WithHeader("X-Subject", "Bob2"),
		WithComponentMetadata("headset", "ws-1"),
	)

	var got [][]byte
	err := adapter.Serve(ctx, func(_ context.Context, frame []byte) error {
		got = append(got, append([]byte(nil), frame...))
		return nil
	})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(got) != 2 || string(got[1]) != "tick" || got[0][2] != 3 {
		t.Fatalf("unexpected frames %v", got)
	}
	if adapter.GetComponentMetadata().Name != "headset" {
		t.Fatalf("metadata not applied")
	}
}

func TestWebSocketClientAdapter_IdleTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_, _, _ = conn.Read(context.Background())
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	adapter := NewWebSocketClientAdapter(WithURL(wsTestURL(ts.URL)), WithIdleTimeout(50*time.Millisecond))
	err := adapter.Serve(ctx, func(context.Context, []byte) error { return nil })
	if !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("expected ErrIdleTimeout, got %v", err)
	}
}

func TestWebSocketClientAdapter_Send(t *testing.T) {
	received := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_, payload, err := conn.Read(context.Background())
		if err == nil {
			received <- string(payload)
		}
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	adapter := NewWebSocketClientAdapter(WithURL(wsTestURL(ts.URL)), WithWriteTimeout(time.Second))
	if err := adapter.Send(ctx, false, []byte("start")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-received:
		if got != "start" {
			t.Fatalf("unexpected payload %q", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for server")
	}
}

func TestWebSocketClientAdapter_NoURL(t *testing.T) {
	adapter := NewWebSocketClientAdapter()
	if err := adapter.Serve(context.Background(), func(context.Context, []byte) error { return nil }); err == nil {
		t.Fatalf("expected error without url")
	}
	if err := adapter.Serve(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil handler")
	}
}
