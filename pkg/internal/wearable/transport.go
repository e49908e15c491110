package wearable

import (
	"context"
	"errors"
	"sync"
)

// Transport moves opaque payloads between the phone side and the wearable
// along named endpoint paths.
type Transport interface {
	Publish(ctx context.Context, path string, payload []byte) error
	Subscribe(path string, handler func(payload []byte)) error
	Reachable(ctx context.Context) (int, error)
	Close() error
}

// ErrUnreachable is returned by Loopback when the peer end is disconnected or closed.
var ErrUnreachable = errors.New("wearable: peer unreachable")

// Loopback is one end of an in-memory point-to-point transport. Publishing on
// one end invokes the handlers subscribed on the other.
type Loopback struct {
	mu        sync.Mutex
	peer      *Loopback
	handlers  map[string][]func([]byte)
	connected bool
	closed    bool
}

// NewLoopbackPair returns two connected ends.
func NewLoopbackPair() (phone *Loopback, watch *Loopback) {
	phone = &Loopback{handlers: make(map[string][]func([]byte)), connected: true}
	watch = &Loopback{handlers: make(map[string][]func([]byte)), connected: true}
	phone.peer, watch.peer = watch, phone
	return phone, watch
}

// SetConnected simulates the peer going out of range and coming back.
func (l *Loopback) SetConnected(connected bool) {
	l.mu.Lock()
	l.connected = connected
	l.mu.Unlock()
}

func (l *Loopback) up() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected && !l.closed
}

// Publish delivers payload synchronously to the peer's handlers for path.
func (l *Loopback) Publish(ctx context.Context, path string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.up() || !l.peer.up() {
		return ErrUnreachable
	}
	l.peer.mu.Lock()
	handlers := append([](func([]byte))(nil), l.peer.handlers[path]...)
	l.peer.mu.Unlock()

	for _, h := range handlers {
		h(append([]byte(nil), payload...))
	}
	return nil
}

// Subscribe registers handler for messages arriving on path.
func (l *Loopback) Subscribe(path string, handler func(payload []byte)) error {
	if handler == nil {
		return errors.New("wearable: nil handler")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrUnreachable
	}
	l.handlers[path] = append(l.handlers[path], handler)
	return nil
}

// Reachable reports one node while both ends are up.
func (l *Loopback) Reachable(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if l.up() && l.peer.up() {
		return 1, nil
	}
	return 0, nil
}

// Close detaches this end. Safe to call more than once.
func (l *Loopback) Close() error {
	l.mu.Lock()
	l.closed = true
	l.handlers = make(map[string][]func([]byte))
	l.mu.Unlock()
	return nil
}
