package websocketclient

import "github.com/joeydtaylor/foodback/pkg/internal/types"

// NotifyLoggers emits a log entry to all configured loggers.
func (c *WebSocketClientAdapter) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	c.loggersLock.Lock()
	loggers := append([]types.Logger(nil), c.loggers...)
	c.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
