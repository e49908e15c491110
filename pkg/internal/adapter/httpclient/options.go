package httpclient

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		c.loggersLock.Lock()
		c.loggers = append(c.loggers, loggers...)
		c.loggersLock.Unlock()
	}
}

// WithComponentMetadata sets the name and, when non-empty, the ID.
func WithComponentMetadata(name, id string) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		c.componentMetadata.Name = name
		if id != "" {
			c.componentMetadata.ID = id
		}
	}
}

// WithHeader adds a request header. Values containing CR or LF are rejected.
func WithHeader(key, value string) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		if strings.ContainsAny(key, "\r\n") || strings.ContainsAny(value, "\r\n") {
			c.configErr = fmt.Errorf("httpclient: header %q contains a line break", key)
			return
		}
		c.headers[key] = value
	}
}

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithCompression compresses request bodies with the named codec.
func WithCompression(name string) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		comp, err := codec.ParseCompression(name)
		if err != nil {
			c.configErr = err
			return
		}
		c.compression = comp
	}
}

// WithOAuth2 authenticates requests with a client-credentials token.
func WithOAuth2(cfg OAuth2Config) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		c.oauthConfig = &cfg
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(cli *http.Client) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		if cli != nil {
			c.httpClient = cli
		}
	}
}

// WithTLSPinnedCertificate only trusts servers whose chain contains the PEM certificate at path.
func WithTLSPinnedCertificate(path string) types.Option[*ModelClient] {
	return func(c *ModelClient) {
		der, err := loadCertificate(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.pinTo(der)
	}
}
