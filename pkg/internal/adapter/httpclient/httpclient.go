// Package httpclient scores inference windows on a remote model server.
//
// The client posts the three tensors of a window as float32 arrays in the
// [1, C, T, 1] layout and expects a JSON body of the form {"scores": [...]}.
package httpclient

import (
	"net/http"
	"sync"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
)

// OAuth2Config holds client-credentials settings for the model server.
type OAuth2Config struct {
	ClientID string
	Secret   string
	TokenURL string
	Audience string
	Scopes   []string
}

type oauthToken struct {
	accessToken string
	expiresAt   time.Time
}

// ModelClient implements classifier.Classifier against an HTTP endpoint.
type ModelClient struct {
	componentMetadata types.ComponentMetadata

	configLock  sync.Mutex
	endpoint    string
	headers     map[string]string
	httpClient  *http.Client
	timeout     time.Duration
	maxRetries  int
	compression codec.Compression
	oauthConfig *OAuth2Config
	pinnedCert  []byte
	pinEnabled  bool
	configErr   error

	tokenLock sync.Mutex
	token     *oauthToken

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewModelClient builds a client posting to endpoint.
func NewModelClient(endpoint string, options ...types.Option[*ModelClient]) *ModelClient {
	c := &ModelClient{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "MODEL_CLIENT",
		},
		endpoint:    endpoint,
		headers:     make(map[string]string),
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		maxRetries:  DefaultMaxRetries,
		compression: codec.CompressNone,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GetComponentMetadata returns the client's metadata.
func (c *ModelClient) GetComponentMetadata() types.ComponentMetadata {
	return c.componentMetadata
}

// Endpoint returns the scoring URL.
func (c *ModelClient) Endpoint() string {
	c.configLock.Lock()
	defer c.configLock.Unlock()
	return c.endpoint
}

// Close releases idle connections.
func (c *ModelClient) Close() error {
	c.configLock.Lock()
	cli := c.httpClient
	c.configLock.Unlock()
	if cli != nil {
		cli.CloseIdleConnections()
	}
	return nil
}

// NotifyLoggers emits a log entry to all configured loggers.
func (c *ModelClient) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	c.loggersLock.Lock()
	loggers := append([]types.Logger(nil), c.loggers...)
	c.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
