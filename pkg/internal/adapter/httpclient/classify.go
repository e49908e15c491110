package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/tensor"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"gonum.org/v1/gonum/mat"
)

// ErrNoEndpoint is returned when the client has no scoring URL.
var ErrNoEndpoint = errors.New("httpclient: model endpoint is required")

// StatusError reports a non-2xx reply from the model server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model server returned %d: %s", e.StatusCode, e.Body)
}

// Input is one tensor in the request body.
type Input struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// ScoreRequest is the body posted for one window.
type ScoreRequest struct {
	EEG       Input `json:"eeg"`
	HeartRate Input `json:"heart_rate"`
	EDA       Input `json:"eda"`
}

// ScoreResponse is the body expected back.
type ScoreResponse struct {
	Scores []float64 `json:"scores"`
}

type requestConfig struct {
	endpoint    string
	headers     map[string]string
	timeout     time.Duration
	maxRetries  int
	compression codec.Compression
	oauth       *OAuth2Config
	configErr   error
}

func (c *ModelClient) snapshotConfig() requestConfig {
	c.configLock.Lock()
	defer c.configLock.Unlock()
	cfg := requestConfig{
		endpoint:    c.endpoint,
		headers:     make(map[string]string, len(c.headers)),
		timeout:     c.timeout,
		maxRetries:  c.maxRetries,
		compression: c.compression,
		configErr:   c.configErr,
	}
	for k, v := range c.headers {
		cfg.headers[k] = v
	}
	if c.oauthConfig != nil {
		o := *c.oauthConfig
		cfg.oauth = &o
	}
	return cfg
}

func input(m *mat.Dense) Input {
	if m == nil {
		return Input{Shape: []int{1, 0, 0, 1}}
	}
	r, n := m.Dims()
	return Input{Shape: []int{1, r, n, 1}, Data: tensor.Flatten(m)}
}

// Classify posts the window and returns the server's scores.
func (c *ModelClient) Classify(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error) {
	cfg := c.snapshotConfig()
	if cfg.configErr != nil {
		return nil, cfg.configErr
	}
	if cfg.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	body, err := codec.NewJSONEncoder[ScoreRequest]().Marshal(ScoreRequest{
		EEG:       input(eeg),
		HeartRate: input(hr),
		EDA:       input(eda),
	})
	if err != nil {
		return nil, err
	}
	if body, err = codec.Compress(body, cfg.compression); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
				return nil, err
			}
		}
		scores, err := c.post(ctx, cfg, body)
		if err == nil {
			c.NotifyLoggers(types.DebugLevel, "Window scored",
				"component", c.componentMetadata, "event", "Classify", "result", "SUCCESS",
				"attempt", attempt+1, "classes", len(scores))
			return scores, nil
		}
		lastErr = err
		c.NotifyLoggers(types.WarnLevel, "Scoring request failed",
			"component", c.componentMetadata, "event", "Classify", "result", "FAILURE",
			"attempt", attempt+1, "error", err)
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *ModelClient) post(ctx context.Context, cfg requestConfig, body []byte) ([]float64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, cfg.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if enc := cfg.compression.ContentEncoding(); enc != "" {
		req.Header.Set("Content-Encoding", enc)
	}
	for k, v := range cfg.headers {
		req.Header.Set(k, v)
	}
	if cfg.oauth != nil {
		token, err := c.ensureToken(reqCtx, *cfg.oauth)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.configLock.Lock()
	cli := c.httpClient
	c.configLock.Unlock()

	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	out, err := codec.NewJSONDecoder[ScoreResponse]().Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return out.Scores, nil
}

// retryable reports whether another attempt may succeed: transport errors,
// 429 and 5xx replies.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}

func backoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	exp := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
	return exp/2 + time.Duration(rand.Int63n(int64(exp/2)+1))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
