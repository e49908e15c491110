package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func window() (*mat.Dense, *mat.Dense, *mat.Dense) {
	eeg := mat.NewDense(6, 4, nil)
	for r := 0; r < 6; r++ {
		for c := 0; c < 4; c++ {
			eeg.Set(r, c, float64(r*10+c))
		}
	}
	hr := mat.NewDense(1, 3, []float64{60, 61, 62})
	eda := mat.NewDense(1, 3, []float64{0.1, 0.2, 0.3})
	return eeg, hr, eda
}

func TestClassifyPostsTensors(t *testing.T) {
	var got ScoreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "v1", r.Header.Get("X-Model-Version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"scores":[0.1,0.6,0.1,0.1,0.1]}`))
	}))
	defer srv.Close()

	c := NewModelClient(srv.URL, WithHeader("X-Model-Version", "v1"))
	eeg, hr, eda := window()
	scores, err := c.Classify(context.Background(), eeg, hr, eda)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.6, 0.1, 0.1, 0.1}, scores)

	assert.Equal(t, []int{1, 6, 4, 1}, got.EEG.Shape)
	assert.Equal(t, []int{1, 1, 3, 1}, got.HeartRate.Shape)
	require.Len(t, got.EEG.Data, 24)
	// channel-major: channel 1 starts right after channel 0's four samples
	assert.Equal(t, float32(10), got.EEG.Data[4])
	assert.Equal(t, float32(0.3), got.EDA.Data[2])
}

func TestClassifyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"scores":[1,0,0,0,0]}`))
	}))
	defer srv.Close()

	eeg, hr, eda := window()
	scores, err := NewModelClient(srv.URL, WithMaxRetries(2)).Classify(context.Background(), eeg, hr, eda)
	require.NoError(t, err)
	assert.Len(t, scores, 5)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClassifyDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad shape", http.StatusBadRequest)
	}))
	defer srv.Close()

	eeg, hr, eda := window()
	_, err := NewModelClient(srv.URL, WithMaxRetries(3)).Classify(context.Background(), eeg, hr, eda)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "bad shape")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassifyCompressesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		raw, _ := io.ReadAll(r.Body)
		plain, err := codec.Decompress(raw, codec.CompressGzip)
		assert.NoError(t, err)
		var req ScoreRequest
		assert.NoError(t, json.Unmarshal(plain, &req))
		_, _ = w.Write([]byte(`{"scores":[0,0,1,0,0]}`))
	}))
	defer srv.Close()

	eeg, hr, eda := window()
	scores, err := NewModelClient(srv.URL, WithCompression("gzip")).Classify(context.Background(), eeg, hr, eda)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scores[2])
}

func TestClassifyUsesOAuthToken(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":3600}`))
	})
	mux.HandleFunc("/score", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"scores":[0,1,0,0,0]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewModelClient(srv.URL+"/score", WithOAuth2(OAuth2Config{ClientID: "id", Secret: "s", TokenURL: srv.URL + "/token"}))
	eeg, hr, eda := window()
	for i := 0; i < 2; i++ {
		_, err := c.Classify(context.Background(), eeg, hr, eda)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestConfigErrors(t *testing.T) {
	eeg, hr, eda := window()
	_, err := NewModelClient("").Classify(context.Background(), eeg, hr, eda)
	assert.ErrorIs(t, err, ErrNoEndpoint)

	_, err = NewModelClient("http://x", WithHeader("X-Bad", "a\r\nb")).Classify(context.Background(), eeg, hr, eda)
	assert.Error(t, err)

	_, err = NewModelClient("http://x", WithCompression("rar")).Classify(context.Background(), eeg, hr, eda)
	assert.Error(t, err)

	_, err = NewModelClient("http://x", WithTLSPinnedCertificate("/does/not/exist.pem")).Classify(context.Background(), eeg, hr, eda)
	assert.Error(t, err)
}
