package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu       sync.Mutex
	snap     types.ProtocolSnapshot
	subject  string
	rating   string
	subjErr  error
	startErr error
	rateErr  error
	subErr   error
	submits  int
}

func (c *fakeController) Snapshot() types.ProtocolSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *fakeController) SetSubject(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subjErr != nil {
		return c.subjErr
	}
	c.subject = name
	c.snap.Subject = name
	return nil
}

func (c *fakeController) Start(context.Context) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.mu.Lock()
	c.snap.Stage = types.StagePreparation
	c.mu.Unlock()
	return nil
}

func (c *fakeController) SetRating(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rating = text
	return c.rateErr
}

func (c *fakeController) SubmitRating(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	return c.subErr
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSnapshotAndHealth(t *testing.T) {
	ctrl := &fakeController{snap: types.ProtocolSnapshot{
		Stage:        types.StageAskingRating,
		Flow:         types.FlowCollection,
		Connectivity: types.ConnectivityState{EEGConnected: true, WatchConnected: true},
	}}
	h := NewControlServer(ctrl, WithHeader("X-Service", "foodback")).Handler()

	rec := do(t, h, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "foodback", rec.Header().Get("X-Service"))
	var got snapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ASKING_RATING", got.Stage)
	assert.Equal(t, "collection", got.Flow)

	rec = do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":true`)
}

func TestSubjectAndStart(t *testing.T) {
	ctrl := &fakeController{}
	h := NewControlServer(ctrl).Handler()

	rec := do(t, h, http.MethodPut, "/session/subject", `{"subject":"SteveRogers"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SteveRogers", ctrl.subject)

	rec = do(t, h, http.MethodPut, "/session/subject", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/session/start", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "PREPARATION")

	rec = do(t, h, http.MethodGet, "/session/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSubjectRejectedWhileSaving(t *testing.T) {
	ctrl := &fakeController{subjErr: types.NewError(types.KindValidation, "SetSubject", errors.New("submit in progress"))}
	rec := do(t, NewControlServer(ctrl).Handler(), http.MethodPut, "/session/subject", `{"subject":"TonyStark"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, ctrl.subject)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", types.NewError(types.KindValidation, "Start", errors.New("bad subject")), http.StatusConflict},
		{"connectivity", types.NewError(types.KindConnectivity, "Start", nil), http.StatusServiceUnavailable},
		{"empty", types.NewError(types.KindEmptyBuffer, "Submit", nil), http.StatusUnprocessableEntity},
		{"persistence", types.NewError(types.KindPersistence, "Submit", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &fakeController{startErr: tc.err}
			rec := do(t, NewControlServer(ctrl).Handler(), http.MethodPost, "/session/start", "")
			assert.Equal(t, tc.want, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, types.KindOf(tc.err), body.Kind)
		})
	}
}

func TestRatingAcceptsStringOrNumber(t *testing.T) {
	ctrl := &fakeController{}
	h := NewControlServer(ctrl).Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/session/rating", `{"rating":"3"}`).Code)
	assert.Equal(t, "3", ctrl.rating)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/session/rating", `{"rating":2}`).Code)
	assert.Equal(t, "2", ctrl.rating)

	ctrl.rateErr = types.NewError(types.KindValidation, "SetRating", errors.New("out of range"))
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPut, "/session/rating", `{"rating":"9"}`).Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/session/submit", "").Code)
	assert.Equal(t, 1, ctrl.submits)
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := NewControlServer(&fakeController{}, WithAddress("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled) || err == nil, "unexpected error %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.True(t, strings.HasPrefix(srv.Address(), "127.0.0.1"))
}
