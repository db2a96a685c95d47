package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/meld"
	"github.com/pthm/meld/lib/encoding"
)

type counter struct {
	meld.Base
	Count int
}

func (c *counter) Add(n int) { c.Count += n }

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	reg := meld.NewRegistry()
	reg.Add("counter", func() meld.Component { return &counter{} })

	engine, err := meld.NewFileEngine(fstest.MapFS{
		"counter.html": &fstest.MapFile{Data: []byte(`<div class="counter">{{.count}}</div>`)},
	})
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	d := meld.NewDispatcher(reg, meld.NewRenderer(engine), meld.WithLogger(logger))
	return New(d, append([]Option{WithLogger(logger)}, opts...)...)
}

func postMessage(t *testing.T, h http.Handler, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, DefaultMessagePath, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleMessageJSON(t *testing.T) {
	h := newTestHandler(t)

	rec := postMessage(t, h, "application/json", []byte(`{
		"id": "c1",
		"componentName": "counter",
		"data": {"count": 1},
		"actionQueue": [{"type": "callMethod", "payload": {"name": "add(2)"}}]
	}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp meld.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "c1", resp.ID)
	assert.Contains(t, resp.DOM, `meld:id="c1"`)
	count, ok := resp.Data.Get("count")
	require.True(t, ok)
	assert.EqualValues(t, 3, count)
}

func TestHandleMessageMsgpack(t *testing.T) {
	h := newTestHandler(t)

	body, err := encoding.Msgpack.Marshal(meld.NewTestMessage("counter").
		WithID("c1").
		Call("add", 5).
		Message())
	require.NoError(t, err)

	rec := postMessage(t, h, "application/msgpack", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var resp meld.Response
	require.NoError(t, encoding.Msgpack.Unmarshal(rec.Body.Bytes(), &resp))
	count, _ := resp.Data.Get("count")
	assert.EqualValues(t, 5, count)
}

func TestHandleMessageErrors(t *testing.T) {
	h := newTestHandler(t, WithMaxMessageBytes(256))

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"malformed", `{"id":`, http.StatusBadRequest, "invalid message format"},
		{"missing component name", `{"id":"c1"}`, http.StatusBadRequest, "invalid message"},
		{"unknown component", `{"componentName":"nope"}`, http.StatusNotFound, "component not found"},
		{"too large", `{"componentName":"` + strings.Repeat("x", 300) + `"}`, http.StatusRequestEntityTooLarge, "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postMessage(t, h, "application/json", []byte(tt.body))
			assert.Equal(t, tt.status, rec.Code)

			var resp meld.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.errMsg)
		})
	}
}

func TestHandleMessageMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, DefaultMessagePath, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleComponent(t *testing.T) {
	h := newTestHandler(t, WithComponentPath("/c/{name}"))

	req := httptest.NewRequest(http.MethodGet, "/c/counter", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `class="counter"`)
	assert.Contains(t, rec.Body.String(), "Meld.componentInit")

	req = httptest.NewRequest(http.MethodGet, "/c/missing", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{meld.ErrComponentNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", meld.ErrTemplateNotFound), http.StatusNotFound},
		{meld.ErrInvalidMessage, http.StatusBadRequest},
		{meld.ErrSignatureInvalid, http.StatusBadRequest},
		{meld.ErrActionFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.err), "StatusFor(%v)", tt.err)
	}
}

func TestRoutes(t *testing.T) {
	h := newTestHandler(t, WithMessagePath("/m"), WithSocketPath("/ws"))
	assert.Equal(t, []string{"/m", "/ws", DefaultComponentPath}, h.Routes())
}

func dialSocket(t *testing.T, h http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + DefaultSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSocketTextFrames(t *testing.T) {
	conn := dialSocket(t, newTestHandler(t))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"c1","componentName":"counter","data":{"count":1},"actionQueue":[{"type":"callMethod","payload":{"name":"add(1)"}}]}`)))

	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)

	var resp meld.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	count, _ := resp.Data.Get("count")
	assert.EqualValues(t, 2, count)
}

func TestSocketBinaryFrames(t *testing.T) {
	conn := dialSocket(t, newTestHandler(t))

	body, err := encoding.Msgpack.Marshal(meld.NewTestMessage("counter").WithID("c9").Call("add", 4).Message())
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, body))

	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)

	var resp meld.Response
	require.NoError(t, encoding.Msgpack.Unmarshal(data, &resp))
	assert.Equal(t, "c9", resp.ID)
	count, _ := resp.Data.Get("count")
	assert.EqualValues(t, 4, count)
}

func TestSocketErrorFrameKeepsConnection(t *testing.T) {
	conn := dialSocket(t, newTestHandler(t))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"x","componentName":"nope"}`)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var errResp meld.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &errResp))
	assert.Equal(t, "x", errResp.ID)
	assert.Contains(t, errResp.Error, "component not found")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"componentName":"counter"}`)))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dom"`)
}
