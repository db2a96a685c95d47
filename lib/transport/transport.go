// Package transport serves a meld dispatcher over HTTP and WebSocket.
//
// Routes (paths configurable):
//
//	POST /meld/message         one message per request, JSON or MessagePack
//	GET  /meld/socket          websocket, text frames JSON, binary frames MessagePack
//	GET  /meld/component/{name} initial render of a fresh component
//
// The handler is a chi router, so it can be mounted into any net/http
// application or wrapped by a framework adapter.
package transport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pthm/meld"
	"github.com/pthm/meld/lib/encoding"
)

// Defaults for Handler options.
const (
	DefaultMessagePath     = "/meld/message"
	DefaultSocketPath      = "/meld/socket"
	DefaultComponentPath   = "/meld/component/{name}"
	DefaultMaxMessageBytes = 1 << 20

	writeWait = 10 * time.Second
)

// Handler exposes a dispatcher over HTTP and WebSocket.
type Handler struct {
	dispatcher *meld.Dispatcher
	logger     *slog.Logger
	router     chi.Router
	upgrader   websocket.Upgrader

	messagePath   string
	socketPath    string
	componentPath string
	maxBytes      int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithMessagePath sets the POST endpoint path.
func WithMessagePath(path string) Option {
	return func(h *Handler) { h.messagePath = path }
}

// WithSocketPath sets the websocket endpoint path.
func WithSocketPath(path string) Option {
	return func(h *Handler) { h.socketPath = path }
}

// WithComponentPath sets the initial render path. It must contain a {name}
// parameter.
func WithComponentPath(path string) Option {
	return func(h *Handler) { h.componentPath = path }
}

// WithMaxMessageBytes limits the size of one message.
func WithMaxMessageBytes(n int64) Option {
	return func(h *Handler) { h.maxBytes = n }
}

// WithCheckOrigin sets the websocket origin check. The gorilla default
// rejects cross-origin upgrades.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Handler) { h.upgrader.CheckOrigin = fn }
}

// New creates a handler for d.
func New(d *meld.Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		dispatcher:    d,
		logger:        slog.Default(),
		messagePath:   DefaultMessagePath,
		socketPath:    DefaultSocketPath,
		componentPath: DefaultComponentPath,
		maxBytes:      DefaultMaxMessageBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Post(h.messagePath, h.handleMessage)
	r.Get(h.socketPath, h.handleSocket)
	r.Get(h.componentPath, h.handleComponent)
	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Routes returns the registered route patterns.
func (h *Handler) Routes() []string {
	return []string{h.messagePath, h.socketPath, h.componentPath}
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	codec := encoding.ForContentType(r.Header.Get("Content-Type"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, codec, http.StatusRequestEntityTooLarge, "", err)
			return
		}
		h.writeError(w, codec, http.StatusBadRequest, "", err)
		return
	}

	msg, err := meld.DecodeMessage(codec, body)
	if err != nil {
		h.writeError(w, codec, http.StatusBadRequest, "", err)
		return
	}

	resp, err := h.dispatcher.Process(r.Context(), msg)
	if err != nil {
		h.logger.Error("message failed",
			"component", msg.ComponentName,
			"id", msg.ID,
			"error", err)
		h.writeError(w, codec, StatusFor(err), msg.ID, err)
		return
	}
	h.write(w, codec, http.StatusOK, resp)
}

func (h *Handler) handleComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	resp, err := h.dispatcher.Mount(r.Context(), name)
	if err != nil {
		h.logger.Error("mount failed", "component", name, "error", err)
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, resp.DOM)
}

func (h *Handler) write(w http.ResponseWriter, codec encoding.Codec, status int, v any) {
	data, err := codec.Marshal(v)
	if err != nil {
		h.logger.Error("encode response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", codec.ContentType())
	w.WriteHeader(status)
	w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, codec encoding.Codec, status int, id string, err error) {
	h.write(w, codec, status, meld.ErrorResponse{ID: id, Error: err.Error()})
}

// StatusFor maps a dispatcher error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case meld.IsNotFound(err):
		return http.StatusNotFound
	case meld.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
