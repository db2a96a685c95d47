package meldecho

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"

	"github.com/pthm/meld"
)

type counter struct {
	meld.Base
	Count int
}

func (c *counter) Add(n int) { c.Count += n }

func newTestDispatcher(t *testing.T) *meld.Dispatcher {
	t.Helper()
	reg := meld.NewRegistry()
	reg.Add("counter", func() meld.Component { return &counter{} })

	engine, err := meld.NewFileEngine(fstest.MapFS{
		"counter.html": &fstest.MapFile{Data: []byte(`<div>{{.count}}</div>`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return meld.NewDispatcher(reg, meld.NewRenderer(engine), meld.WithLogger(slog.New(slog.DiscardHandler)))
}

const addMessage = `{"id":"c1","componentName":"counter","data":{"count":1},"actionQueue":[{"type":"callMethod","payload":{"name":"add(1)"}}]}`

func TestMount(t *testing.T) {
	e := echo.New()
	if h := Mount(e, newTestDispatcher(t)); h == nil {
		t.Fatal("Mount returned nil handler")
	}

	req := httptest.NewRequest(http.MethodPost, "/meld/message", strings.NewReader(addMessage))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"count":2`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMountComponentRoute(t *testing.T) {
	e := echo.New()
	Mount(e, newTestDispatcher(t))

	req := httptest.NewRequest(http.MethodGet, "/meld/component/counter", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Meld.componentInit") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMountGroup(t *testing.T) {
	e := echo.New()
	var hit bool
	g := e.Group("/app", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hit = true
			return next(c)
		}
	})
	MountGroup(g, "/app", newTestDispatcher(t))

	req := httptest.NewRequest(http.MethodPost, "/app/meld/message", strings.NewReader(addMessage))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !hit {
		t.Error("group middleware did not run")
	}
}

func TestEchoPath(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"/meld/message", "/meld/message"},
		{"/meld/component/{name}", "/meld/component/:name"},
		{"/{a}/x/{b}", "/:a/x/:b"},
	}
	for _, tt := range tests {
		if got := echoPath(tt.in); got != tt.out {
			t.Errorf("echoPath(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestRender(t *testing.T) {
	e := echo.New()
	d := newTestDispatcher(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Render(c, d.Templ("counter")); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentType), "text/html") {
		t.Errorf("Content-Type = %q", rec.Header().Get(echo.HeaderContentType))
	}
	if !strings.Contains(rec.Body.String(), "meld:id=") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
