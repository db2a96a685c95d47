package main

import (
	"embed"
	"flag"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm/meld"
	"github.com/pthm/meld/example/components"
	"github.com/pthm/meld/lib/config"
	"github.com/pthm/meld/lib/transport"
)

//go:embed templates
var templateFiles embed.FS

func main() {
	configPath := flag.String("config", "", "path to meld.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.Logger(os.Stderr)

	components.UseStore(NewStore())
	reg := meld.NewRegistry()
	if err := components.Register(reg); err != nil {
		log.Fatal(err)
	}

	componentFS, err := fs.Sub(templateFiles, "templates/components")
	if err != nil {
		log.Fatal(err)
	}
	engine, err := meld.NewFileEngine(componentFS, meld.WithExtension(cfg.Templates.Ext))
	if err != nil {
		log.Fatal(err)
	}
	if err := reg.Check(engine, nil); err != nil {
		log.Fatal(err)
	}

	opts := []meld.Option{meld.WithLogger(logger)}
	if cfg.Snapshot.Secret != "" {
		signer, err := meld.NewSigner([]byte(cfg.Snapshot.Secret))
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, meld.WithSigner(signer))
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector())
		opts = append(opts, meld.WithMetrics(meld.NewMetrics(
			meld.WithNamespace(cfg.Metrics.Namespace),
			meld.WithRegistry(promReg),
		)))
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	}

	d := meld.NewDispatcher(reg, meld.NewRenderer(engine), opts...)

	h := transport.New(d,
		transport.WithLogger(logger),
		transport.WithMessagePath(cfg.Server.MessagePath),
		transport.WithSocketPath(cfg.Server.SocketPath),
		transport.WithMaxMessageBytes(cfg.Server.MaxMessageBytes),
	)
	for _, route := range h.Routes() {
		r.Handle(route, h)
	}

	page := template.Must(template.New("page.html").Funcs(d.FuncMap()).ParseFS(templateFiles, "templates/page.html"))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := page.Execute(w, map[string]string{
			"MessagePath": cfg.Server.MessagePath,
			"SocketPath":  cfg.Server.SocketPath,
		})
		if err != nil {
			logger.Error("render page", "error", err)
		}
	})

	logger.Info("listening", "addr", cfg.Server.Addr, "components", reg.Names())
	if err := http.ListenAndServe(cfg.Server.Addr, r); err != nil {
		log.Fatal(err)
	}
}
