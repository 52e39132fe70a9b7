// Package server provides rest-like api and the web console, serves static assets as well
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/toolkit/app/page"
	"github.com/umputun/toolkit/app/store"
	"github.com/umputun/toolkit/app/tools"
	"github.com/umputun/toolkit/app/transform"
	"github.com/umputun/toolkit/app/validator"
	"github.com/umputun/toolkit/ui"
)

//go:generate moq -out journal_mock.go -fmt goimports . Journal

const maxBodySize = 1024 * 1024

// Config is a configuration for the server
type Config struct {
	Listen               string
	Protocol             string
	AuthHash             string  // bcrypt hash of the password, enables basic auth if set
	Limit                float64 // api requests per second per client
	IPSalt               string  // secret for client ip hashing in logs
	ProxySecurityHeaders bool    // security headers are set by the proxy
	Version              string
}

// Catalog is a read-only tool catalog
type Catalog interface {
	Lookup(id string) (tools.Descriptor, error)
	All() []tools.Descriptor
	Categories() []tools.Category
	ByCategory(c tools.Category) []tools.Descriptor
}

// Journal records submissions and reports aggregates
type Journal interface {
	Add(ctx context.Context, rec store.Record) error
	Stats(ctx context.Context) (store.Stats, error)
}

// Server is a rest and web server for the tool console
type Server struct {
	cfg           Config
	catalog       Catalog
	engine        *validator.Engine
	remote        page.Transformer
	journal       Journal
	templateCache map[string]*template.Template
}

// New creates a new server with template cache
func New(cfg Config, catalog Catalog, remote page.Transformer, journal Journal) (Server, error) {
	cache, err := newTemplateCache()
	if err != nil {
		return Server{}, fmt.Errorf("can't create template cache: %w", err)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	return Server{
		cfg:           cfg,
		catalog:       catalog,
		engine:        validator.NewEngine(catalog),
		remote:        remote,
		journal:       journal,
		templateCache: cache,
	}, nil
}

// Run the listener and request's router, activate rest server
func (s Server) Run(ctx context.Context) error {
	log.Printf("[INFO] activate rest server on %s", s.cfg.Listen)

	httpServer := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] failed to shutdown http server, %v", err)
		}
	}()

	err := httpServer.ListenAndServe()
	log.Printf("[WARN] http server terminated, %s", err)
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(rest.RealIP, rest.Recoverer(log.Default()), rest.Throttle(1000), Timeout(60*time.Second))
	router.Use(rest.AppInfo("toolkit", "umputun", s.cfg.Version), rest.Ping, rest.SizeLimit(maxBodySize))
	router.Use(HashedIP(s.cfg.IPSalt), Logger(log.Default()), StripSlashes)
	if !s.cfg.ProxySecurityHeaders {
		router.Use(SecurityHeaders(s.cfg.Protocol))
	}

	router.HandleFunc("GET /robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /api/\nDisallow: /web/\n"))
	})

	staticFS, err := fs.Sub(ui.Files, "static")
	if err != nil {
		log.Fatalf("[ERROR] can't create static file system, %v", err)
	}
	router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	lmt := tollbooth.NewLimiter(s.cfg.Limit, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(tollbooth.HTTPMiddleware(lmt))
		if s.cfg.AuthHash != "" {
			api.Use(s.basicAuth)
		}
		api.HandleFunc("GET /tools", s.toolsCtrl)
		api.HandleFunc("POST /validate", s.validateCtrl)
		api.HandleFunc("POST /transform", s.transformCtrl)
		api.HandleFunc("POST /generate", s.generateCtrl)
		api.HandleFunc("GET /stats", s.statsCtrl)
	})

	router.Group().Route(func(web *routegroup.Bundle) {
		if s.cfg.AuthHash != "" {
			web.Use(s.basicAuth)
		}
		web.HandleFunc("GET /{$}", s.indexCtrl)
		web.HandleFunc("POST /web/input", s.inputCtrl)
		web.HandleFunc("POST /web/secret", s.secretCtrl)
		web.HandleFunc("POST /web/process", s.processCtrl)
		web.HandleFunc("POST /web/generate", s.generatePageCtrl)
		web.HandleFunc("POST /web/clear", s.clearCtrl)
		web.HandleFunc("POST /web/swap", s.swapCtrl)
	})

	router.NotFoundHandler(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			renderJSON(w, http.StatusNotFound, rest.JSON{"detail": "not found"})
			return
		}
		s.render(w, http.StatusNotFound, "404.tmpl.html", baseTmpl, nil)
	})

	return router
}

type apiRequest struct {
	Tool       string `json:"tool"`
	Direction  string `json:"direction"`
	Text       string `json:"text"`
	Secret     string `json:"secret"`
	Mode       string `json:"mode"`
	Paragraphs int    `json:"paragraphs"`
	UseLorem   bool   `json:"use_lorem"`
	Characters int    `json:"characters"`
}

const (
	modeStrict      = "strict"
	modeLightweight = "lightweight"
	modeSecret      = "secret"
)

// GET /api/v1/tools
func (s Server) toolsCtrl(w http.ResponseWriter, _ *http.Request) {
	type category struct {
		ID    tools.Category     `json:"id"`
		Title string             `json:"title"`
		Tools []tools.Descriptor `json:"tools"`
	}
	res := []category{}
	for _, c := range s.catalog.Categories() {
		res = append(res, category{ID: c, Title: c.Title(), Tools: s.catalog.ByCategory(c)})
	}
	rest.RenderJSON(w, rest.JSON{"categories": res})
}

// POST /api/v1/validate, runs one validation pass and returns its diagnostic or null
func (s Server) validateCtrl(w http.ResponseWriter, r *http.Request) {
	req, desc, dir, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.Mode == "" {
		req.Mode = modeStrict
	}
	form := validator.Validator{}
	form.CheckField(validator.PermittedValue(req.Mode, modeStrict, modeLightweight, modeSecret), "mode",
		"mode must be strict, lightweight or secret")
	if !form.Valid() {
		renderJSON(w, http.StatusBadRequest, rest.JSON{"detail": form.FieldErrors["mode"], "errors": form.FieldErrors})
		return
	}

	vc := validator.Context{ToolID: desc.ID, Direction: dir, Text: req.Text, Secret: req.Secret}
	var diag *validator.Diagnostic
	switch req.Mode {
	case modeStrict:
		diag = s.engine.Strict(vc)
	case modeLightweight:
		diag = s.engine.Lightweight(vc)
	case modeSecret:
		diag = s.engine.LightweightSecret(desc.ID, req.Secret)
	}
	rest.RenderJSON(w, rest.JSON{"diagnostic": diag})
}

// POST /api/v1/transform, strict validation then the remote call
func (s Server) transformCtrl(w http.ResponseWriter, r *http.Request) {
	req, desc, dir, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	ctrl, err := page.New(s.catalog, s.engine, s.remote, desc.ID)
	if err != nil {
		renderJSON(w, http.StatusNotFound, rest.JSON{"detail": err.Error()})
		return
	}
	ctrl.Restore(dir, req.Text, req.Secret, "")

	err = ctrl.Submit(r.Context())
	s.record(r.Context(), ctrl.State(), err)
	st := ctrl.State()
	var diag *validator.Diagnostic
	switch {
	case err == nil:
		rest.RenderJSON(w, rest.JSON{"result": st.Output})
	case errors.Is(err, page.ErrBlocked) && errors.As(err, &diag):
		renderJSON(w, http.StatusUnprocessableEntity, rest.JSON{"detail": diag.Message, "diagnostic": diag})
	case errors.Is(err, page.ErrUnsupported):
		renderJSON(w, http.StatusBadRequest, rest.JSON{"detail": err.Error()})
	default:
		renderJSON(w, http.StatusBadGateway, rest.JSON{"detail": transform.Detail(err)})
	}
}

// POST /api/v1/generate, runs a generator tool
func (s Server) generateCtrl(w http.ResponseWriter, r *http.Request) {
	req, desc, _, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	ctrl, err := page.New(s.catalog, s.engine, s.remote, desc.ID)
	if err != nil {
		renderJSON(w, http.StatusNotFound, rest.JSON{"detail": err.Error()})
		return
	}
	err = ctrl.Generate(r.Context(), page.LoremParams{Paragraphs: req.Paragraphs, UseLorem: req.UseLorem, Characters: req.Characters})
	switch {
	case err == nil:
		rest.RenderJSON(w, rest.JSON{"result": ctrl.State().Output})
	case errors.Is(err, page.ErrUnsupported):
		renderJSON(w, http.StatusBadRequest, rest.JSON{"detail": err.Error()})
	default:
		renderJSON(w, http.StatusBadGateway, rest.JSON{"detail": transform.Detail(err)})
	}
}

// GET /api/v1/stats
func (s Server) statsCtrl(w http.ResponseWriter, r *http.Request) {
	st, err := s.journal.Stats(r.Context())
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "can't load stats")
		return
	}
	rest.RenderJSON(w, st)
}

// decodeRequest parses api request and resolves the tool and direction, writes error response if failed
func (s Server) decodeRequest(w http.ResponseWriter, r *http.Request) (req apiRequest, desc tools.Descriptor, dir tools.Direction, ok bool) {
	if err := decodeJSON(r, &req); err != nil {
		log.Printf("[WARN] can't bind request, %v", err)
		renderJSON(w, http.StatusBadRequest, rest.JSON{"detail": "invalid request"})
		return req, desc, dir, false
	}
	desc, err := s.catalog.Lookup(req.Tool)
	if err != nil {
		renderJSON(w, http.StatusNotFound, rest.JSON{"detail": err.Error()})
		return req, desc, dir, false
	}
	dir, err = tools.ParseDirection(req.Direction)
	if err != nil {
		renderJSON(w, http.StatusBadRequest, rest.JSON{"detail": err.Error()})
		return req, desc, dir, false
	}
	return req, desc, desc.Direction(dir), true
}

// record adds submission outcome to the journal, failures are logged only
func (s Server) record(ctx context.Context, st page.State, submitErr error) {
	if s.journal == nil || errors.Is(submitErr, page.ErrUnsupported) {
		return
	}
	rec := store.Record{Tool: st.Tool.ID, Outcome: store.OutcomeSent}
	if st.Tool.HasModes() {
		rec.Direction = string(st.Direction)
	}
	var diag *validator.Diagnostic
	switch {
	case errors.Is(submitErr, page.ErrBlocked) && errors.As(submitErr, &diag):
		rec.Outcome, rec.Code = store.OutcomeBlocked, string(diag.Code)
	case submitErr != nil:
		rec.Outcome = store.OutcomeFailed
	}
	if err := s.journal.Add(ctx, rec); err != nil {
		log.Printf("[WARN] can't record submission, %v", err)
	}
}

// renderJSON sends json response with the given status
func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	rest.RenderJSON(w, v)
}

// decodeJSON decodes request body, unknown fields are rejected
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("can't decode request: %w", err)
	}
	return nil
}
