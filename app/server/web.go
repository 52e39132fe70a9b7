package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/toolkit/app/page"
	"github.com/umputun/toolkit/app/tools"
	"github.com/umputun/toolkit/app/validator"
	"github.com/umputun/toolkit/ui"
)

const (
	baseTmpl       = "base"
	consoleTmpl    = "console"
	inputDiagTmpl  = "input-diag"
	secretDiagTmpl = "secret-diag"
	errorTmpl      = "error"

	consolePage = "console.tmpl.html"
	defaultTool = "jwt"

	toolKey       = "tool"
	directionKey  = "direction"
	textKey       = "text"
	secretKey     = "secret"
	outputKey     = "output"
	paragraphsKey = "paragraphs"
	charactersKey = "characters"
	loremModeKey  = "lorem_mode"
	useLoremKey   = "use_lorem"

	loremParagraphs = "paragraphs"
	loremCharacters = "characters"
)

type categoryView struct {
	Category tools.Category
	Title    string
	Tools    []tools.Descriptor
}

type consoleForm struct {
	page.State
	CanSubmit bool
	Lorem     page.LoremParams
	LoremMode string
	validator.Validator
}

type templateData struct {
	Categories []categoryView
	Form       consoleForm
	Version    string
}

// render renders a template
func (s Server) render(w http.ResponseWriter, status int, page, tmplName string, data any) {
	ts, ok := s.templateCache[page]
	if !ok {
		err := fmt.Errorf("the template %s does not exist", page)
		log.Printf("[ERROR] %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)

	if tmplName == "" {
		tmplName = baseTmpl
	}
	if err := ts.ExecuteTemplate(buf, tmplName, data); err != nil {
		log.Printf("[ERROR] %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] can't write response, %v", err)
	}
}

// renders the console with the tool from query selected
// GET /?tool=<id>&direction=<encode|decode>
func (s Server) indexCtrl(w http.ResponseWriter, r *http.Request) {
	toolID := r.URL.Query().Get(toolKey)
	if toolID == "" {
		toolID = defaultTool
	}
	ctrl, err := page.New(s.catalog, s.engine, s.remote, toolID)
	if err != nil {
		s.render(w, http.StatusNotFound, "404.tmpl.html", baseTmpl, nil)
		return
	}
	if dir, err := tools.ParseDirection(r.URL.Query().Get(directionKey)); err == nil {
		ctrl.SetDirection(dir)
	}
	s.render(w, http.StatusOK, consolePage, baseTmpl, s.consoleData(ctrl, consoleForm{}))
}

// renders lightweight diagnostic of the input text
// POST /web/input
func (s Server) inputCtrl(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.restoreConsole(w, r)
	if !ok {
		return
	}
	s.render(w, http.StatusOK, consolePage, inputDiagTmpl, s.consoleData(ctrl, consoleForm{}))
}

// renders lightweight diagnostic of the secret
// POST /web/secret
func (s Server) secretCtrl(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.restoreConsole(w, r)
	if !ok {
		return
	}
	s.render(w, http.StatusOK, consolePage, secretDiagTmpl, s.consoleData(ctrl, consoleForm{}))
}

// runs strict validation and the remote call, renders the console with the output or diagnostics
// POST /web/process
func (s Server) processCtrl(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.restoreConsole(w, r)
	if !ok {
		return
	}
	form := consoleForm{}
	err := ctrl.Submit(r.Context())
	s.record(r.Context(), ctrl.State(), err)
	if errors.Is(err, page.ErrUnsupported) {
		form.AddNonFieldError("Operation not supported")
	}
	s.render(w, http.StatusOK, consolePage, consoleTemplate(r), s.consoleData(ctrl, form))
}

// runs the generator tool
// POST /web/generate
// Request Body:
//   - "lorem_mode" (string): "paragraphs" or "characters"
//   - "paragraphs" (int): number of paragraphs, 1-10
//   - "characters" (int): number of characters for characters mode, 10-10000
//   - "use_lorem" (bool): classic lorem ipsum instead of random text
func (s Server) generatePageCtrl(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.restoreConsole(w, r)
	if !ok {
		return
	}

	form := consoleForm{LoremMode: r.PostForm.Get(loremModeKey)}
	if form.LoremMode == "" {
		form.LoremMode = loremParagraphs
	}
	form.CheckField(validator.PermittedValue(form.LoremMode, loremParagraphs, loremCharacters), loremModeKey,
		"Only paragraphs and characters modes are allowed")

	form.Lorem.UseLorem = r.PostForm.Get(useLoremKey) == "true"
	form.Lorem.Paragraphs = formInt(&form.Validator, r.PostForm.Get(paragraphsKey), paragraphsKey, page.MinParagraphs, page.MaxParagraphs, 3)
	if form.LoremMode == loremCharacters {
		form.Lorem.Characters = formInt(&form.Validator, r.PostForm.Get(charactersKey), charactersKey, page.MinCharacters, page.MaxCharacters, 500)
	}

	if form.Valid() {
		if err := ctrl.Generate(r.Context(), form.Lorem); errors.Is(err, page.ErrUnsupported) {
			form.AddNonFieldError("Operation not supported")
		}
	}
	s.render(w, http.StatusOK, consolePage, consoleTemplate(r), s.consoleData(ctrl, form))
}

// clears the console, tool and direction stay
// POST /web/clear
func (s Server) clearCtrl(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.restoreConsole(w, r)
	if !ok {
		return
	}
	ctrl.Clear()
	s.render(w, http.StatusOK, consolePage, consoleTemplate(r), s.consoleData(ctrl, consoleForm{}))
}

// swaps input and output
// POST /web/swap
func (s Server) swapCtrl(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.restoreConsole(w, r)
	if !ok {
		return
	}
	form := consoleForm{}
	if err := ctrl.Swap(); err != nil {
		form.AddNonFieldError("Swap is available for encode/decode tools only")
	}
	s.render(w, http.StatusOK, consolePage, consoleTemplate(r), s.consoleData(ctrl, form))
}

// restoreConsole makes a page controller from the posted console form, renders error page on failure
func (s Server) restoreConsole(w http.ResponseWriter, r *http.Request) (*page.Controller, bool) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "error.tmpl.html", errorTmpl, err.Error())
		return nil, false
	}
	ctrl, err := page.New(s.catalog, s.engine, s.remote, r.PostForm.Get(toolKey))
	if err != nil {
		s.render(w, http.StatusBadRequest, "error.tmpl.html", errorTmpl, err.Error())
		return nil, false
	}
	dir, err := tools.ParseDirection(r.PostForm.Get(directionKey))
	if err != nil {
		s.render(w, http.StatusBadRequest, "error.tmpl.html", errorTmpl, err.Error())
		return nil, false
	}
	ctrl.Restore(dir, r.PostForm.Get(textKey), r.PostForm.Get(secretKey), r.PostForm.Get(outputKey))
	return ctrl, true
}

func (s Server) consoleData(ctrl *page.Controller, form consoleForm) templateData {
	form.State = ctrl.State()
	form.CanSubmit = ctrl.CanSubmit()
	if form.LoremMode == "" {
		form.LoremMode = loremParagraphs
	}
	if form.Lorem.Paragraphs == 0 {
		form.Lorem.Paragraphs = 3
	}
	if form.Lorem.Characters == 0 {
		form.Lorem.Characters = 500
	}

	data := templateData{Form: form, Version: s.cfg.Version}
	for _, c := range s.catalog.Categories() {
		data.Categories = append(data.Categories, categoryView{Category: c, Title: c.Title(), Tools: s.catalog.ByCategory(c)})
	}
	return data
}

// consoleTemplate returns the console fragment for htmx-style requests, the whole page otherwise
func consoleTemplate(r *http.Request) string {
	if r.Header.Get("HX-Request") == "true" {
		return consoleTmpl
	}
	return baseTmpl
}

// formInt parses a numeric form field within [minVal, maxVal], adds field error and returns def if failed
func formInt(v *validator.Validator, value, key string, minVal, maxVal, def int) int {
	if validator.Blank(value) {
		return def
	}
	if !validator.IsNumber(value) {
		v.AddFieldError(key, "Must be a number")
		return def
	}
	n, _ := strconv.Atoi(value)
	if n < minVal || n > maxVal {
		v.AddFieldError(key, fmt.Sprintf("Must be between %d and %d", minVal, maxVal))
		return def
	}
	return n
}

// newTemplateCache creates a template cache as a map
func newTemplateCache() (map[string]*template.Template, error) {
	cache := map[string]*template.Template{}

	pages, err := fs.Glob(ui.Files, "html/pages/*.tmpl.html")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := filepath.Base(page)

		patterns := []string{
			"html/index.tmpl.html",
			"html/partials/*.tmpl.html",
			page,
		}

		ts, err := template.New(name).Funcs(template.FuncMap{"severityIcon": severityIcon}).ParseFS(ui.Files, patterns...)
		if err != nil {
			return nil, err
		}
		cache[name] = ts
	}

	return cache, nil
}

// severityIcon is a helper function for templates to mark diagnostics
func severityIcon(d *validator.Diagnostic) string {
	if d.IsBlocking() {
		return "❌"
	}
	return "⚠️"
}
