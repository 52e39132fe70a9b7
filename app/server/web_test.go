package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/toolkit/app/page"
	"github.com/umputun/toolkit/app/store"
	"github.com/umputun/toolkit/app/tools"
	"github.com/umputun/toolkit/app/transform"
	"github.com/umputun/toolkit/app/validator"
)

func prepWebServer(t *testing.T, remote page.Transformer, journal Journal) Server {
	t.Helper()
	srv, err := New(Config{Version: "test"}, tools.Default(), remote, journal)
	require.NoError(t, err)
	return srv
}

func postForm(t *testing.T, srv Server, path string, form url.Values, htmx bool) (status int, body string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)
	return rr.Code, rr.Body.String()
}

func TestTemplates_NewTemplateCache(t *testing.T) {
	cache, err := newTemplateCache()
	require.NoError(t, err)
	assert.Len(t, cache, 3)
	for _, name := range []string{"console.tmpl.html", "404.tmpl.html", "error.tmpl.html"} {
		assert.Contains(t, cache, name)
	}
	for _, tmpl := range []string{baseTmpl, consoleTmpl, inputDiagTmpl, secretDiagTmpl, "sidebar", "generator"} {
		assert.NotNil(t, cache[consolePage].Lookup(tmpl), tmpl)
	}
}

func TestTemplates_severityIcon(t *testing.T) {
	assert.Equal(t, "❌", severityIcon(&validator.Diagnostic{Severity: validator.Blocking}))
	assert.Equal(t, "⚠️", severityIcon(&validator.Diagnostic{Severity: validator.Warning}))
}

func TestServer_indexCtrl(t *testing.T) {
	srv := prepWebServer(t, echoRemote(), nil)

	tests := []struct {
		name     string
		query    string
		status   int
		contains []string
		excludes []string
	}{
		{name: "default tool", query: "", status: http.StatusOK,
			contains: []string{`<h1>JWT</h1>`, `name="tool" value="jwt"`, `id="secret"`, `id="tab-decode"`,
				`data-tool="jwt" class="active"`, `id="process" formaction="/web/process" disabled`, "vtest"}},
		{name: "hash tool", query: "?tool=md5", status: http.StatusOK,
			contains: []string{`name="tool" value="md5"`, `name="direction" value="encode"`},
			excludes: []string{`id="secret"`, `id="tab-encode"`, `id="swap"`}},
		{name: "decode direction", query: "?tool=base64&direction=decode", status: http.StatusOK,
			contains: []string{`name="direction" value="decode"`, `class="tab active">Decode</a>`}},
		{name: "bad direction ignored", query: "?tool=base64&direction=up", status: http.StatusOK,
			contains: []string{`name="direction" value="encode"`}},
		{name: "generator", query: "?tool=lorem", status: http.StatusOK,
			contains: []string{`id="generate"`, `name="paragraphs" min="1" max="10" value="3"`},
			excludes: []string{`id="text"`, `id="process"`}},
		{name: "unknown tool", query: "?tool=nope", status: http.StatusNotFound, contains: []string{"Nothing here"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, http.NoBody)
			rr := httptest.NewRecorder()
			srv.routes().ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
			body := rr.Body.String()
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, body, s)
			}
		})
	}
}

func TestServer_inputCtrl(t *testing.T) {
	srv := prepWebServer(t, echoRemote(), nil)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{name: "incomplete jwt", form: url.Values{"tool": {"jwt"}, "direction": {"decode"}, "text": {"abc.def"}},
			want: `<p class="warning" data-code="JwtPartCount">⚠️ JWT incomplete. Found 2/3 parts.</p>`},
		{name: "valid jwt", form: url.Values{"tool": {"jwt"}, "direction": {"decode"}, "text": {"a.b.c"}},
			want: `<div id="input-diag" class="diag" aria-live="polite"></div>`},
		{name: "empty input has no diagnostic", form: url.Values{"tool": {"base64"}, "direction": {"decode"}, "text": {""}},
			want: `<div id="input-diag" class="diag" aria-live="polite"></div>`},
		{name: "url hex", form: url.Values{"tool": {"url"}, "direction": {"decode"}, "text": {"%zz"}},
			want: `data-code="UrlEncodingInvalidHex"`},
		{name: "encode is not checked", form: url.Values{"tool": {"url"}, "direction": {"encode"}, "text": {"%zz"}},
			want: `<div id="input-diag" class="diag" aria-live="polite"></div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postForm(t, srv, "/web/input", tt.form, true)
			assert.Equal(t, http.StatusOK, status)
			assert.Contains(t, body, tt.want)
			assert.NotContains(t, body, "<html", "fragment only")
		})
	}
}

func TestServer_secretCtrl(t *testing.T) {
	srv := prepWebServer(t, echoRemote(), nil)

	status, body := postForm(t, srv, "/web/secret", url.Values{"tool": {"hmac-md5"}, "secret": {"ab"}}, true)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<p class="warning" data-code="SecretTooShort">⚠️ Secret key too short (2/3 characters minimum)</p>`)

	_, body = postForm(t, srv, "/web/secret", url.Values{"tool": {"hmac-md5"}, "secret": {""}}, true)
	assert.Equal(t, `<div id="secret-diag" class="diag" aria-live="polite"></div>`, body)

	_, body = postForm(t, srv, "/web/secret", url.Values{"tool": {"md5"}, "secret": {"a"}}, true)
	assert.Equal(t, `<div id="secret-diag" class="diag" aria-live="polite"></div>`, body, "no secret for md5")
}

func TestServer_restoreConsoleErrors(t *testing.T) {
	srv := prepWebServer(t, echoRemote(), nil)

	status, body := postForm(t, srv, "/web/input", url.Values{"tool": {"nope"}}, true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, `<div id="error" class="alert">`)
	assert.Contains(t, body, "unknown tool")

	status, body = postForm(t, srv, "/web/process", url.Values{"tool": {"base64"}, "direction": {"up"}}, true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "invalid direction")
}

func TestServer_processCtrl(t *testing.T) {
	remote := echoRemote()
	journal := store.NewInMemory(time.Hour)
	defer journal.Close()
	srv := prepWebServer(t, remote, journal)

	t.Run("htmx fragment with output", func(t *testing.T) {
		status, body := postForm(t, srv, "/web/process",
			url.Values{"tool": {"base64"}, "direction": {"encode"}, "text": {"hello"}}, true)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(body), `<section id="console"`), body)
		assert.Contains(t, body, `readonly spellcheck="false">HELLO</textarea>`)
		assert.NotContains(t, body, "<html")
	})

	t.Run("full page without htmx", func(t *testing.T) {
		status, body := postForm(t, srv, "/web/process",
			url.Values{"tool": {"lowercase"}, "text": {"abc"}}, false)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "<html")
		assert.Contains(t, body, `class="sidebar"`)
		assert.Contains(t, body, ">ABC</textarea>")
	})

	t.Run("blocked by input", func(t *testing.T) {
		status, body := postForm(t, srv, "/web/process",
			url.Values{"tool": {"base32"}, "direction": {"decode"}, "text": {"abc1"}, "output": {"old"}}, true)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `<p class="blocking" data-code="Base32InvalidChars">❌ `)
		assert.Contains(t, body, `readonly spellcheck="false">old</textarea>`, "output kept")
	})

	t.Run("blocked by secret", func(t *testing.T) {
		_, body := postForm(t, srv, "/web/process",
			url.Values{"tool": {"hmac-sha256"}, "text": {"data"}, "secret": {""}}, true)
		assert.Contains(t, body, `<div id="secret-diag" class="diag" aria-live="polite"><p class="blocking" data-code="SecretMissing">`)
		assert.Contains(t, body, `<div id="input-diag" class="diag" aria-live="polite"></div>`)
	})

	t.Run("remote error shown in output", func(t *testing.T) {
		failing := &page.TransformerMock{TransformFunc: func(context.Context, transform.Request) (string, error) {
			return "", &transform.RemoteError{Status: 400, Detail: "Invalid JSON input"}
		}}
		fsrv := prepWebServer(t, failing, nil)
		_, body := postForm(t, fsrv, "/web/process", url.Values{"tool": {"json-minify"}, "text": {"{}"}}, true)
		assert.Contains(t, body, `readonly spellcheck="false">Error: Invalid JSON input</textarea>`)
	})

	t.Run("generator can't be processed", func(t *testing.T) {
		_, body := postForm(t, srv, "/web/process", url.Values{"tool": {"uuid"}}, true)
		assert.Contains(t, body, `<div class="alert">Operation not supported</div>`)
	})

	calls := len(remote.TransformCalls())
	assert.Equal(t, 2, calls)
	st, err := journal.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, map[string]int{"Base32InvalidChars": 1, "SecretMissing": 1}, st.Codes)
}

func TestServer_generatePageCtrl(t *testing.T) {
	remote := echoRemote()
	srv := prepWebServer(t, remote, nil)

	tests := []struct {
		name     string
		form     url.Values
		calls    int
		contains []string
	}{
		{name: "uuid", form: url.Values{"tool": {"uuid"}}, calls: 1,
			contains: []string{">2f1e7c1a-6e0b-4a51-9d8e-3b1f0c2d4e5f</textarea>"}},
		{name: "lorem paragraphs", form: url.Values{"tool": {"lorem"}, "paragraphs": {"4"}, "use_lorem": {"true"}}, calls: 1,
			contains: []string{`value="4"`, `<option value="true" selected>Lorem Ipsum</option>`}},
		{name: "lorem characters", form: url.Values{"tool": {"lorem"}, "lorem_mode": {"characters"}, "characters": {"11"}}, calls: 1,
			contains: []string{">lorem ipsum</textarea>", `<option value="characters" selected>`}},
		{name: "paragraphs out of range", form: url.Values{"tool": {"lorem"}, "paragraphs": {"11"}}, calls: 0,
			contains: []string{`<p class="blocking">Must be between 1 and 10</p>`}},
		{name: "paragraphs not a number", form: url.Values{"tool": {"lorem"}, "paragraphs": {"many"}}, calls: 0,
			contains: []string{`<p class="blocking">Must be a number</p>`}},
		{name: "characters out of range", form: url.Values{"tool": {"lorem"}, "lorem_mode": {"characters"}, "characters": {"5"}},
			calls: 0, contains: []string{`<p class="blocking">Must be between 10 and 10000</p>`}},
		{name: "bad mode", form: url.Values{"tool": {"lorem"}, "lorem_mode": {"words"}}, calls: 0,
			contains: []string{"Only paragraphs and characters modes are allowed"}},
		{name: "not a generator", form: url.Values{"tool": {"md5"}, "text": {"x"}}, calls: 0,
			contains: []string{`<div class="alert">Operation not supported</div>`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(remote.GenerateCalls())
			status, body := postForm(t, srv, "/web/generate", tt.form, true)
			assert.Equal(t, http.StatusOK, status)
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			assert.Len(t, remote.GenerateCalls(), before+tt.calls)
		})
	}
}

func TestServer_clearCtrl(t *testing.T) {
	srv := prepWebServer(t, echoRemote(), nil)

	status, body := postForm(t, srv, "/web/clear", url.Values{"tool": {"base64"}, "direction": {"decode"},
		"text": {"SGVsbG8="}, "output": {"Hello"}}, true)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `name="direction" value="decode"`)
	assert.Contains(t, body, `placeholder="Enter text to process..."></textarea>`)
	assert.Contains(t, body, `readonly spellcheck="false"></textarea>`)
	assert.NotContains(t, body, "SGVsbG8=")
}

func TestServer_swapCtrl(t *testing.T) {
	srv := prepWebServer(t, echoRemote(), nil)

	status, body := postForm(t, srv, "/web/swap", url.Values{"tool": {"base64"}, "direction": {"encode"},
		"text": {"Hello"}, "output": {"SGVsbG8"}}, true)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `placeholder="Enter text to process...">SGVsbG8</textarea>`)
	assert.Contains(t, body, `readonly spellcheck="false">Hello</textarea>`)
	assert.NotContains(t, body, "data-code", "swap keeps direction, base64 encode input isn't validated")

	_, body = postForm(t, srv, "/web/swap", url.Values{"tool": {"md5"}, "text": {"a"}, "output": {"b"}}, true)
	assert.Contains(t, body, "Swap is available for encode/decode tools only")
	assert.Contains(t, body, `placeholder="Enter text to process...">a</textarea>`)
}

func TestServer_basicAuthWeb(t *testing.T) {
	srv, err := New(Config{AuthHash: testBcryptHash(t, "passw0rd")}, tools.Default(), echoRemote(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/?tool=md5", http.NoBody)
	require.NoError(t, err)
	req.SetBasicAuth(authUser, "passw0rd")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `value="md5"`)

	// static and ping are public
	resp, err = http.Get(ts.URL + "/static/css/main.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFormInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
		err   string
	}{
		{name: "blank", value: "", want: 3},
		{name: "valid", value: "7", want: 7},
		{name: "low bound", value: "1", want: 1},
		{name: "too big", value: "12", want: 3, err: "Must be between 1 and 10"},
		{name: "negative", value: "-1", want: 3, err: "Must be between 1 and 10"},
		{name: "text", value: "ten", want: 3, err: "Must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validator.Validator{}
			got := formInt(&v, tt.value, "n", 1, 10, 3)
			assert.Equal(t, tt.want, got)
			if tt.err == "" {
				assert.True(t, v.Valid())
				return
			}
			assert.Equal(t, tt.err, v.FieldErrors["n"])
		})
	}
}

func TestServer_renderMissingTemplate(t *testing.T) {
	srv := prepWebServer(t, echoRemote(), nil)
	rr := httptest.NewRecorder()
	srv.render(rr, http.StatusOK, "nope.tmpl.html", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = httptest.NewRecorder()
	srv.render(rr, http.StatusTeapot, "error.tmpl.html", errorTmpl, errors.New("boom").Error())
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, `<div id="error" class="alert">boom</div>`, rr.Body.String())
}
