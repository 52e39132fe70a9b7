package transform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/toolkit/app/tools"
)

type captured struct {
	path  string
	reqID string
	body  map[string]any
}

func prepRemote(t *testing.T, status int, answer string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		c.path = r.URL.Path
		c.reqID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c.body))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(answer))
	}))
	t.Cleanup(ts.Close)
	return ts, c
}

func lookup(t *testing.T, id string) tools.Descriptor {
	t.Helper()
	d, err := tools.Default().Lookup(id)
	require.NoError(t, err)
	return d
}

func TestClient_Transform(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		dir      tools.Direction
		secret   string
		wantPath string
		wantBody map[string]any
	}{
		{name: "base64 decode", tool: "base64", dir: tools.Decode, secret: "ignored",
			wantPath: "/encoder/base64/decode", wantBody: map[string]any{"text": "abc"}},
		{name: "hash", tool: "sha256", dir: tools.Encode,
			wantPath: "/encoder/hash/sha256", wantBody: map[string]any{"text": "abc"}},
		{name: "hmac with secret", tool: "hmac-sha1", dir: tools.Encode, secret: "key",
			wantPath: "/encoder/hmac/sha1", wantBody: map[string]any{"text": "abc", "secret": "key"}},
		{name: "jwt algorithm", tool: "jwt", dir: tools.Encode, secret: "key",
			wantPath: "/encoder/jwt/encode", wantBody: map[string]any{"text": "abc", "secret": "key", "algorithm": "HS256"}},
		{name: "json indent", tool: "json-format", dir: tools.Encode,
			wantPath: "/encoder/json/format", wantBody: map[string]any{"text": "abc", "indent": float64(2)}},
		{name: "unicode verb", tool: "unicode", dir: tools.Decode,
			wantPath: "/encoder/unicode/unescape", wantBody: map[string]any{"text": "abc"}},
		{name: "text tool", tool: "uppercase", dir: tools.Decode,
			wantPath: "/encoder/text/upper", wantBody: map[string]any{"text": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, c := prepRemote(t, http.StatusOK, `{"result":"done"}`)
			cl := New(Params{BaseURL: ts.URL + "/", Timeout: time.Second})
			res, err := cl.Transform(context.Background(),
				Request{Tool: lookup(t, tt.tool), Direction: tt.dir, Text: "abc", Secret: tt.secret})
			require.NoError(t, err)
			assert.Equal(t, "done", res)
			assert.Equal(t, tt.wantPath, c.path)
			assert.Equal(t, tt.wantBody, c.body)
			assert.Len(t, c.reqID, 36)
		})
	}
}

func TestClient_TransformErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		answer     string
		wantDetail string
		remote     bool
	}{
		{name: "string detail", status: 400, answer: `{"detail":"Invalid base64 string"}`,
			wantDetail: "Invalid base64 string", remote: true},
		{name: "structured detail", status: 422, answer: `{"detail":[{"loc":["body","text"]}]}`,
			wantDetail: "Unprocessable Entity", remote: true},
		{name: "not json", status: 500, answer: `oops`, wantDetail: "Internal Server Error", remote: true},
		{name: "unknown status", status: 599, answer: ``, wantDetail: "status 599", remote: true},
		{name: "missing result", status: 200, answer: `{"other":1}`, wantDetail: "response has no result"},
		{name: "broken result", status: 200, answer: `{"result":`, wantDetail: "failed to decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := prepRemote(t, tt.status, tt.answer)
			cl := New(Params{BaseURL: ts.URL})
			_, err := cl.Transform(context.Background(), Request{Tool: lookup(t, "base64"), Direction: tools.Decode, Text: "x"})
			require.Error(t, err)
			assert.Contains(t, Detail(err), tt.wantDetail)

			var re *RemoteError
			assert.Equal(t, tt.remote, errors.As(err, &re))
			if tt.remote {
				assert.Equal(t, tt.status, re.Status)
				assert.Equal(t, tt.wantDetail, re.Error())
			}
		})
	}
}

func TestClient_TransformUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	cl := New(Params{BaseURL: url, Timeout: time.Second})
	_, err := cl.Transform(context.Background(), Request{Tool: lookup(t, "md5"), Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform request to hash/md5 failed")
	assert.Equal(t, err.Error(), Detail(err))
}

func TestClient_TransformCanceled(t *testing.T) {
	ts, _ := prepRemote(t, http.StatusOK, `{"result":"x"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Params{BaseURL: ts.URL}).Transform(ctx, Request{Tool: lookup(t, "md5"), Text: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Generate(t *testing.T) {
	ts, c := prepRemote(t, http.StatusOK, `{"result":"Lorem ipsum"}`)
	cl := New(Params{BaseURL: ts.URL})

	res, err := cl.Generate(context.Background(), "generate/lorem", GenerateRequest{Paragraphs: 3, UseLorem: true})
	require.NoError(t, err)
	assert.Equal(t, "Lorem ipsum", res)
	assert.Equal(t, "/encoder/generate/lorem", c.path)
	assert.Equal(t, map[string]any{"text": "", "paragraphs": float64(3), "use_lorem": true}, c.body)

	_, err = cl.Generate(context.Background(), "generate/uuid", GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "/encoder/generate/uuid", c.path)
	assert.Equal(t, map[string]any{"text": ""}, c.body)
}

func TestNew_Defaults(t *testing.T) {
	cl := New(Params{BaseURL: "http://example.com/"})
	assert.Equal(t, "http://example.com", cl.BaseURL)
	assert.Equal(t, 30*time.Second, cl.Timeout)
}
