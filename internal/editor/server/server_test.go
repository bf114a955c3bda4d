package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/internal/common/htmlprocessor"
	"github.com/edgecomet/seoeditor/internal/common/requestid"
	"github.com/edgecomet/seoeditor/internal/editor/catalog"
	"github.com/edgecomet/seoeditor/internal/editor/metrics"
	"github.com/edgecomet/seoeditor/internal/editor/site"
	"github.com/edgecomet/seoeditor/pkg/types"
)

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Old title</title>
<meta name="description" content="Old description">
</head>
<body><h1>Welcome</h1><img src="a.png" alt="A"></body>
</html>`

const aboutPage = `<html><head><title>About our workshop</title></head><body><p>About</p></body></html>`

type testServer struct {
	*Server
	root    string
	metrics *metrics.PrometheusMetrics
}

func newTestServer(t *testing.T, files map[string]string, configure func(*configtypes.EditorConfig)) *testServer {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	}

	cfg := &configtypes.EditorConfig{
		Server: configtypes.ServerConfig{Listen: "127.0.0.1:0"},
		Site:   configtypes.SiteConfig{Root: root, ContentDirs: []string{"blog"}},
	}
	if configure != nil {
		configure(cfg)
	}

	logger := zaptest.NewLogger(t)
	store, err := site.NewStore(cfg.Site, cfg.Backup, logger)
	require.NoError(t, err)

	pm := metrics.NewPrometheusMetricsWithRegistry("seoeditor", prometheus.NewRegistry(), zap.NewNop())

	return &testServer{
		Server:  New(cfg, store, catalog.New(store, logger), pm, logger),
		root:    root,
		metrics: pm,
	}
}

type request struct {
	method      string
	uri         string
	contentType string
	body        string
	headers     map[string]string
}

func (ts *testServer) do(req request) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	method := req.method
	if method == "" {
		method = fasthttp.MethodGet
	}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(req.uri)
	ctx.Request.Header.SetHost("editor.local")
	if req.contentType != "" {
		ctx.Request.Header.SetContentType(req.contentType)
	}
	if req.body != "" {
		ctx.Request.SetBodyString(req.body)
	}
	for k, v := range req.headers {
		ctx.Request.Header.Set(k, v)
	}

	ts.Handler()(ctx)
	return ctx
}

func (ts *testServer) readFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(ts.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func decode(t *testing.T, ctx *fasthttp.RequestCtx, v interface{}) {
	t.Helper()
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), v), string(ctx.Response.Body()))
}

func errorMessage(t *testing.T, ctx *fasthttp.RequestCtx) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decode(t, ctx, &resp)
	return resp.Error
}

func TestAPI_ListIsDefaultAction(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"index.html":      indexPage,
		"about.html":      aboutPage,
		"blog/first.php":  "<h1>First</h1>",
		"assets/logo.svg": "<svg/>",
	}, nil)

	for _, uri := range []string{"/api", "/api?action=list", "/seo-api.php"} {
		t.Run(uri, func(t *testing.T) {
			ctx := ts.do(request{uri: uri})
			assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

			var resp struct {
				Pages []types.CatalogEntry `json:"pages"`
			}
			decode(t, ctx, &resp)
			require.Len(t, resp.Pages, 3)

			paths := make([]string, 0, len(resp.Pages))
			for _, p := range resp.Pages {
				paths = append(paths, p.FilePath)
			}
			assert.ElementsMatch(t, []string{"index.html", "about.html", "blog/first.php"}, paths)
		})
	}
}

func TestAPI_ListEmptySite(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	ctx := ts.do(request{uri: "/api?action=list"})
	assert.JSONEq(t, `{"pages":[]}`, string(ctx.Response.Body()))
}

func TestAPI_Get(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"index.html": indexPage,
		"about.html": aboutPage,
	}, nil)

	tests := []struct {
		name      string
		uri       string
		wantPath  string
		wantTitle string
	}{
		{"default path", "/api?action=get", "index.html", "Old title"},
		{"root path", "/api?action=get&path=/", "index.html", "Old title"},
		{"explicit file", "/api?action=get&path=/about.html", "about.html", "About our workshop"},
		{"extension guessed", "/api?action=get&path=about", "about.html", "About our workshop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc types.PageDocument
			decode(t, ts.do(request{uri: tt.uri}), &doc)

			assert.Equal(t, tt.wantPath, doc.FilePath)
			assert.Equal(t, tt.wantTitle, doc.SEOData.Title)
			assert.Equal(t, types.DefaultRobots, doc.SEOData.Robots)
			assert.Equal(t, ts.readFile(t, tt.wantPath), doc.Content)
		})
	}
}

func TestAPI_GetErrors(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		uri        string
		wantMsg    string
		wantStrict int
	}{
		{
			name:       "no default page",
			files:      map[string]string{"blog/first.html": "x"},
			uri:        "/api?action=get",
			wantMsg:    MsgNoDefaultPage,
			wantStrict: fasthttp.StatusNotFound,
		},
		{
			name:       "missing page",
			files:      map[string]string{"index.html": indexPage},
			uri:        "/api?action=get&path=/missing.html",
			wantMsg:    MsgPageNotFound,
			wantStrict: fasthttp.StatusNotFound,
		},
		{
			name:       "path cannot leave the root",
			files:      map[string]string{"index.html": indexPage},
			uri:        "/api?action=get&path=../../etc/passwd",
			wantMsg:    MsgPageNotFound,
			wantStrict: fasthttp.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.files, nil)
			ctx := ts.do(request{uri: tt.uri})
			assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
			assert.Equal(t, tt.wantMsg, errorMessage(t, ctx))

			strict := newTestServer(t, tt.files, func(c *configtypes.EditorConfig) {
				c.Server.StrictStatus = true
			})
			ctx = strict.do(request{uri: tt.uri})
			assert.Equal(t, tt.wantStrict, ctx.Response.StatusCode())
			assert.Equal(t, tt.wantMsg, errorMessage(t, ctx))
		})
	}
}

func TestAPI_SaveForm(t *testing.T) {
	ts := newTestServer(t, map[string]string{"index.html": indexPage}, nil)

	ctx := ts.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/api",
		contentType: "application/x-www-form-urlencoded",
		body:        "action=save&filePath=index.html&title=Tom+%26+Jerry&ogTitle=Cartoons&description=",
	})

	var result types.SaveResult
	decode(t, ctx, &result)
	assert.True(t, result.Success)
	assert.Equal(t, MsgSaveSuccessful, result.Message)
	assert.Equal(t, "index.html.bak", result.Backup)

	assert.Equal(t, indexPage, ts.readFile(t, "index.html.bak"))

	saved := ts.readFile(t, "index.html")
	assert.Contains(t, saved, "<title>Tom &amp; Jerry</title>")
	assert.Contains(t, saved, `<meta property="og:title" content="Cartoons">`)
	assert.Contains(t, saved, `<meta property="og:url" content="https://editor.local/index.html">`)
	assert.Contains(t, saved, `<meta name="robots" content="index, follow">`)
	assert.Contains(t, saved, `<meta name="twitter:card" content="summary">`)
	assert.NotContains(t, saved, "Old title")
	assert.NotContains(t, saved, "Old description")
	assert.Contains(t, saved, `<meta charset="utf-8">`)
	assert.Contains(t, saved, "<h1>Welcome</h1>")

	record := htmlprocessor.Extract(saved)
	assert.Equal(t, "Tom & Jerry", record.Title)
	assert.Empty(t, record.Description)
}

func TestAPI_SaveJSONUsesPublicHost(t *testing.T) {
	ts := newTestServer(t, map[string]string{"blog/first.html": aboutPage}, func(c *configtypes.EditorConfig) {
		c.Site.PublicHost = "www.example.org"
	})

	body := `{"action":"save","filePath":"/blog/first.html","ogDescription":"Read all about it",` +
		`"schemaType":"Article","schemaData":"{\"@type\":\"Article\"}"}`
	ctx := ts.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/api",
		contentType: "application/json",
		body:        body,
	})

	var result types.SaveResult
	decode(t, ctx, &result)
	require.True(t, result.Success)
	assert.Equal(t, "blog/first.html.bak", result.Backup)

	saved := ts.readFile(t, "blog/first.html")
	assert.Contains(t, saved, `<meta property="og:url" content="https://www.example.org/blog/first.html">`)
	assert.Contains(t, saved, "<script type=\"application/ld+json\">\n{\"@type\":\"Article\"}\n</script>")
	assert.Equal(t, "Article", htmlprocessor.Extract(saved).SchemaType)
}

func TestAPI_SaveBodyOverridesQuery(t *testing.T) {
	ts := newTestServer(t, map[string]string{"index.html": indexPage, "about.html": aboutPage}, nil)

	ctx := ts.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/api?action=save&filePath=about.html&title=From+query&keywords=query",
		contentType: "application/x-www-form-urlencoded",
		body:        "filePath=index.html&title=From+body",
	})

	var result types.SaveResult
	decode(t, ctx, &result)
	require.True(t, result.Success)
	assert.Equal(t, "index.html.bak", result.Backup)

	record := htmlprocessor.Extract(ts.readFile(t, "index.html"))
	assert.Equal(t, "From body", record.Title)
	assert.Equal(t, "query", record.Keywords, "fields missing from the body fall back to the query")
	assert.Equal(t, aboutPage, ts.readFile(t, "about.html"))
}

func TestAPI_SaveMultipartForm(t *testing.T) {
	ts := newTestServer(t, map[string]string{"index.html": indexPage}, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("action", "save"))
	require.NoError(t, w.WriteField("filePath", "index.html"))
	require.NoError(t, w.WriteField("title", "Multipart title"))
	require.NoError(t, w.Close())

	ctx := ts.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/api?title=Ignored",
		contentType: w.FormDataContentType(),
		body:        body.String(),
	})

	var result types.SaveResult
	decode(t, ctx, &result)
	require.True(t, result.Success)
	assert.Equal(t, "Multipart title", htmlprocessor.Extract(ts.readFile(t, "index.html")).Title)
}

func TestAPI_SaveWithoutBackup(t *testing.T) {
	disabled := false
	ts := newTestServer(t, map[string]string{"index.html": indexPage}, func(c *configtypes.EditorConfig) {
		c.Backup.Enabled = &disabled
	})

	var result types.SaveResult
	decode(t, ts.do(request{uri: "/api?action=save&filePath=index.html&title=Fresh"}), &result)
	assert.True(t, result.Success)
	assert.Empty(t, result.Backup)
	assert.NoFileExists(t, filepath.Join(ts.root, "index.html.bak"))
}

func TestAPI_SaveErrors(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantStrict int
	}{
		{"missing filePath", "/api?action=save&title=x", fasthttp.StatusBadRequest},
		{"unknown file", "/api?action=save&filePath=nope.html&title=x", fasthttp.StatusNotFound},
		{"directory", "/api?action=save&filePath=blog&title=x", fasthttp.StatusNotFound},
	}

	files := map[string]string{"index.html": indexPage, "blog/first.html": aboutPage}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, files, nil)
			ctx := ts.do(request{uri: tt.uri})
			assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
			assert.Equal(t, MsgFileNotFound, errorMessage(t, ctx))
			assert.Equal(t, indexPage, ts.readFile(t, "index.html"))

			strict := newTestServer(t, files, func(c *configtypes.EditorConfig) {
				c.Server.StrictStatus = true
			})
			assert.Equal(t, tt.wantStrict, strict.do(request{uri: tt.uri}).Response.StatusCode())
		})
	}
}

func TestAPI_SaveFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	ts := newTestServer(t, map[string]string{"index.html": indexPage}, nil)
	require.NoError(t, os.Chmod(ts.root, 0555))
	t.Cleanup(func() { _ = os.Chmod(ts.root, 0755) })

	ctx := ts.do(request{uri: "/api?action=save&filePath=index.html&title=x"})
	assert.Equal(t, MsgSaveFailed, errorMessage(t, ctx))
	assert.Equal(t, indexPage, ts.readFile(t, "index.html"))
}

func TestAPI_Analyze(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"index.html":      indexPage,
		"blog/first.html": aboutPage,
	}, nil)

	var resp types.AnalysisResponse
	decode(t, ts.do(request{uri: "/api?action=analyze"}), &resp)

	want := htmlprocessor.Analyze(indexPage)
	assert.Equal(t, "index.html", resp.FilePath)
	assert.Equal(t, want.Score, resp.Score)
	assert.Equal(t, want.Issues, resp.Issues)

	decode(t, ts.do(request{uri: "/api?action=analyze&path=/blog/first.html"}), &resp)
	assert.Equal(t, "blog/first.html", resp.FilePath)

	// the audit does not guess extensions
	ctx := ts.do(request{uri: "/api?action=analyze&path=/blog/first"})
	assert.Equal(t, MsgPageNotFound, errorMessage(t, ctx))
}

func TestAPI_AnalyzeRootWithoutIndex(t *testing.T) {
	ts := newTestServer(t, map[string]string{"home.html": aboutPage}, nil)

	assert.Equal(t, MsgPageNotFound, errorMessage(t, ts.do(request{uri: "/api?action=analyze"})))
}

func TestAPI_Scan(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"index.html":     indexPage,
		"about.html":     aboutPage,
		"contact.php":    "<?php ?>",
		"notes.txt":      "notes",
		"blog/first.php": "x",
		".git/HEAD":      "ref",
	}, nil)

	var summary types.ScanSummary
	decode(t, ts.do(request{uri: "/api?action=scan"}), &summary)

	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 2, summary.HTMLFiles)
	assert.Equal(t, 1, summary.PHPFiles)
	assert.Equal(t, 1, summary.Directories)
	assert.Len(t, summary.LastScan, len(site.ScanTimeFormat))
}

func TestAPI_InvalidAction(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	ctx := ts.do(request{uri: "/api?action=delete"})
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"Invalid action"}`, string(ctx.Response.Body()))

	strict := newTestServer(t, nil, func(c *configtypes.EditorConfig) {
		c.Server.StrictStatus = true
	})
	assert.Equal(t, fasthttp.StatusBadRequest, strict.do(request{uri: "/api?action=delete"}).Response.StatusCode())
}

func TestAPI_ActionFromForm(t *testing.T) {
	ts := newTestServer(t, map[string]string{"index.html": indexPage}, nil)

	ctx := ts.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/api",
		contentType: "application/x-www-form-urlencoded",
		body:        "action=scan",
	})

	var summary types.ScanSummary
	decode(t, ctx, &summary)
	assert.Equal(t, 1, summary.HTMLFiles)
}

func TestServer_CORS(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	ctx := ts.do(request{method: fasthttp.MethodOptions, uri: "/api"})
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Empty(t, ctx.Response.Body())

	for _, ctx := range []*fasthttp.RequestCtx{ctx, ts.do(request{uri: "/api"})} {
		assert.Equal(t, "*", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
		assert.Equal(t, "GET, POST, PUT, DELETE", string(ctx.Response.Header.Peek("Access-Control-Allow-Methods")))
		assert.Equal(t, "Content-Type", string(ctx.Response.Header.Peek("Access-Control-Allow-Headers")))
	}
}

func TestServer_CORSWithAPIKey(t *testing.T) {
	ts := newTestServer(t, nil, func(c *configtypes.EditorConfig) {
		c.Server.APIKey = "s3cret"
	})

	ctx := ts.do(request{
		method:  fasthttp.MethodOptions,
		uri:     "/api",
		headers: map[string]string{"Access-Control-Request-Headers": "x-api-key"},
	})
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode(), "preflight needs no key")

	allowed := string(ctx.Response.Header.Peek("Access-Control-Allow-Headers"))
	assert.Contains(t, allowed, "X-API-Key")
	assert.Contains(t, allowed, "Authorization")
	assert.Contains(t, allowed, "Content-Type")
}

func TestServer_Routing(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	tests := []struct {
		name       string
		method     string
		uri        string
		wantStatus int
		wantError  string
	}{
		{"unknown path", fasthttp.MethodGet, "/admin", fasthttp.StatusNotFound, "not found"},
		{"wrong method", fasthttp.MethodPut, "/api", fasthttp.StatusMethodNotAllowed, "method not allowed"},
		{"health is GET only", fasthttp.MethodPost, "/health", fasthttp.StatusMethodNotAllowed, "method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ts.do(request{method: tt.method, uri: tt.uri})
			assert.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
			assert.Equal(t, tt.wantError, errorMessage(t, ctx))
		})
	}
}

func TestServer_APIKey(t *testing.T) {
	ts := newTestServer(t, map[string]string{"index.html": indexPage}, func(c *configtypes.EditorConfig) {
		c.Server.APIKey = "s3cret"
	})

	tests := []struct {
		name       string
		uri        string
		headers    map[string]string
		wantStatus int
	}{
		{"no key", "/api", nil, fasthttp.StatusUnauthorized},
		{"wrong key", "/api", map[string]string{"X-API-Key": "nope"}, fasthttp.StatusUnauthorized},
		{"api key header", "/api", map[string]string{"X-API-Key": "s3cret"}, fasthttp.StatusOK},
		{"bearer token", "/api", map[string]string{"Authorization": "Bearer s3cret"}, fasthttp.StatusOK},
		{"basic auth is not accepted", "/api", map[string]string{"Authorization": "Basic s3cret"}, fasthttp.StatusUnauthorized},
		{"health is open", "/health", nil, fasthttp.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ts.do(request{uri: tt.uri, headers: tt.headers})
			assert.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
			if tt.wantStatus == fasthttp.StatusUnauthorized {
				assert.Equal(t, "unauthorized", errorMessage(t, ctx))
			}
		})
	}
}

func TestServer_RequestID(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	ctx := ts.do(request{uri: "/health", headers: map[string]string{requestid.HeaderName: "trace 42"}})
	id := string(ctx.Response.Header.Peek(requestid.HeaderName))
	assert.True(t, strings.HasSuffix(id, "-trace-42"), id)
	assert.Len(t, id, requestid.PrefixLength+len("-trace-42"))

	ctx = ts.do(request{uri: "/health"})
	assert.Len(t, string(ctx.Response.Header.Peek(requestid.HeaderName)), requestid.MaxRequestIDLength)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	ctx := ts.do(request{uri: "/health"})
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp HealthResponse
	decode(t, ctx, &resp)
	assert.Equal(t, HealthStatusOK, resp.Status)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, 0)
	assert.NotEmpty(t, resp.StartedAt)
	assert.NotContains(t, string(ctx.Response.Body()), ts.store.Root(), "health must not disclose the site root")
}

func TestServer_RecordsMetrics(t *testing.T) {
	ts := newTestServer(t, map[string]string{"index.html": indexPage}, nil)

	ts.do(request{uri: "/api?action=save&filePath=index.html&title=Metrics+title"})
	ts.do(request{uri: "/api?action=analyze"})
	ts.do(request{uri: "/api?action=get&path=/missing.html"})
	ts.do(request{uri: "/api?action=bogus"})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/metrics")
	ts.metrics.ServeHTTP(ctx)
	body := string(ctx.Response.Body())

	assert.Contains(t, body, `seoeditor_api_requests_total{action="save",status="success"} 1`)
	assert.Contains(t, body, `seoeditor_api_requests_total{action="analyze",status="success"} 1`)
	assert.Contains(t, body, `seoeditor_api_requests_total{action="get",status="error"} 1`)
	assert.Contains(t, body, `seoeditor_api_requests_total{action="invalid",status="error"} 1`)
	assert.Contains(t, body, `seoeditor_saves_total{status="success"} 1`)
	assert.Contains(t, body, "seoeditor_audit_score_count 1")
}
