package server_test

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/internal/common/htmlprocessor"
	"github.com/edgecomet/seoeditor/internal/common/redis"
	"github.com/edgecomet/seoeditor/internal/editor/catalog"
	"github.com/edgecomet/seoeditor/internal/editor/metrics"
	"github.com/edgecomet/seoeditor/internal/editor/server"
	"github.com/edgecomet/seoeditor/internal/editor/site"
	"github.com/edgecomet/seoeditor/pkg/types"
)

const landingPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Landing</title>
<link rel="stylesheet" href="/style.css">
</head>
<body>
<h1>Spring collection</h1>
<img src="/hero.jpg">
</body>
</html>`

const postPage = `<html><head><title>Caring for oak furniture at home</title></head><body><h1>Oak care</h1></body></html>`

var _ = Describe("Editor API", func() {
	var (
		siteRoot    string
		mr          *miniredis.Miniredis
		redisClient *redis.Client
		srv         *server.Server
		client      *fasthttp.Client
		baseURL     string
		serveErr    chan error
	)

	call := func(method, uri, contentType, body string) (int, []byte) {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.Header.SetMethod(method)
		req.SetRequestURI(baseURL + uri)
		if contentType != "" {
			req.Header.SetContentType(contentType)
			req.SetBodyString(body)
		}

		Expect(client.DoTimeout(req, resp, 5*time.Second)).To(Succeed())
		return resp.StatusCode(), append([]byte(nil), resp.Body()...)
	}

	getJSON := func(uri string, v interface{}) {
		status, body := call(fasthttp.MethodGet, uri, "", "")
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(json.Unmarshal(body, v)).To(Succeed(), string(body))
	}

	writePage := func(rel, content string) {
		abs := filepath.Join(siteRoot, filepath.FromSlash(rel))
		Expect(os.MkdirAll(filepath.Dir(abs), 0755)).To(Succeed())
		Expect(os.WriteFile(abs, []byte(content), 0644)).To(Succeed())
	}

	readPage := func(rel string) string {
		data, err := os.ReadFile(filepath.Join(siteRoot, filepath.FromSlash(rel)))
		Expect(err).ToNot(HaveOccurred())
		return string(data)
	}

	BeforeEach(func() {
		siteRoot = GinkgoT().TempDir()
		writePage("index.html", landingPage)
		writePage("blog/oak-care.html", postPage)

		logger := zap.NewNop()
		cfg := &configtypes.EditorConfig{
			Server: configtypes.ServerConfig{Listen: "127.0.0.1:0", Timeout: types.Duration(5 * time.Second)},
			Site:   configtypes.SiteConfig{Root: siteRoot, ContentDirs: []string{"blog"}, PublicHost: "shop.example.org"},
			Backup: configtypes.BackupConfig{Compression: types.CompressionSnappy},
		}

		mr = miniredis.RunT(GinkgoT())
		var err error
		redisClient, err = redis.NewClient(&configtypes.RedisConfig{Enabled: true, Addr: mr.Addr()}, logger)
		Expect(err).ToNot(HaveOccurred())

		store, err := site.NewStore(cfg.Site, cfg.Backup, logger)
		Expect(err).ToNot(HaveOccurred())

		pm := metrics.NewPrometheusMetricsWithRegistry("seoeditor", prometheus.NewRegistry(), logger)
		cat := catalog.New(store, logger, catalog.WithScoreCache(redisClient, time.Hour), catalog.WithRecorder(pm))
		srv = server.New(cfg, store, cat, pm, logger)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())

		serveErr = make(chan error, 1)
		go func() {
			serveErr <- srv.Serve(listener)
		}()
		Eventually(srv.Address).ShouldNot(BeEmpty())

		baseURL = "http://" + listener.Addr().String()
		client = &fasthttp.Client{}
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(srv.Shutdown(ctx)).To(Succeed())
		Eventually(serveErr).Should(Receive(BeNil()))
		Expect(redisClient.Close()).To(Succeed())
	})

	Describe("listing", func() {
		It("lists every page with its catalog score and caches the scores", func() {
			var resp struct {
				Pages []types.CatalogEntry `json:"pages"`
			}
			getJSON("/api", &resp)

			Expect(resp.Pages).To(HaveLen(2))
			Expect(resp.Pages[0].FilePath).To(Equal("index.html"))
			Expect(resp.Pages[0].URL).To(Equal("/index.html"))
			Expect(resp.Pages[0].SEOScore).To(Equal(htmlprocessor.CatalogScore(landingPage)))
			Expect(resp.Pages[1].Title).To(Equal("Oak care"))
			Expect(resp.Pages[1].Status).To(Equal(types.PageStatusPublished))

			Expect(mr.Exists(redis.ScoreKey(landingPage))).To(BeTrue())
			Expect(mr.Exists(redis.ScoreKey(postPage))).To(BeTrue())
		})
	})

	Describe("editing a page", func() {
		It("round trips fetched metadata through save", func() {
			var doc types.PageDocument
			getJSON("/api?action=get&path=/", &doc)
			Expect(doc.FilePath).To(Equal("index.html"))
			Expect(doc.SEOData.Title).To(Equal("Landing"))
			Expect(doc.SEOData.Robots).To(Equal(types.DefaultRobots))

			form := "action=save&filePath=index.html" +
				"&title=Spring+collection+2026" +
				"&description=Hand+finished+oak+tables%2C+chairs+and+shelving+for+every+room." +
				"&ogTitle=Spring+collection" +
				"&canonicalUrl=https%3A%2F%2Fshop.example.org%2F"
			status, body := call(fasthttp.MethodPost, "/seo-api.php", "application/x-www-form-urlencoded", form)
			Expect(status).To(Equal(fasthttp.StatusOK))

			var saved types.SaveResult
			Expect(json.Unmarshal(body, &saved)).To(Succeed())
			Expect(saved.Success).To(BeTrue())
			Expect(saved.Backup).To(Equal("index.html.bak"), "pages below the compression threshold are stored as is")

			content := readPage("index.html")
			Expect(content).To(ContainSubstring(`<meta property="og:url" content="https://shop.example.org/index.html">`))
			Expect(content).To(ContainSubstring(`<link rel="stylesheet" href="/style.css">`))

			getJSON("/api?action=get&path=index.html", &doc)
			Expect(doc.SEOData.Title).To(Equal("Spring collection 2026"))
			Expect(doc.SEOData.CanonicalURL).To(Equal("https://shop.example.org/"))
			Expect(doc.SEOData.OGTitle).To(Equal("Spring collection"))
		})

		It("keeps the previous content of a large page in a compressed backup", func() {
			longPage := "<html><head><title>Oak care</title></head><body>" +
				strings.Repeat("<p>Oil the surface twice a year.</p>\n", 64) + "</body></html>"
			writePage("blog/long.html", longPage)

			status, body := call(fasthttp.MethodPost, "/api", "application/json",
				`{"action":"save","filePath":"blog/long.html","title":"Oak care guide"}`)
			Expect(status).To(Equal(fasthttp.StatusOK))

			var saved types.SaveResult
			Expect(json.Unmarshal(body, &saved)).To(Succeed())
			Expect(saved.Backup).To(Equal("blog/long.html.bak.snappy"))

			store, err := site.NewStore(configtypes.SiteConfig{Root: siteRoot}, configtypes.BackupConfig{}, zap.NewNop())
			Expect(err).ToNot(HaveOccurred())
			backup, err := store.ReadBackup("blog/long.html")
			Expect(err).ToNot(HaveOccurred())
			Expect(backup).To(Equal(longPage))
		})

		It("reports a missing file without touching the site", func() {
			status, body := call(fasthttp.MethodPost, "/api", "application/json",
				`{"action":"save","filePath":"blog/missing.html","title":"x"}`)
			Expect(status).To(Equal(fasthttp.StatusOK))
			Expect(body).To(MatchJSON(`{"error":"File not found"}`))
			Expect(readPage("index.html")).To(Equal(landingPage))
		})
	})

	Describe("auditing", func() {
		It("improves the score after fixing the metadata", func() {
			var before types.AnalysisResponse
			getJSON("/api?action=analyze", &before)
			Expect(before.FilePath).To(Equal("index.html"))
			Expect(before.Issues).To(ContainElement(types.Issue{
				Kind:    types.IssueError,
				Message: "Missing meta description",
			}))

			form := "action=save&filePath=index.html" +
				"&title=Spring+collection+of+oak+furniture" +
				"&description=Hand+finished+oak+tables%2C+chairs+and+shelving+for+every+room+of+the+house."
			status, _ := call(fasthttp.MethodPost, "/api", "application/x-www-form-urlencoded", form)
			Expect(status).To(Equal(fasthttp.StatusOK))

			var after types.AnalysisResponse
			getJSON("/api?action=analyze&path=/", &after)
			Expect(after.Score).To(BeNumerically(">", before.Score))
		})
	})

	Describe("scanning", func() {
		It("counts root pages and directories", func() {
			var summary types.ScanSummary
			getJSON("/api?action=scan", &summary)
			Expect(summary.TotalFiles).To(Equal(1))
			Expect(summary.HTMLFiles).To(Equal(1))
			Expect(summary.PHPFiles).To(BeZero())
			Expect(summary.Directories).To(Equal(1))
			Expect(summary.LastScan).To(MatchRegexp(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`))
		})
	})

	Describe("health", func() {
		It("reports ok", func() {
			var health server.HealthResponse
			getJSON("/health", &health)
			Expect(health.Status).To(Equal(server.HealthStatusOK))
			Expect(health.StartedAt).ToNot(BeEmpty())
		})
	})
})
