package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/internal/common/httputil"
	"github.com/edgecomet/seoeditor/internal/common/requestid"
	"github.com/edgecomet/seoeditor/internal/editor/catalog"
	"github.com/edgecomet/seoeditor/internal/editor/metrics"
	"github.com/edgecomet/seoeditor/internal/editor/site"
)

// Paths served by the editor API
const (
	PathAPI       = "/api"
	PathLegacyAPI = "/seo-api.php"
	PathHealth    = "/health"
)

// CORS values sent on every response
const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "GET, POST, PUT, DELETE"
	corsAllowHeaders = "Content-Type"

	// sent instead when server.api_key is set, so browsers may send the key
	corsAllowHeadersAuth = "Content-Type, X-API-Key, Authorization"
)

type loggerKey struct{}

// Server is the HTTP front of the editor
type Server struct {
	cfg       *configtypes.EditorConfig
	store     *site.Store
	catalog   *catalog.Catalog
	metrics   *metrics.PrometheusMetrics
	routes    map[string]map[string]fasthttp.RequestHandler // method -> path -> handler
	server    *fasthttp.Server
	logger    *zap.Logger
	startTime time.Time

	mu       sync.RWMutex
	listener net.Listener
}

func New(cfg *configtypes.EditorConfig, store *site.Store, cat *catalog.Catalog, pm *metrics.PrometheusMetrics, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		catalog:   cat,
		metrics:   pm,
		routes:    make(map[string]map[string]fasthttp.RequestHandler),
		logger:    logger,
		startTime: time.Now().UTC(),
	}

	for _, path := range []string{PathAPI, PathLegacyAPI} {
		s.RegisterHandler(fasthttp.MethodGet, path, s.handleAPI)
		s.RegisterHandler(fasthttp.MethodPost, path, s.handleAPI)
	}
	s.RegisterHandler(fasthttp.MethodGet, PathHealth, s.handleHealth)

	timeout := time.Duration(cfg.Server.Timeout)
	s.server = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "SEOEditor",
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	return s
}

// RegisterHandler registers a handler for a method and exact path
func (s *Server) RegisterHandler(method, path string, handler fasthttp.RequestHandler) {
	if s.routes[method] == nil {
		s.routes[method] = make(map[string]fasthttp.RequestHandler)
	}
	if _, exists := s.routes[method][path]; exists {
		s.logger.Warn("Overwriting existing handler registration",
			zap.String("method", method),
			zap.String("path", path))
	}
	s.routes[method][path] = handler
}

// Handler returns the root request handler: request ID, CORS, auth, then routing
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		requestID := requestid.GenerateRequestID(string(ctx.Request.Header.Peek(requestid.HeaderName)))
		ctx.Response.Header.Set(requestid.HeaderName, requestID)
		ctx.SetUserValue(loggerKey{}, s.logger.With(zap.String("request_id", requestID)))

		ctx.Response.Header.Set("Access-Control-Allow-Origin", corsAllowOrigin)
		ctx.Response.Header.Set("Access-Control-Allow-Methods", corsAllowMethods)
		allowHeaders := corsAllowHeaders
		if s.cfg.Server.APIKey != "" {
			allowHeaders = corsAllowHeadersAuth
		}
		ctx.Response.Header.Set("Access-Control-Allow-Headers", allowHeaders)

		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		method := string(ctx.Method())
		path := string(ctx.Path())

		if path != PathHealth && !s.authenticate(ctx) {
			return
		}

		if handler, ok := s.routes[method][path]; ok {
			handler(ctx)
			return
		}

		for _, methodRoutes := range s.routes {
			if _, ok := methodRoutes[path]; ok {
				httputil.JSONError(ctx, "method not allowed", fasthttp.StatusMethodNotAllowed)
				return
			}
		}

		httputil.JSONError(ctx, "not found", fasthttp.StatusNotFound)
	}
}

// authenticate checks X-API-Key or a bearer token when server.api_key is set
func (s *Server) authenticate(ctx *fasthttp.RequestCtx) bool {
	if s.cfg.Server.APIKey == "" {
		return true
	}

	key := string(ctx.Request.Header.Peek("X-API-Key"))
	if key == "" {
		auth := string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization))
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			key = strings.TrimSpace(token)
		}
	}

	if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.Server.APIKey)) == 1 {
		return true
	}

	requestLogger(ctx, s.logger).Warn("Unauthorized API request",
		zap.String("path", string(ctx.Path())),
		zap.String("remote_addr", ctx.RemoteAddr().String()))
	httputil.JSONError(ctx, "unauthorized", fasthttp.StatusUnauthorized)
	return false
}

// Start listens on address and serves until Shutdown is called
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return s.Serve(listener)
}

// Serve accepts requests on an already bound listener
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("API server started",
		zap.String("address", listener.Addr().String()),
		zap.String("site_root", s.store.Root()))

	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.ShutdownWithContext(ctx)
}

// Address returns the bound address once serving has started
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// requestLogger returns the request scoped logger set by Handler, or fallback
func requestLogger(ctx *fasthttp.RequestCtx, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.UserValue(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}
