package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/htmlprocessor"
	"github.com/edgecomet/seoeditor/internal/common/httputil"
	"github.com/edgecomet/seoeditor/internal/editor/metrics"
	"github.com/edgecomet/seoeditor/internal/editor/site"
	"github.com/edgecomet/seoeditor/pkg/types"
)

// API actions
const (
	ActionList    = "list"
	ActionGet     = "get"
	ActionSave    = "save"
	ActionScan    = "scan"
	ActionAnalyze = "analyze"
)

// Messages returned to the editor front end
const (
	MsgInvalidAction  = "Invalid action"
	MsgNoDefaultPage  = "No default page found"
	MsgPageNotFound   = "Page not found"
	MsgFileNotFound   = "File not found"
	MsgSaveFailed     = "Failed to save file"
	MsgInternalError  = "Internal error"
	MsgSaveSuccessful = "SEO settings saved successfully"
)

// apiError is a failed action: the message shown to the client and the status
// used when strict_status is enabled
type apiError struct {
	status  int
	message string
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *apiError) Unwrap() error {
	return e.err
}

// classify maps store errors to their fixed client messages
func classify(err error) *apiError {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, site.ErrNoDefaultPage):
		return &apiError{status: fasthttp.StatusNotFound, message: MsgNoDefaultPage, err: err}
	case errors.Is(err, site.ErrPageNotFound):
		return &apiError{status: fasthttp.StatusNotFound, message: MsgPageNotFound, err: err}
	case errors.Is(err, site.ErrFileNotFound):
		return &apiError{status: fasthttp.StatusNotFound, message: MsgFileNotFound, err: err}
	case errors.Is(err, site.ErrSaveFailed):
		return &apiError{status: fasthttp.StatusInternalServerError, message: MsgSaveFailed, err: err}
	default:
		return &apiError{status: fasthttp.StatusInternalServerError, message: MsgInternalError, err: err}
	}
}

// params looks up request values in the query string, then the form body,
// then a JSON object body. With preferBody set the body is read first, which
// is how save fields arrive.
type params struct {
	ctx        *fasthttp.RequestCtx
	json       map[string]interface{}
	preferBody bool
}

func newParams(ctx *fasthttp.RequestCtx) *params {
	p := &params{ctx: ctx}
	if bytes.HasPrefix(ctx.Request.Header.ContentType(), []byte("application/json")) {
		var body map[string]interface{}
		if err := json.Unmarshal(ctx.PostBody(), &body); err == nil {
			p.json = body
		}
	}
	return p
}

func (p *params) get(name string) string {
	if p.preferBody {
		if v := p.body(name); v != "" {
			return v
		}
		return p.query(name)
	}
	if v := p.query(name); v != "" {
		return v
	}
	return p.body(name)
}

func (p *params) query(name string) string {
	return string(p.ctx.QueryArgs().Peek(name))
}

func (p *params) body(name string) string {
	if v := p.ctx.PostArgs().Peek(name); len(v) > 0 {
		return string(v)
	}
	if form, err := p.ctx.MultipartForm(); err == nil {
		if values := form.Value[name]; len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	switch v := p.json[name].(type) {
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	}
	return ""
}

func (p *params) getDefault(name, fallback string) string {
	if v := p.get(name); v != "" {
		return v
	}
	return fallback
}

// handleAPI dispatches on the action parameter
func (s *Server) handleAPI(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	logger := requestLogger(ctx, s.logger)
	p := newParams(ctx)
	action := p.getDefault("action", ActionList)

	var (
		result interface{}
		err    error
	)
	switch action {
	case ActionList:
		result, err = s.listPages(ctx)
	case ActionGet:
		result, err = s.getPage(p)
	case ActionSave:
		result, err = s.savePage(ctx, p, logger)
	case ActionScan:
		result, err = s.store.Scan()
	case ActionAnalyze:
		result, err = s.analyzePage(p)
	default:
		err = &apiError{status: fasthttp.StatusBadRequest, message: MsgInvalidAction}
		action = "invalid"
	}

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	if s.metrics != nil {
		s.metrics.RecordAPIRequest(action, status, time.Since(start))
	}

	if err != nil {
		ae := classify(err)
		logger.Warn("API action failed",
			zap.String("action", action),
			zap.String("message", ae.message),
			zap.Error(err))
		httputil.JSONError(ctx, ae.message, s.errorStatus(ae))
		return
	}

	logger.Debug("API action completed",
		zap.String("action", action),
		zap.Duration("duration", time.Since(start)))
	httputil.JSONData(ctx, result)
}

// errorStatus keeps errors at 200 unless strict_status is set
func (s *Server) errorStatus(ae *apiError) int {
	if s.cfg.Server.StrictStatus {
		return ae.status
	}
	return fasthttp.StatusOK
}

func (s *Server) listPages(ctx *fasthttp.RequestCtx) (interface{}, error) {
	entries, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"pages": entries}, nil
}

func (s *Server) getPage(p *params) (interface{}, error) {
	rel, err := s.store.Resolve(p.getDefault("path", "/"))
	if err != nil {
		return nil, err
	}

	content, _, err := s.store.Read(rel)
	if err != nil {
		return nil, err
	}

	return types.PageDocument{
		FilePath: rel,
		Content:  content,
		SEOData:  htmlprocessor.Extract(content),
	}, nil
}

func (s *Server) savePage(ctx *fasthttp.RequestCtx, p *params, logger *zap.Logger) (interface{}, error) {
	p.preferBody = true
	filePath := p.get("filePath")
	if filePath == "" {
		return nil, &apiError{status: fasthttp.StatusBadRequest, message: MsgFileNotFound}
	}

	content, _, err := s.store.Read(filePath)
	if err != nil {
		s.recordSave(metrics.StatusError)
		return nil, err
	}

	updated := htmlprocessor.Mutate(content, recordFromParams(p), s.requestContext(ctx, filePath))

	backup, err := s.store.Save(filePath, updated)
	if err != nil {
		s.recordSave(metrics.StatusError)
		return nil, err
	}
	s.recordSave(metrics.StatusSuccess)

	logger.Info("Saved SEO settings",
		zap.String("file_path", filePath),
		zap.String("backup", backup))

	return types.SaveResult{
		Success: true,
		Message: MsgSaveSuccessful,
		Backup:  backup,
	}, nil
}

func (s *Server) analyzePage(p *params) (interface{}, error) {
	rel, err := s.store.ResolveForAnalysis(p.getDefault("path", "/"))
	if err != nil {
		return nil, err
	}

	content, _, err := s.store.Read(rel)
	if err != nil {
		return nil, err
	}

	audit := htmlprocessor.Analyze(content)
	if s.metrics != nil {
		s.metrics.RecordAuditScore(audit.Score)
	}

	return types.AnalysisResponse{
		Score:    audit.Score,
		Issues:   audit.Issues,
		FilePath: rel,
	}, nil
}

func (s *Server) recordSave(status string) {
	if s.metrics != nil {
		s.metrics.RecordSave(status)
	}
}

// requestContext builds the og:url inputs for a save of filePath
func (s *Server) requestContext(ctx *fasthttp.RequestCtx, filePath string) htmlprocessor.RequestContext {
	host := s.cfg.Site.PublicHost
	if host == "" {
		host = string(ctx.Host())
	}
	return htmlprocessor.RequestContext{
		Host:       host,
		RequestURI: "/" + site.CleanPath(filePath),
	}
}

// recordFromParams starts from the documented defaults and overrides every field
// the caller sent with a non-empty value
func recordFromParams(p *params) types.MetadataRecord {
	record := types.NewMetadataRecord()
	for _, name := range types.RecordFields {
		if v := p.get(name); v != "" {
			*record.Field(name) = v
		}
	}
	return record
}
