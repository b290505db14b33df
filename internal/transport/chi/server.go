package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	"github.com/kailas-cloud/tagdex/internal/logger"
	healthuc "github.com/kailas-cloud/tagdex/internal/usecase/health"
	queryuc "github.com/kailas-cloud/tagdex/internal/usecase/query"
	tagginguc "github.com/kailas-cloud/tagdex/internal/usecase/tagging"
)

// maxBodyBytes caps request bodies; bulk loads are the largest.
const maxBodyBytes = 64 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the tagdex HTTP API.
type Server struct {
	tagging       *tagginguc.Service
	query         *queryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	tagging *tagginguc.Service,
	query *queryuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		tagging: tagging,
		query:   query,
		health:  health,
		logger:  logger,
	}
	// Order matters: the specific not-found sentinels wrap ErrNotFound.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrArticleNotFound, http.StatusNotFound, CodeArticleNotFound),
		sentinelHandler(domain.ErrTagNotFound, http.StatusNotFound, CodeTagNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeInvalidArgument),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
	return s
}

// Routes registers the API under /api/v1 plus /health and /metrics on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", s.ListArticles)
			r.Post("/bulk", s.BulkLoadArticles)
			r.Get("/tags", s.ListTagsForArticles)
			r.Get("/keywords", s.ListKeywords)
			r.Get("/urls", s.ResolveArticleURLs)
			r.Get("/{id}", s.GetArticle)
		})
		r.Get("/tag-occurrences", s.ListTagOccurrences)
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.ListTags)
			r.Post("/", s.CreateTag)
			r.Get("/{name}", s.GetTag)
			r.Patch("/{name}", s.UpdateTag)
			r.Delete("/{name}", s.DeleteTag)
			r.Get("/{name}/articles", s.ListTagArticles)
			r.Post("/{name}/articles", s.AddTagToArticles)
			r.Post("/{name}/articles/remove", s.RemoveTagFromArticles)
		})
	})
}

// --- articles ---

// ListArticles handles GET /articles.
func (s *Server) ListArticles(w http.ResponseWriter, r *http.Request) {
	cursor, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	page, next, err := s.query.ListArticles(r.Context(), cursor, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := ArticleListResponse{Items: make([]ArticleSummary, len(page)), HasMore: next != ""}
	for i := range page {
		resp.Items[i] = summaryToAPI(page[i])
	}
	if next != "" {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetArticle handles GET /articles/{id}.
func (s *Server) GetArticle(w http.ResponseWriter, r *http.Request) {
	var id int64
	if err := bindPath(r, "id", &id); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	a, err := s.query.GetArticle(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleToAPI(&a))
}

// BulkLoadArticles handles POST /articles/bulk.
func (s *Server) BulkLoadArticles(w http.ResponseWriter, r *http.Request) {
	var req BulkArticlesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Articles) == 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidArgument, "articles must not be empty")
		return
	}

	drafts := make([]domart.Draft, len(req.Articles))
	for i := range req.Articles {
		drafts[i] = req.Articles[i].draft()
	}
	results, err := s.tagging.BulkLoadArticles(r.Context(), drafts)
	s.writeMutation(w, r, results, err)
}

// ListTagsForArticles handles GET /articles/tags?ids=&dedupe=.
func (s *Server) ListTagsForArticles(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := bindQuery(r, "ids", true, &ids); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	dedupe := true
	var dedupeParam *bool
	if err := bindQuery(r, "dedupe", false, &dedupeParam); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if dedupeParam != nil {
		dedupe = *dedupeParam
	}

	names, err := s.query.ListTagsForArticles(r.Context(), ids, dedupe)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NamesResponse{Names: nonNil(names)})
}

// ListKeywords handles GET /articles/keywords[?ids=]. Without ids every keyword is listed.
func (s *Server) ListKeywords(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := bindQuery(r, "ids", false, &ids); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var (
		kws []string
		err error
	)
	if r.URL.Query().Has("ids") {
		kws, err = s.query.ListKeywordsForArticles(r.Context(), ids)
	} else {
		kws, err = s.query.ListAllKeywords(r.Context())
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, KeywordsResponse{Keywords: nonNil(kws)})
}

// ResolveArticleURLs handles GET /articles/urls?ids=.
func (s *Server) ResolveArticleURLs(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := bindQuery(r, "ids", true, &ids); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	urls, err := s.query.ResolveArticleURLs(r.Context(), ids)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, URLsResponse{URLs: nonNil(urls)})
}

// --- tags ---

// ListTags handles GET /tags. ?prefix= filters names; ?full=true pages through tag records.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	var full bool
	if err := bindQuery(r, "full", false, &full); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if full {
		s.listTagRecords(w, r)
		return
	}

	var (
		names []string
		err   error
	)
	if q := r.URL.Query(); q.Has("prefix") {
		names, err = s.query.FindTagsByPrefix(r.Context(), q.Get("prefix"))
	} else {
		names, err = s.query.ListAllTagNames(r.Context())
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NamesResponse{Names: nonNil(names)})
}

func (s *Server) listTagRecords(w http.ResponseWriter, r *http.Request) {
	cursor, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	tags, next, err := s.query.ListTags(r.Context(), cursor, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := TagListResponse{Items: make([]Tag, len(tags)), HasMore: next != ""}
	for i := range tags {
		resp.Items[i] = tagToAPI(&tags[i])
	}
	if next != "" {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListTagOccurrences handles GET /tag-occurrences.
func (s *Server) ListTagOccurrences(w http.ResponseWriter, r *http.Request) {
	names, err := s.query.ListTagOccurrences(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NamesResponse{Names: nonNil(names)})
}

// CreateTag handles POST /tags.
func (s *Server) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}

	t, err := s.tagging.CreateTag(r.Context(), req.Name, req.Description)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tagToAPI(&t))
}

// GetTag handles GET /tags/{name}.
func (s *Server) GetTag(w http.ResponseWriter, r *http.Request) {
	name, ok := tagName(w, r)
	if !ok {
		return
	}

	t, err := s.query.GetTag(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagToAPI(&t))
}

// UpdateTag handles PATCH /tags/{name}. Only the description is mutable.
func (s *Server) UpdateTag(w http.ResponseWriter, r *http.Request) {
	name, ok := tagName(w, r)
	if !ok {
		return
	}
	var req UpdateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}

	t, err := s.tagging.UpdateTagDescription(r.Context(), name, req.Description)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagToAPI(&t))
}

// DeleteTag handles DELETE /tags/{name}. The body reports the cascade per article.
func (s *Server) DeleteTag(w http.ResponseWriter, r *http.Request) {
	name, ok := tagName(w, r)
	if !ok {
		return
	}

	results, err := s.tagging.DeleteTag(r.Context(), name)
	s.writeMutation(w, r, results, err)
}

// ListTagArticles handles GET /tags/{name}/articles.
func (s *Server) ListTagArticles(w http.ResponseWriter, r *http.Request) {
	name, ok := tagName(w, r)
	if !ok {
		return
	}

	ids, err := s.query.ListArticleIDsByTag(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IDsResponse{IDs: nonNil(ids)})
}

// AddTagToArticles handles POST /tags/{name}/articles.
func (s *Server) AddTagToArticles(w http.ResponseWriter, r *http.Request) {
	name, ids, ok := s.tagAndIDs(w, r)
	if !ok {
		return
	}
	results, err := s.tagging.AddTagToArticles(r.Context(), name, ids)
	s.writeMutation(w, r, results, err)
}

// RemoveTagFromArticles handles POST /tags/{name}/articles/remove.
func (s *Server) RemoveTagFromArticles(w http.ResponseWriter, r *http.Request) {
	name, ids, ok := s.tagAndIDs(w, r)
	if !ok {
		return
	}
	results, err := s.tagging.RemoveTagFromArticles(r.Context(), name, ids)
	s.writeMutation(w, r, results, err)
}

func (s *Server) tagAndIDs(w http.ResponseWriter, r *http.Request) (string, []int64, bool) {
	name, ok := tagName(w, r)
	if !ok {
		return "", nil, false
	}
	var req ArticleIDsRequest
	if !decodeBody(w, r, &req) {
		return "", nil, false
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidArgument, "ids must not be empty")
		return "", nil, false
	}
	return name, req.IDs, true
}

// --- health & metrics ---

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- helpers ---

// writeMutation answers 200 when every item applied, 207 with the per-item list on
// partial failure, and maps any other error through the sentinel handlers.
func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, results []batch.Result, err error) {
	var pfe *domain.PartialFailureError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, mutationToAPI(results))
	case errors.As(err, &pfe):
		s.requestLogger(r).Warn("partial failure", zap.Error(err))
		writeJSON(w, http.StatusMultiStatus, mutationToAPI(pfe.Results))
	case len(results) > 0:
		// stopped mid-way; the items already applied must still be reported
		s.requestLogger(r).Warn("mutation interrupted", zap.Int("done", len(results)), zap.Error(err))
		writeJSON(w, http.StatusMultiStatus, mutationToAPI(results))
	default:
		s.handleDomainError(w, r, err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func tagName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := pathParam(r, "name")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return "", false
	}
	return name, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Invalid arguments keep their detail since it describes the caller's own input.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidArgument) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrArticleNotFound,
		domain.ErrTagNotFound,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
		}
		writeError(w, status, code, msg)
		return true
	}
}

const retryAfterSec = 1

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// requestLogger prefers the request-scoped logger set by the wide-event middleware.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if l, ok := logger.Lookup(r.Context()); ok {
		return l
	}
	return s.logger
}
