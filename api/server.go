package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/ainews/articles"
	"github.com/pevans/ainews/classifier"
	"github.com/pevans/ainews/discovery"
	"github.com/pevans/ainews/report"
	"github.com/pevans/ainews/scraper"
	"github.com/sirupsen/logrus"
)

// Store is the read side of the article store.
type Store interface {
	GetArticle(id uuid.UUID) (*articles.Article, error)
	GetArticles(ids []uuid.UUID) ([]articles.Article, error)
	ListUnclassified() ([]articles.Article, error)
	ListClassified(date *civil.Date) ([]articles.Article, error)
}

// Syncer runs the fetch pipeline for one source.
type Syncer interface {
	Sync(src scraper.Source, date civil.Date, updateExisting bool) (discovery.SyncResult, error)
	Today() civil.Date
}

// ClassifyRunner classifies pending articles.
type ClassifyRunner interface {
	Run(ctx context.Context) (classifier.RunResult, error)
}

// Exporter renders a PDF report.
type Exporter interface {
	Export(items []articles.Article) ([]byte, error)
}

// ErrClassifierUnavailable is reported when no classifier is configured.
var ErrClassifierUnavailable = errors.New("classifier is not configured")

// ServerConfig wires the server to its collaborators. Runner may be nil
// when no API key is configured.
type ServerConfig struct {
	Store    Store
	Syncer   Syncer
	Runner   ClassifyRunner
	Exporter Exporter
	Sources  []scraper.Source
	SiteName string
	Log      logrus.FieldLogger
}

// Server is the HTTP API over the article pipeline.
type Server struct {
	store    Store
	syncer   Syncer
	runner   ClassifyRunner
	exporter Exporter
	sources  []scraper.Source
	siteName string
	log      logrus.FieldLogger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Log
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Server{
		store:    cfg.Store,
		syncer:   cfg.Syncer,
		runner:   cfg.Runner,
		exporter: cfg.Exporter,
		sources:  cfg.Sources,
		siteName: cfg.SiteName,
		log:      logger,
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/articles", s.HandleListArticles)
	api.GET("/articles/unclassified", s.HandleListUnclassified)
	api.GET("/articles/:id", s.HandleGetArticle)
	api.POST("/sync", s.HandleSync)
	api.POST("/classify", s.HandleClassify)
	api.POST("/report", s.HandleReport)
	api.GET("/sources", s.HandleListSources)

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}

// ListArticlesResponse represents the response for article listings.
type ListArticlesResponse struct {
	Articles []articles.Article `json:"articles"`
	Total    int                `json:"total"`
}

// SyncRequest represents the request for POST /api/v1/sync. An empty
// source syncs every configured source; an empty date means today.
type SyncRequest struct {
	Source         string `json:"source"`
	Date           string `json:"date"`
	UpdateExisting bool   `json:"update_existing"`
}

// SyncSourceResult reports one source's outcome.
type SyncSourceResult struct {
	Source string               `json:"source"`
	Result discovery.SyncResult `json:"result"`
	Error  *string              `json:"error,omitempty"`
}

// SyncResponse represents the response for POST /api/v1/sync.
type SyncResponse struct {
	Date    string             `json:"date"`
	Results []SyncSourceResult `json:"results"`
}

// ReportRequest represents the request for POST /api/v1/report.
type ReportRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// SourceResponse describes one configured source.
type SourceResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *Server) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, articles.ErrArticleNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, report.ErrNothingToExport):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, scraper.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	case errors.Is(err, scraper.ErrFetchFailed), errors.Is(err, scraper.ErrParseFailed):
		c.JSON(http.StatusBadGateway, errorResponse("upstream_error", err.Error()))
	case errors.Is(err, ErrClassifierUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse("unavailable", err.Error()))
	default:
		s.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleListArticles handles GET /api/v1/articles. Returns the articles
// classified as AI-related, optionally only those published on ?date=.
func (s *Server) HandleListArticles(c *gin.Context) {
	var date *civil.Date
	if param := c.Query("date"); param != "" {
		d, err := civil.ParseDate(param)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("validation_error", "date must be YYYY-MM-DD"))
			return
		}
		date = &d
	}

	items, err := s.store.ListClassified(date)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListArticlesResponse{Articles: items, Total: len(items)})
}

// HandleListUnclassified handles GET /api/v1/articles/unclassified.
func (s *Server) HandleListUnclassified(c *gin.Context) {
	items, err := s.store.ListUnclassified()
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListArticlesResponse{Articles: items, Total: len(items)})
}

// HandleGetArticle handles GET /api/v1/articles/{id}.
func (s *Server) HandleGetArticle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid article ID"))
		return
	}

	item, err := s.store.GetArticle(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// HandleSync handles POST /api/v1/sync.
func (s *Server) HandleSync(c *gin.Context) {
	var req SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
			return
		}
	}

	date := s.syncer.Today()
	if req.Date != "" {
		d, err := civil.ParseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("validation_error", "date must be YYYY-MM-DD"))
			return
		}
		date = d
	}

	targets := s.sources
	if req.Source != "" {
		src, ok := s.findSource(req.Source)
		if !ok {
			c.JSON(http.StatusNotFound, errorResponse("not_found", "unknown source: "+req.Source))
			return
		}
		targets = []scraper.Source{src}
	}

	resp := SyncResponse{Date: date.String(), Results: []SyncSourceResult{}}
	for _, src := range targets {
		result, err := s.syncer.Sync(src, date, req.UpdateExisting)

		entry := SyncSourceResult{Source: src.Label(s.siteName), Result: result}
		if err != nil {
			if len(targets) == 1 {
				s.handleError(c, err)
				return
			}
			msg := err.Error()
			entry.Error = &msg
		}
		resp.Results = append(resp.Results, entry)
	}

	c.JSON(http.StatusOK, resp)
}

// HandleClassify handles POST /api/v1/classify.
func (s *Server) HandleClassify(c *gin.Context) {
	if s.runner == nil {
		s.handleError(c, ErrClassifierUnavailable)
		return
	}

	result, err := s.runner.Run(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleReport handles POST /api/v1/report. Responds with the PDF for the
// selected articles, in the order given.
func (s *Server) HandleReport(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid article ID: "+raw))
			return
		}
		ids = append(ids, id)
	}

	items, err := s.store.GetArticles(ids)
	if err != nil {
		s.handleError(c, err)
		return
	}

	data, err := s.exporter.Export(orderByIDs(items, ids))
	if err != nil {
		s.handleError(c, err)
		return
	}

	filename := report.FileName(s.syncer.Today())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// HandleListSources handles GET /api/v1/sources.
func (s *Server) HandleListSources(c *gin.Context) {
	sources := make([]SourceResponse, 0, len(s.sources))
	for _, src := range s.sources {
		sources = append(sources, SourceResponse{
			Name: src.Label(s.siteName),
			URL:  src.URL,
			Kind: src.Kind,
		})
	}

	c.JSON(http.StatusOK, gin.H{"sources": sources, "total": len(sources)})
}

func (s *Server) findSource(name string) (scraper.Source, bool) {
	for _, src := range s.sources {
		if strings.EqualFold(src.Label(s.siteName), strings.TrimSpace(name)) {
			return src, true
		}
	}
	return scraper.Source{}, false
}

// orderByIDs returns items in the order of ids.
func orderByIDs(items []articles.Article, ids []uuid.UUID) []articles.Article {
	byID := make(map[uuid.UUID]articles.Article, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	ordered := make([]articles.Article, 0, len(items))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
			delete(byID, id)
		}
	}
	return ordered
}
