// Package api is the HTTP glue over the pipeline and the storage queries.
// Handlers parse parameters and translate results; no pipeline logic lives
// here.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"secnews/internal/aggregator"
	"secnews/internal/storage"
)

type Server struct {
	store *storage.Store
	agg   *aggregator.Aggregator
}

func NewServer(store *storage.Store, agg *aggregator.Aggregator) *Server {
	return &Server{store: store, agg: agg}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/news", s.listNews)
		v1.GET("/news/:id", s.getNews)
		v1.POST("/news/refresh", s.refreshNews)
		v1.POST("/news/cleanup", s.cleanupNews)

		v1.GET("/sources", s.listSources)
		v1.GET("/sources/:id", s.getSource)
		v1.PUT("/sources/:id/toggle", s.toggleSource)

		v1.GET("/categories", s.listCategories)
		v1.GET("/categories/slug/:slug", s.getCategoryBySlug)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listNews(c *gin.Context) {
	opts := storage.ListOptions{
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "page_size", storage.DefaultPageSize),
		Severity: c.Query("severity"),
		Category: c.Query("category"),
		SourceID: uint(intQuery(c, "source_id", 0)),
		Search:   c.Query("search"),
		Days:     intQuery(c, "days", 0),
	}

	page, err := s.store.ListArticles(opts)
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getNews(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid article id"})
		return
	}

	article, err := s.store.ArticleByID(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "article not found"})
		return
	}
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (s *Server) refreshNews(c *gin.Context) {
	count, err := s.agg.Refresh(c.Request.Context())
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh completed", "new_articles": count})
}

func (s *Server) cleanupNews(c *gin.Context) {
	days := intQuery(c, "days", 30)
	if days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "days must be positive"})
		return
	}

	deleted, err := s.agg.PruneOlderThan(days)
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cleanup completed", "deleted": deleted})
}

func (s *Server) listSources(c *gin.Context) {
	activeOnly := c.DefaultQuery("active_only", "true") == "true"
	sources, err := s.store.ListSources(activeOnly)
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, sources)
}

func (s *Server) getSource(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid source id"})
		return
	}

	source, err := s.store.SourceByID(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "source not found"})
		return
	}
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, source)
}

func (s *Server) toggleSource(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid source id"})
		return
	}

	source, err := s.store.ToggleSource(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "source not found"})
		return
	}
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "source toggled", "active": source.Active})
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.store.ListCategories()
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (s *Server) getCategoryBySlug(c *gin.Context) {
	cat, err := s.store.CategoryBySlug(c.Param("slug"))
	if err != nil {
		internalError(c)
		return
	}
	if cat == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "category not found"})
		return
	}
	c.JSON(http.StatusOK, cat)
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}
