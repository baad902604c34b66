package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"believescreener/config"
	"believescreener/internal/screener"
	"believescreener/models"
)

// TokenService is the part of screener.Service the handlers use.
type TokenService interface {
	ScrapeAllTokens(ctx context.Context) []models.ListingToken
	FetchTokenData(ctx context.Context, tokenID string) (models.Record, error)
	FetchDashboardMetrics(ctx context.Context) (*models.DashboardMetrics, error)
	SearchTokens(ctx context.Context, query string) []models.ListingToken
}

type pagination struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
	Page  int `json:"page"`
}

type tokenPage struct {
	Tokens     []models.ListingToken `json:"tokens"`
	Pagination pagination            `json:"pagination"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UnixMilli()})
}

func (s *Server) dashboard(c *gin.Context) {
	m, err := s.service.FetchDashboardMetrics(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, m)
}

func (s *Server) tokens(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	all := s.service.ScrapeAllTokens(c.Request.Context())
	page := all
	if len(page) > limit {
		page = page[:limit]
	}
	ok(c, tokenPage{
		Tokens:     page,
		Pagination: pagination{Total: len(all), Limit: limit, Page: 1},
	})
}

func (s *Server) token(c *gin.Context) {
	rec, err := s.service.FetchTokenData(c.Request.Context(), c.Param("tokenId"))
	switch {
	case errors.Is(err, screener.ErrTokenNotFound):
		fail(c, http.StatusNotFound, "Token not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
	default:
		ok(c, rec)
	}
}

func (s *Server) search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		fail(c, http.StatusBadRequest, "Query parameter required")
		return
	}
	ok(c, s.service.SearchTokens(c.Request.Context(), q))
}

func (s *Server) knownTokens(c *gin.Context) {
	ok(c, config.KnownTokens())
}

func (s *Server) opsMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": s.metricStore.snapshot()})
}

func (s *Server) opsLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot()})
}

func (s *Server) opsResources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": s.resourceSampler.snapshot()})
}
