package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/storystats/internal/compose"
	"github.com/TobiSchelling/storystats/internal/stats"
)

const cacheHeader = "X-Cache"

// handleStats returns the statistics payload for the query's criteria,
// serving it from the cache when possible.
func (s *Server) handleStats(c *gin.Context) {
	crit, err := stats.ParseCriteria(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	key := crit.Key()
	cached, gen, ok := s.cache.Get(ctx, key)
	if ok {
		c.Header(cacheHeader, "hit")
		c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
		return
	}

	p, err := s.engine.Compute(ctx, crit)
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		respondError(c, err)
		return
	}
	s.cache.Set(ctx, key, gen, body)

	c.Header(cacheHeader, "miss")
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// handleDigest renders the payload as a markdown report.
func (s *Server) handleDigest(c *gin.Context) {
	crit, err := stats.ParseCriteria(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := s.engine.Compute(c.Request.Context(), crit)
	if err != nil {
		respondError(c, err)
		return
	}

	md := compose.Digest(p, crit, s.now())
	html, err := compose.RenderHTML(md)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markdown": md, "html": html})
}
