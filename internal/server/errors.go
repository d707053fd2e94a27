package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/storystats/internal/database"
	"github.com/TobiSchelling/storystats/internal/stats"
)

// respondError maps err onto a status code and a JSON error body. Store
// failures are logged and reported without detail.
func respondError(c *gin.Context, err error) {
	var input *stats.InputError
	switch {
	case errors.As(err, &input):
		c.JSON(http.StatusBadRequest, gin.H{"error": input.Message, "param": input.Param})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, database.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		requestLog(c).WithField("error", err.Error()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}

// pathID parses the :id route parameter, answering 404 when it is not a
// positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return id, true
}

// bindBody decodes the JSON request body into dst.
func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// digitParam reads an unsigned integer query parameter. Values that are
// not all digits are ignored.
func digitParam(c *gin.Context, name string) *int64 {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// sinceParam turns a days query parameter into a lower creation bound.
func (s *Server) sinceParam(c *gin.Context) *time.Time {
	days := digitParam(c, "days")
	if days == nil {
		return nil
	}
	since := s.now().Add(-time.Duration(*days) * 24 * time.Hour)
	return &since
}

// nullable maps an empty string onto NULL.
func nullable(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// optionalRef maps a zero id onto NULL.
func optionalRef(id *int64) *int64 {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
