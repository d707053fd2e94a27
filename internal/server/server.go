// Package server exposes the statistics endpoint and the record CRUD API
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/storystats/internal/cache"
	"github.com/TobiSchelling/storystats/internal/database"
	"github.com/TobiSchelling/storystats/internal/logger"
	"github.com/TobiSchelling/storystats/internal/stats"
)

const logEntryKey = "log"

// Options configures a Server. Zero values are usable.
type Options struct {
	AllowedOrigins []string
	Cache          cache.Cache
	Engine         *stats.Engine
	Now            func() time.Time
}

// Server is the HTTP API.
type Server struct {
	db     *database.DB
	engine *stats.Engine
	cache  cache.Cache
	log    *logger.Logger
	now    func() time.Time
	router *gin.Engine
}

// New creates a new Server.
func New(db *database.DB, log *logger.Logger, opts Options) *Server {
	s := &Server{
		db:     db,
		engine: opts.Engine,
		cache:  opts.Cache,
		log:    log.Component("server"),
		now:    opts.Now,
	}
	if s.engine == nil {
		s.engine = stats.NewEngine(db)
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	r := gin.New()
	r.Use(s.requestLogger(), gin.Recovery())

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders: []string{logger.RequestIDHeader},
	}))

	s.router = r
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api", s.invalidateOnWrite())
	api.GET("/stats", s.handleStats)
	api.GET("/stats/digest", s.handleDigest)

	resource(api, "/category", s.listCategories, s.createCategory, s.getCategory, s.updateCategory, s.deleteCategory)
	resource(api, "/sub-topics", s.listSubTopics, s.createSubTopic, s.getSubTopic, s.updateSubTopic, s.deleteSubTopic)
	resource(api, "/topics", s.listTopics, s.createTopic, s.getTopic, s.updateTopic, s.deleteTopic)
	resource(api, "/instagram-pages", s.listPages, s.createPage, s.getPage, s.updatePage, s.deletePage)
	resource(api, "/storymodel", s.listStories, s.createStory, s.getStory, s.updateStory, s.deleteStory)
	resource(api, "/dayanalysis", s.listDayAnalyses, s.createDayAnalysis, s.getDayAnalysis, s.updateDayAnalysis, s.deleteDayAnalysis)
}

// resource registers the list/create/retrieve/update/delete routes of a
// collection. PUT and PATCH share the partial update handler.
func resource(g *gin.RouterGroup, path string, list, create, get, update, del gin.HandlerFunc) {
	g.GET(path, list)
	g.POST(path, create)
	g.GET(path+"/:id", get)
	g.PUT(path+"/:id", update)
	g.PATCH(path+"/:id", update)
	g.DELETE(path+"/:id", del)
}

// requestLogger tags every request with an id and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := logger.RequestID(c.Request)
		c.Header(logger.RequestIDHeader, reqID)
		entry := s.log.WithRequest(c.Request, reqID)
		c.Set(logEntryKey, entry)

		start := time.Now()
		c.Next()

		entry.WithFields(logrus.Fields{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request")
	}
}

// invalidateOnWrite drops cached statistics after every successful write.
func (s *Server) invalidateOnWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		if err := s.cache.Invalidate(c.Request.Context()); err != nil {
			requestLog(c).WithError(err).Warn("failed to invalidate stats cache")
		}
	}
}

func requestLog(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(logEntryKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		requestLog(c).WithError(err).Error("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, srv *Server, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.log.Infof("server listening on http://%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.log.Info("shutting down server")
		return httpSrv.Shutdown(shutdownCtx)
	}
}
