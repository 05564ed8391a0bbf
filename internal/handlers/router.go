package handlers

import (
	"net/http"
	"time"

	"netbons/internal/container"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxUploadMemory = 64 << 20

// API serves the session, catalog and content operations over JSON.
type API struct {
	c *container.Container
}

// NewRouter builds the gin engine for container.
func NewRouter(container *container.Container) *gin.Engine {
	api := &API{c: container}

	r := gin.New()
	r.MaxMultipartMemory = maxUploadMemory
	r.Use(gin.Recovery(), requestLogger(container.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/media/:token", api.serveMedia)

	g := r.Group("/api")
	g.GET("/session", api.session)
	g.POST("/signup", api.signup)
	g.POST("/login", api.login)
	g.POST("/logout", api.logout)
	g.GET("/profiles", api.profiles)
	g.POST("/profiles/:id/select", api.selectProfile)

	// everything past profile selection
	p := g.Group("", api.requireProfile)
	p.GET("/catalog", api.listCatalog)
	p.GET("/catalog/rows", api.rows)
	p.GET("/catalog/:id", api.getMovie)
	p.GET("/catalog/:id/why", api.whyWatch)
	p.POST("/catalog/:id/watchlist", api.toggleWatchList)
	p.GET("/catalog/:id/play", api.play)
	p.POST("/uploads", api.upload)
	p.POST("/links", api.addLink)
	p.POST("/recommendations", api.recommend)

	return r
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithError(c.Errors.Last())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Info("Request rejected")
		default:
			entry.Debug("Request served")
		}
	}
}

func (a *API) requireProfile(c *gin.Context) {
	if _, err := a.c.Sessions.ActiveProfile(); err != nil {
		writeError(c, err)
		c.Abort()
		return
	}
	c.Next()
}
