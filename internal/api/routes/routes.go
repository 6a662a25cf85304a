package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/whalechat/internal/api/handlers"
	"github.com/yoockh/whalechat/internal/api/middleware"
	"github.com/yoockh/whalechat/internal/metrics"
)

type Deps struct {
	Chat         *handlers.ChatHandler
	Speech       *handlers.SpeechHandler
	Session      *handlers.SessionHandler
	Conversation *handlers.ConversationHandler
	WS           *handlers.WSHandler

	Logger   *logrus.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil disables the metrics endpoint

	MetricsPath string
	JWTSecret   string // empty disables auth
	JWTIssuer   string
	JWTAudience string
	StaticDir   string
	TemplateDir string
}

func (d Deps) metricsPath() string {
	if d.MetricsPath == "" {
		return "/metrics"
	}
	return d.MetricsPath
}

func NewEngine(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Logger != nil {
		r.Use(middleware.RequestLogger(d.Logger, "/ping", d.metricsPath()))
	}
	r.Use(middleware.Metrics(d.Metrics), middleware.CORS())

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if d.Gatherer != nil {
		r.GET(d.metricsPath(), gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	registerPages(r, d.StaticDir, d.TemplateDir)

	api := r.Group("/")
	if d.JWTSecret != "" {
		api.Use(middleware.JWTAuth(d.JWTSecret, d.JWTIssuer, d.JWTAudience))
	}

	api.POST("/chat", d.Chat.Chat)
	api.POST("/speech-to-text", d.Speech.SpeechToText)
	api.GET("/speech/:session_id/logs", d.Speech.Logs)

	api.POST("/session", d.Session.Start)
	api.GET("/session/:session_id/history", d.Session.History)
	api.DELETE("/session/:session_id", d.Session.End)

	api.GET("/conversation/:session_id", d.Conversation.ListBySession)

	// WebSocket
	api.GET("/ws/chat", d.WS.Chat)
}

// registerPages serves the browser client when its directories exist.
func registerPages(r *gin.Engine, staticDir, templateDir string) {
	if isDir(staticDir) {
		r.Static("/static", staticDir)
	}

	index := filepath.Join(templateDir, "index.html")
	if templateDir != "" && isFile(index) {
		r.LoadHTMLFiles(index)
		r.GET("/", func(c *gin.Context) {
			c.HTML(http.StatusOK, "index.html", nil)
		})
		return
	}
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "whalechat"})
	})
}

func isDir(p string) bool {
	if p == "" {
		return false
	}
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}
