// Package httpserver exposes the health check and the Telegram webhook.
package httpserver

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// UpdateParser is satisfied by *tgbotapi.BotAPI.
type UpdateParser interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

type Server struct {
	// Secret is the last path segment of the webhook URL. Empty disables the webhook.
	Secret  string
	Parser  UpdateParser
	Updates chan<- tgbotapi.Update
	// DB is optional.
	DB  Pinger
	Log *slog.Logger
}

// WebhookPath is where Telegram posts updates for secret.
func WebhookPath(secret string) string { return "/webhook/" + secret }

func (s *Server) Handler() http.Handler {
	if s.Log == nil {
		s.Log = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog)

	r.GET("/healthz", s.healthz)
	if s.Secret != "" {
		r.POST("/webhook/:secret", s.webhook)
	}
	return r
}

func (s *Server) healthz(c *gin.Context) {
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) webhook(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(s.Secret)) != 1 {
		c.Status(http.StatusNotFound)
		return
	}
	upd, err := s.Parser.HandleUpdate(c.Request)
	if err != nil {
		s.Log.Warn("bad webhook update", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	select {
	case s.Updates <- *upd:
		c.Status(http.StatusOK)
	case <-c.Request.Context().Done():
		c.Status(http.StatusServiceUnavailable)
	}
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	// The webhook path carries the secret; log the route instead.
	s.Log.Debug("http request",
		"method", c.Request.Method,
		"route", c.FullPath(),
		"status", c.Writer.Status(),
		"took", time.Since(start),
	)
}

// Run serves h on addr until ctx ends.
func Run(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("http server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
