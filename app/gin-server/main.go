package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/whalechat/config"
	"github.com/yoockh/whalechat/internal/api/handlers"
	"github.com/yoockh/whalechat/internal/api/routes"
	"github.com/yoockh/whalechat/internal/bootstrap"
	"github.com/yoockh/whalechat/internal/logger"
	"github.com/yoockh/whalechat/internal/metrics"
	"github.com/yoockh/whalechat/internal/providers/stt"
	"github.com/yoockh/whalechat/internal/services"
	"github.com/yoockh/whalechat/internal/workers"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config validation failed")
	}
	log := logger.New(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	injector := bootstrap.Setup(cfg, log)
	closers := do.MustInvoke[*bootstrap.Closers](injector)
	defer closers.Close(log)

	// load the recognizer up front so a missing model shows at startup
	loader := do.MustInvoke[*stt.Loader](injector)
	if _, err := loader.Load(); err != nil {
		log.WithError(err).WithField("engine", cfg.STTEngine).Warn("speech recognition disabled")
	} else {
		log.WithField("engine", loader.Name()).Info("speech recognition ready")
	}

	engine, err := buildEngine(cfg, log, injector)
	if err != nil {
		log.WithError(err).Fatal("failed to build dependency graph")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := do.MustInvoke[*workers.TempVoiceJanitor](injector)
	if err := janitor.Start(ctx); err != nil {
		log.WithError(err).Warn("temp voice janitor not started")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":          srv.Addr,
			"chat_provider": cfg.ChatProvider,
			"auth":          cfg.AuthEnabled(),
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}

func buildEngine(cfg *config.Config, log *logrus.Logger, injector do.Injector) (*gin.Engine, error) {
	chat, err := do.Invoke[services.ChatService](injector)
	if err != nil {
		return nil, err
	}
	sessions, err := do.Invoke[services.SessionService](injector)
	if err != nil {
		return nil, err
	}
	speech, err := do.Invoke[services.SpeechService](injector)
	if err != nil {
		return nil, err
	}
	archive, err := do.Invoke[services.ConversationService](injector)
	if err != nil {
		return nil, err
	}
	m := do.MustInvoke[*metrics.Metrics](injector)

	return routes.NewEngine(routes.Deps{
		Chat:         handlers.NewChatHandler(chat),
		Speech:       handlers.NewSpeechHandler(speech),
		Session:      handlers.NewSessionHandler(sessions, chat),
		Conversation: handlers.NewConversationHandler(archive),
		WS:           handlers.NewWSHandler(chat, m, log),
		Logger:       log,
		Metrics:      m,
		Gatherer:     prometheus.Gatherer(do.MustInvoke[*prometheus.Registry](injector)),
		MetricsPath:  cfg.MetricsPath,
		JWTSecret:    cfg.AuthJWTSecret,
		JWTIssuer:    cfg.AuthJWTIssuer,
		JWTAudience:  cfg.AuthJWTAudience,
		StaticDir:    cfg.StaticDir,
		TemplateDir:  cfg.TemplateDir,
	}), nil
}
