package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
	"github.com/magabrotheeeer/fintrack-gateway/internal/cache"
	"github.com/magabrotheeeer/fintrack-gateway/internal/config"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/health"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	adminservice "github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
	auditservice "github.com/magabrotheeeer/fintrack-gateway/internal/services/audit"
	billingservice "github.com/magabrotheeeer/fintrack-gateway/internal/services/billing"
)

type App struct {
	server    *http.Server
	logger    *slog.Logger
	cfg       *config.Config
	redis     *cache.RedisStore
	queries   *cache.QueryCache
	publisher *rabbitmq.Publisher
	auditCh   *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "gateway.New"

	app := &App{logger: logger, cfg: cfg}

	var store cache.Store = cache.NewMemoryStore()
	checks := map[string]health.Pinger{}
	if cfg.Driver == config.CacheDriverRedis {
		redisStore, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.redis = redisStore
		store = redisStore
		checks["redis"] = redisStore
	}
	queryCache := cache.New(store, logger, cache.WithGCTime(cfg.GCTime))
	app.queries = queryCache

	publisher, err := rabbitmq.NewPublisher(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.publisher = publisher

	if publisher.Enabled() && cfg.AuditQueue != "" {
		ch, err := publisher.Connection().Channel()
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.auditCh = ch
		if err := rabbitmq.BindQueue(ch, cfg.Exchange, rabbitmq.AuditQueue(cfg.AuditQueue)); err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	frontend, err := NewFrontendProxy(cfg.UpstreamURL, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	backend := apiclient.New(cfg.BaseURL, cfg.Backend.Timeout, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Config:   cfg,
		Sessions: jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Backend:  backend,
		Admin:    adminservice.New(backend, queryCache, publisher, logger),
		Billing:  billingservice.New(backend, queryCache, logger),
		Frontend: frontend,
		Health:   checks,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.RegisterTimeout + cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.queries.RunGC(ctx, a.cfg.GCInterval)

	if a.auditCh != nil {
		audit := auditservice.New(a.logger)
		if err := rabbitmq.Consume(ctx, a.auditCh, a.cfg.AuditQueue, a.logger, audit.Handle); err != nil {
			a.close()
			return err
		}
		a.logger.Info("audit consumer started", slog.String("queue", a.cfg.AuditQueue))
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownPeriod)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.auditCh != nil {
		if err := a.auditCh.Close(); err != nil {
			a.logger.Warn("failed to close audit channel", sl.Err(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq publisher", sl.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
}
