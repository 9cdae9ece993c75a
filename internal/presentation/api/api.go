package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ringledger/callsync/internal/infrastructure/configs"
	healthHandler "github.com/ringledger/callsync/internal/presentation/handler/health"
	recordsHandler "github.com/ringledger/callsync/internal/presentation/handler/records"
	synclogsHandler "github.com/ringledger/callsync/internal/presentation/handler/synclogs"
	syncrunsHandler "github.com/ringledger/callsync/internal/presentation/handler/syncruns"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Application struct {
	config          configs.Config
	healthHandler   healthHandler.Handler
	recordsHandler  recordsHandler.Handler
	synclogsHandler synclogsHandler.Handler
	syncrunsHandler syncrunsHandler.Handler
	logger          *zap.SugaredLogger
}

func NewApplication(
	config configs.Config,
	healthHandler healthHandler.Handler,
	recordsHandler recordsHandler.Handler,
	synclogsHandler synclogsHandler.Handler,
	syncrunsHandler syncrunsHandler.Handler,
	logger *zap.SugaredLogger,
) *Application {
	return &Application{
		config:          config,
		healthHandler:   healthHandler,
		recordsHandler:  recordsHandler,
		synclogsHandler: synclogsHandler,
		syncrunsHandler: syncrunsHandler,
		logger:          logger,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(app.loggerMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Get("/", app.recordsHandler.ListRecordsHandler)
			r.Get("/{recordId}", app.recordsHandler.GetRecordHandler)
			r.Get("/{recordId}/synclogs", app.synclogsHandler.ListByRecordHandler)
		})

		r.Get("/synclogs", app.synclogsHandler.ListHandler)

		r.Post("/sync/run", app.syncrunsHandler.TriggerRunHandler)

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, "callsync-api")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
