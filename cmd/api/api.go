package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/docs"
	"github.com/Kewen526/serv-qoute/internal/ratelimiter"
	"github.com/Kewen526/serv-qoute/internal/worker"
)

type application struct {
	config      config
	logger      *zap.SugaredLogger
	rateLimiter ratelimiter.Limiter
	sweepWorker *worker.SweepWorker
}

type config struct {
	addr            string
	env             string
	apiURL          string
	rateLimiter     ratelimiter.Config
	servicePoints   servicePointsConfig
	keerURL         string
	sweep           sweepConfig
	imageMaxRetries int
}

type servicePointsConfig struct {
	BaseURL string
	APIKey  string
}

type sweepConfig struct {
	StoreCode    string
	IdleInterval time.Duration
	TaskPause    time.Duration
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		app.notFoundError(w, r, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		r.Post("/sweep", app.triggerSweepHandler)
		r.Get("/sweep/stats", app.sweepStatsHandler)

		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	// docs
	docs.SwaggerInfo.Title = "Serv Quote"
	docs.SwaggerInfo.Description = "Quotation sync service between the Keer task store and Service Points"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/api/v1"

	// the sweep loop blocks until Stop, so it gets its own goroutine
	go func() {
		if err := app.sweepWorker.Start(); err != nil {
			app.logger.Errorw("sweep worker exited", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		// finish the task in flight before shutting the server down
		app.sweepWorker.Stop()

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server have started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.rateLimiter.Enabled {
			if allow, retryAfter := app.rateLimiter.Allow(r.RemoteAddr); !allow {
				app.rateLimitExceededResponse(w, r, retryAfter.String())
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
