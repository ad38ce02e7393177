package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"restaurants/internal/contract"
	"restaurants/internal/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App is a fully wired service: store, contract dispatcher and side routes.
type App struct {
	Handler http.Handler
	Store   Store
	Routes  []contract.Route

	log *slog.Logger
	db  *sql.DB
}

// NewApp builds the service from cfg. reg receives the service metrics and
// is served at /metrics when cfg.Metrics is set; it may be nil otherwise.
func NewApp(ctx context.Context, cfg *shared.ServerConfig, log *slog.Logger, reg *prometheus.Registry) (*App, error) {
	app := &App{log: log}

	switch cfg.Store {
	case shared.StoreSQLite:
		db, err := OpenMemoryDB(ctx, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store, err := NewSQLiteStore(ctx, db, log, nil, SeedRestaurants())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("seed sqlite store: %w", err)
		}
		app.db = db
		app.Store = store
	default:
		app.Store = NewMemoryStore(log, nil, SeedRestaurants())
	}

	doc, err := loadContract(cfg.Contract)
	if err != nil {
		app.Close()
		return nil, err
	}

	api := &API{Store: app.Store, Log: log}
	opts := contract.Options{Logger: log}
	if cfg.Metrics && reg != nil {
		api.Metrics = NewMetrics(reg)
		opts.Observe = api.Metrics.Observe
		if n, err := app.Store.Len(ctx); err == nil {
			api.Metrics.SetRecords(n)
		}
	}

	d, err := contract.Bind(doc, api.Operations(), opts)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("bind contract: %w", err)
	}
	d.Handle("GET /healthz", http.HandlerFunc(api.Health))
	if api.Metrics != nil {
		d.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	app.Handler = d
	app.Routes = d.Routes()
	return app, nil
}

func loadContract(path string) (*contract.Document, error) {
	if path == "" {
		doc, err := contract.Default()
		if err != nil {
			return nil, fmt.Errorf("embedded contract: %w", err)
		}
		return doc, nil
	}
	return contract.Load(path)
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Serve runs the HTTP server on ln until ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func (a *App) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(a.log.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down", "timeout", shutdownTimeout.String())
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
