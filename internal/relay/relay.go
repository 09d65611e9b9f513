package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/littleburg/relay/internal/app/logger/logging"
	"github.com/littleburg/relay/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

func init() {
	metrics.InitRelay()
}

// Relay owns the HTTP surface and the multiplayer control plane. All state
// lives in memory for the lifetime of the process.
type Relay struct {
	Config      *Config
	Multiplayer *Multiplayer
}

func NewRelay(opts ...Option) *Relay {
	config := DefaultConfig()
	for _, fn := range opts {
		if err := fn(config); err != nil {
			panic("failed to initialize config: " + err.Error())
		}
	}

	return &Relay{
		Config:      config,
		Multiplayer: NewMultiplayer(),
	}
}

func (r *Relay) HttpRouter() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Throttle(100))
	mux.Use(cors.New(cors.Options{
		AllowedOrigins:   r.Config.CORSAllowedOrigins,
		AllowCredentials: false,
		Debug:            false,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         7200,
	}).Handler)

	{ // Set up meta routes (readiness, liveness, metrics etc.)
		mux.Get("/_health", r.HandleHealth)
		mux.Get("/_metrics", promhttp.Handler().ServeHTTP)
	}

	{ // Set up the relay (websocket) route
		ws := chi.NewRouter()
		ws.Use(middleware.Timeout(24 * time.Hour))
		ws.Mount("/", http.HandlerFunc(r.HandleWebSocket))

		mux.Mount("/ws", ws)
	}

	return mux
}

func (r *Relay) Handlers() (start GracefulFunc, shutdown GracefulFunc) {
	httpServer := &http.Server{
		Addr:         r.Config.ListenAddr(),
		Handler:      h2c.NewHandler(r.HttpRouter(), &http2.Server{}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	start = func(ctx context.Context) error {
		slog.Info("Configured relay server", "addr", r.Config.ListenAddr())

		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			r.Multiplayer.Run(ctx)
			return nil
		})
		group.Go(httpServer.ListenAndServe)
		return group.Wait()
	}

	shutdown = func(ctx context.Context) error {
		slog.Info("Started shutting down the relay server")

		r.Multiplayer.Stop()

		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("Failed shutting down the relay server", logging.Error(err))
			return err
		}
		slog.Info("Successfully shut down the relay server")
		return nil
	}

	return start, shutdown
}

type GracefulFunc func(context.Context) error

func (r *Relay) Graceful(ctx context.Context, start GracefulFunc, shutdown GracefulFunc) error {
	var (
		stopChan = make(chan os.Signal, 1)
		errChan  = make(chan error, 1)
	)

	// Set up the graceful shutdown handler (traps SIGINT and SIGTERM)
	go func() {
		signal.Notify(stopChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-stopChan:
		case <-ctx.Done():
		}

		timer, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := shutdown(timer); err != nil {
			errChan <- err
			return
		}

		errChan <- nil
	}()

	// Start the server
	if err := start(ctx); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-errChan
}
