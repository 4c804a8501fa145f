package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"kasho-web/auth"
	"kasho-web/config"
	"kasho-web/delivery"
	"kasho-web/submit"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

// App holds the application's dependencies and state, like the router and the
// auth API dispatcher.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Endpoints  auth.Endpoints
	Dispatcher auth.Dispatcher
	Sessions   sessions.Store
	Pages      *submit.Pages
	Router     http.Handler

	workflows map[string]*submit.Workflow
}

// New creates a new App instance, configures dependencies, and sets up the router.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dispatcher, err := newDispatcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Endpoints:  auth.NewEndpoints(cfg.AuthAPIBaseURL),
		Dispatcher: dispatcher,
		Sessions:   delivery.NewCookieStore(cfg.SessionSecret, cfg.SessionSecure),
		Pages:      submit.NewPages(),
	}

	a.workflows = make(map[string]*submit.Workflow, 2)
	for _, wc := range []submit.Config{
		submit.LoginConfig(a.Endpoints),
		submit.RegisterConfig(a.Endpoints),
	} {
		wf, err := submit.New(wc, dispatcher, submit.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("build %s workflow: %w", wc.Name, err)
		}
		a.workflows[wc.Name] = wf
	}

	if cfg.EphemeralSession {
		logger.Warn().Msg("SESSION_SECRET not set; sessions will not survive a restart")
	}

	a.Router = delivery.NewRouter(a)
	return a, nil
}

// newDispatcher picks the client of the configured auth backend. Both share
// one request timeout.
func newDispatcher(cfg *config.Config, logger zerolog.Logger) (auth.Dispatcher, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	switch cfg.AuthBackend {
	case config.BackendREST:
		return auth.NewRESTDispatcherWithClient(httpClient, logger), nil
	case config.BackendKratos:
		client := auth.NewKratosClient(cfg.KratosPublicURL, httpClient)
		return auth.NewKratosDispatcher(client, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown auth backend %q", config.ErrInvalidConfig, cfg.AuthBackend)
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweepPages(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", srv.Addr).
			Str("backend", a.Config.AuthBackend).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	a.Logger.Info().Msg("server exiting")
	return nil
}

// sweepPages drops page states nobody has touched for PageStateTTL.
func (a *App) sweepPages(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Pages.Sweep(a.Config.PageStateTTL); n > 0 {
				a.Logger.Debug().Int("removed", n).Msg("swept idle page states")
			}
		}
	}
}

func (a *App) GetWorkflow(name string) (*submit.Workflow, bool) {
	wf, ok := a.workflows[name]
	return wf, ok
}

func (a *App) GetSessionStore() sessions.Store { return a.Sessions }

func (a *App) GetPages() *submit.Pages { return a.Pages }

func (a *App) GetLogger() zerolog.Logger { return a.Logger }

func (a *App) GetRateLimit() (float64, int) {
	return a.Config.RateLimitRPS, a.Config.RateLimitBurst
}

var _ delivery.AppDependencies = (*App)(nil)
