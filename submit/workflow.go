package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kasho-web/auth"
	"kasho-web/metrics"
)

// Form field names read on submission.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

// ErrInvalidConfig is returned by New for an incomplete Config.
var ErrInvalidConfig = errors.New("submit: invalid config")

// Event is the submit event raised by a form.
type Event interface {
	PreventDefault()
}

// Form exposes the current value of a form control.
type Form interface {
	Value(name string) string
}

// ToastKind is the visual flavour of a notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// Notifier shows a toast to the user.
type Notifier interface {
	Notify(ctx context.Context, message string, kind ToastKind)
}

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// Surface groups the presentation collaborators of one page.
type Surface struct {
	Notifier  Notifier
	Navigator Navigator
}

// Normalizer turns a dispatch error into a tagged failure. Implementations may
// surface it to the user through n.
type Normalizer interface {
	Normalize(ctx context.Context, err error, n Notifier) auth.Failure
}

// Config parameterizes a workflow for one page.
type Config struct {
	Name           string
	Endpoint       auth.Endpoint
	SuccessMessage string
	RedirectTarget string
}

// LoginConfig is the workflow of the login page.
func LoginConfig(eps auth.Endpoints) Config {
	return Config{
		Name:           "login",
		Endpoint:       eps.Login,
		SuccessMessage: "You're logged in!",
		RedirectTarget: "/",
	}
}

// RegisterConfig is the workflow of the sign-up page.
func RegisterConfig(eps auth.Endpoints) Config {
	return Config{
		Name:           "register",
		Endpoint:       eps.Register,
		SuccessMessage: "User created successfully",
		RedirectTarget: "/login",
	}
}

// Status is the terminal result of one submission.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome describes what a submission did. Failure is set only when Status is
// StatusFailed.
type Outcome struct {
	Status      Status
	Credentials auth.Credentials
	Failure     *auth.Failure
}

// Workflow runs the submit -> request -> normalize -> notify/navigate cycle.
type Workflow struct {
	cfg        Config
	dispatcher auth.Dispatcher
	normalizer Normalizer
	logger     zerolog.Logger
}

// Option customises a Workflow.
type Option func(*Workflow)

// WithLogger sets the workflow logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// WithNormalizer replaces the default ToastNormalizer.
func WithNormalizer(n Normalizer) Option {
	return func(w *Workflow) { w.normalizer = n }
}

func New(cfg Config, dispatcher auth.Dispatcher, opts ...Option) (*Workflow, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if cfg.Endpoint.URL == "" && cfg.Endpoint.Name == "" {
		return nil, fmt.Errorf("%w: %s endpoint is required", ErrInvalidConfig, cfg.Name)
	}
	if cfg.RedirectTarget == "" {
		return nil, fmt.Errorf("%w: %s redirect target is required", ErrInvalidConfig, cfg.Name)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", ErrInvalidConfig)
	}

	w := &Workflow{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.normalizer == nil {
		w.normalizer = ToastNormalizer{Logger: w.logger}
	}
	w.logger = w.logger.With().Str("form", cfg.Name).Logger()
	return w, nil
}

// Config returns the configuration the workflow was built with.
func (w *Workflow) Config() Config { return w.cfg }

// Submit handles one submit event. The default action of the event is always
// prevented first. A submit arriving while state is loading is skipped without
// dispatching. Failures are absorbed here and reported through the Outcome.
func (w *Workflow) Submit(ctx context.Context, state *State, sfc Surface, e Event, f Form) Outcome {
	e.PreventDefault()

	if !state.begin() {
		w.logger.Debug().Msg("submission already in flight; ignoring")
		metrics.SubmissionsTotal.WithLabelValues(w.cfg.Name, string(StatusSkipped)).Inc()
		return Outcome{Status: StatusSkipped}
	}

	// A panic anywhere below must not leave the page loading.
	inFlight, loading := false, true
	defer func() {
		if inFlight {
			metrics.InFlightSubmissions.Dec()
		}
		if loading {
			state.end()
		}
	}()

	creds := auth.Credentials{
		Email:    f.Value(FieldEmail),
		Password: f.Value(FieldPassword),
	}

	metrics.InFlightSubmissions.Inc()
	inFlight = true
	start := time.Now()
	resp, err := w.dispatcher.Post(ctx, w.cfg.Endpoint, creds)
	metrics.SubmissionDuration.WithLabelValues(w.cfg.Name).Observe(time.Since(start).Seconds())
	metrics.InFlightSubmissions.Dec()
	inFlight = false

	if err == nil && resp == nil {
		err = &auth.StatusError{Endpoint: w.cfg.Endpoint.Name}
	}
	var failure *auth.Failure
	if err != nil {
		normalized := w.normalizer.Normalize(ctx, err, sfc.Notifier)
		failure = &normalized
	}

	state.end()
	loading = false

	if failure != nil {
		metrics.SubmissionsTotal.WithLabelValues(w.cfg.Name, string(failure.Kind)).Inc()
		return Outcome{Status: StatusFailed, Credentials: creds, Failure: failure}
	}

	if sfc.Notifier != nil {
		sfc.Notifier.Notify(ctx, w.cfg.SuccessMessage, ToastSuccess)
	}
	if sfc.Navigator != nil {
		sfc.Navigator.Navigate(ctx, w.cfg.RedirectTarget)
	}

	w.logger.Info().Int("status", resp.Status).Msg("submission succeeded")
	metrics.SubmissionsTotal.WithLabelValues(w.cfg.Name, string(StatusSucceeded)).Inc()
	return Outcome{Status: StatusSucceeded, Credentials: creds}
}

// ToastNormalizer classifies the error, logs it and shows its message as an
// error toast.
type ToastNormalizer struct {
	Logger zerolog.Logger
}

func (t ToastNormalizer) Normalize(ctx context.Context, err error, n Notifier) auth.Failure {
	failure := auth.Classify(err)

	evt := t.Logger.Warn()
	if failure.Kind != auth.KindClient {
		evt = t.Logger.Error()
	}
	evt.Err(err).
		Str("kind", string(failure.Kind)).
		Int("status", failure.Status).
		Msg("auth request failed")

	if n != nil {
		n.Notify(ctx, failure.Message, ToastError)
	}
	return failure
}
