package submit

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasho-web/auth"
	"kasho-web/metrics"
)

const testBase = "http://localhost:3000"

// recorder captures every collaborator call in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeEvent struct{ rec *recorder }

func (e fakeEvent) PreventDefault() { e.rec.add("prevent-default") }

type mapForm struct {
	mu     sync.Mutex
	values map[string]string
}

func (f *mapForm) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

func (f *mapForm) set(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = value
}

type toast struct {
	Message string
	Kind    ToastKind
}

type fakeNotifier struct {
	rec    *recorder
	toasts []toast
}

func (n *fakeNotifier) Notify(_ context.Context, message string, kind ToastKind) {
	n.rec.add("notify:" + string(kind))
	n.toasts = append(n.toasts, toast{Message: message, Kind: kind})
}

type fakeNavigator struct {
	rec   *recorder
	paths []string
}

func (n *fakeNavigator) Navigate(_ context.Context, path string) {
	n.rec.add("navigate:" + path)
	n.paths = append(n.paths, path)
}

type fakeNormalizer struct {
	rec  *recorder
	errs []error
}

func (n *fakeNormalizer) Normalize(_ context.Context, err error, _ Notifier) auth.Failure {
	n.rec.add("normalize")
	n.errs = append(n.errs, err)
	return auth.Classify(err)
}

type harness struct {
	rec         *recorder
	state       *State
	transitions []bool
	notifier    *fakeNotifier
	navigator   *fakeNavigator
	normalizer  *fakeNormalizer
	form        *mapForm
	requests    []struct {
		endpoint auth.Endpoint
		creds    auth.Credentials
	}
}

func newHarness(email, password string) *harness {
	h := &harness{rec: &recorder{}}
	h.state = NewState(func(loading bool) {
		h.transitions = append(h.transitions, loading)
		if loading {
			h.rec.add("loading:true")
		} else {
			h.rec.add("loading:false")
		}
	})
	h.notifier = &fakeNotifier{rec: h.rec}
	h.navigator = &fakeNavigator{rec: h.rec}
	h.normalizer = &fakeNormalizer{rec: h.rec}
	h.form = &mapForm{values: map[string]string{FieldEmail: email, FieldPassword: password}}
	return h
}

func (h *harness) dispatcher(fn func(auth.Credentials) (*auth.Response, error)) auth.Dispatcher {
	return auth.DispatcherFunc(func(_ context.Context, ep auth.Endpoint, creds auth.Credentials) (*auth.Response, error) {
		h.rec.add("dispatch:" + ep.Name)
		h.requests = append(h.requests, struct {
			endpoint auth.Endpoint
			creds    auth.Credentials
		}{ep, creds})
		return fn(creds)
	})
}

func (h *harness) surface() Surface {
	return Surface{Notifier: h.notifier, Navigator: h.navigator}
}

func ok(auth.Credentials) (*auth.Response, error) {
	return &auth.Response{Status: http.StatusOK}, nil
}

func TestSubmitLoginSuccess(t *testing.T) {
	h := newHarness("a@b.com", "x")
	eps := auth.NewEndpoints(testBase)
	wf, err := New(LoginConfig(eps), h.dispatcher(ok), WithNormalizer(h.normalizer))
	require.NoError(t, err)

	out := wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)

	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Nil(t, out.Failure)
	assert.Equal(t, []bool{true, false}, h.transitions)
	assert.False(t, h.state.Loading())

	require.Len(t, h.requests, 1)
	assert.Equal(t, "http://localhost:3000/auth/login", h.requests[0].endpoint.URL)
	assert.Equal(t, auth.Credentials{Email: "a@b.com", Password: "x"}, h.requests[0].creds)

	require.Len(t, h.notifier.toasts, 1)
	assert.Contains(t, h.notifier.toasts[0].Message, "logged in")
	assert.Equal(t, ToastSuccess, h.notifier.toasts[0].Kind)
	assert.Equal(t, []string{"/"}, h.navigator.paths)
	assert.Empty(t, h.normalizer.errs)

	assert.Equal(t, []string{
		"prevent-default",
		"loading:true",
		"dispatch:login",
		"loading:false",
		"notify:success",
		"navigate:/",
	}, h.rec.list())
}

func TestSubmitRegisterSuccess(t *testing.T) {
	h := newHarness("a@b.com", "x")
	wf, err := New(RegisterConfig(auth.NewEndpoints(testBase)), h.dispatcher(ok), WithNormalizer(h.normalizer))
	require.NoError(t, err)

	out := wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)

	assert.Equal(t, StatusSucceeded, out.Status)
	require.Len(t, h.requests, 1)
	assert.Equal(t, "http://localhost:3000/auth/register", h.requests[0].endpoint.URL)
	require.Len(t, h.notifier.toasts, 1)
	assert.Contains(t, h.notifier.toasts[0].Message, "created successfully")
	assert.Equal(t, []string{"/login"}, h.navigator.paths)
	assert.Equal(t, []bool{true, false}, h.transitions)
}

func TestSubmitFailure(t *testing.T) {
	rejection := &auth.StatusError{Endpoint: "login", Status: http.StatusUnauthorized, Body: []byte(`{"error":"Invalid email or password"}`)}

	for _, cfgFor := range []func(auth.Endpoints) Config{LoginConfig, RegisterConfig} {
		cfg := cfgFor(auth.NewEndpoints(testBase))
		t.Run(cfg.Name, func(t *testing.T) {
			h := newHarness("a@b.com", "wrong")
			wf, err := New(cfg, h.dispatcher(func(auth.Credentials) (*auth.Response, error) {
				return nil, rejection
			}), WithNormalizer(h.normalizer))
			require.NoError(t, err)

			out := wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)

			assert.Equal(t, StatusFailed, out.Status)
			require.NotNil(t, out.Failure)
			assert.Equal(t, auth.KindClient, out.Failure.Kind)
			assert.Equal(t, http.StatusUnauthorized, out.Failure.Status)
			assert.Equal(t, "Invalid email or password", out.Failure.Message)

			assert.False(t, h.state.Loading())
			assert.Equal(t, []bool{true, false}, h.transitions)
			assert.Empty(t, h.navigator.paths)
			assert.Empty(t, h.notifier.toasts, "the workflow itself must not notify on failure")
			require.Len(t, h.normalizer.errs, 1)
			assert.Same(t, rejection, h.normalizer.errs[0])

			assert.Equal(t, []string{
				"prevent-default",
				"loading:true",
				"dispatch:" + cfg.Endpoint.Name,
				"normalize",
				"loading:false",
			}, h.rec.list())
		})
	}
}

func TestSubmitReadsFieldsAtSubmission(t *testing.T) {
	h := newHarness("first@b.com", "first")
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), h.dispatcher(func(auth.Credentials) (*auth.Response, error) {
		// The user keeps typing while the request is in flight.
		h.form.set(FieldEmail, "second@b.com")
		h.form.set(FieldPassword, "second")
		return &auth.Response{Status: http.StatusOK}, nil
	}), WithNormalizer(h.normalizer))
	require.NoError(t, err)

	out := wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)

	require.Len(t, h.requests, 1)
	assert.Equal(t, auth.Credentials{Email: "first@b.com", Password: "first"}, h.requests[0].creds)
	assert.Equal(t, h.requests[0].creds, out.Credentials)
}

func TestSubmitEmptyFieldsStillDispatch(t *testing.T) {
	h := newHarness("", "")
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), h.dispatcher(ok), WithNormalizer(h.normalizer))
	require.NoError(t, err)

	wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)

	require.Len(t, h.requests, 1)
	assert.Equal(t, auth.Credentials{Email: "", Password: ""}, h.requests[0].creds)
}

func TestSubmitFieldsAreNotTrimmed(t *testing.T) {
	h := newHarness("  a@b.com ", " x ")
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), h.dispatcher(ok), WithNormalizer(h.normalizer))
	require.NoError(t, err)

	wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)

	require.Len(t, h.requests, 1)
	assert.Equal(t, auth.Credentials{Email: "  a@b.com ", Password: " x "}, h.requests[0].creds)
}

func TestSubmitWhileInFlightIsSkipped(t *testing.T) {
	h := newHarness("a@b.com", "x")
	entered := make(chan struct{})
	release := make(chan struct{})
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), auth.DispatcherFunc(
		func(context.Context, auth.Endpoint, auth.Credentials) (*auth.Response, error) {
			close(entered)
			<-release
			return &auth.Response{Status: http.StatusOK}, nil
		}), WithNormalizer(h.normalizer))
	require.NoError(t, err)

	first := make(chan Outcome, 1)
	go func() {
		first <- wf.Submit(context.Background(), h.state, Surface{}, fakeEvent{h.rec}, h.form)
	}()
	<-entered

	second := wf.Submit(context.Background(), h.state, Surface{}, fakeEvent{h.rec}, h.form)
	assert.Equal(t, StatusSkipped, second.Status)
	assert.True(t, h.state.Loading(), "the first submission still owns the loading flag")

	close(release)
	assert.Equal(t, StatusSucceeded, (<-first).Status)
	assert.False(t, h.state.Loading())

	prevented := 0
	for _, e := range h.rec.list() {
		if e == "prevent-default" {
			prevented++
		}
	}
	assert.Equal(t, 2, prevented, "every submit event has its default prevented")
}

func TestSubmitCanRepeatAfterSettling(t *testing.T) {
	h := newHarness("a@b.com", "x")
	calls := 0
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), h.dispatcher(func(auth.Credentials) (*auth.Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return &auth.Response{Status: http.StatusOK}, nil
	}), WithNormalizer(h.normalizer))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form).Status)
	assert.Equal(t, StatusSucceeded, wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form).Status)
	assert.Equal(t, []bool{true, false, true, false}, h.transitions)
}

func TestSubmitNilResponseIsNormalized(t *testing.T) {
	h := newHarness("a@b.com", "x")
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), h.dispatcher(func(auth.Credentials) (*auth.Response, error) {
		return nil, nil
	}))
	require.NoError(t, err)

	out := wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)

	assert.Equal(t, StatusFailed, out.Status)
	require.NotNil(t, out.Failure)
	assert.Equal(t, auth.KindServer, out.Failure.Kind)
	assert.Empty(t, h.navigator.paths)
	require.Len(t, h.notifier.toasts, 1, "an empty answer still gives the user feedback")
	assert.Equal(t, ToastError, h.notifier.toasts[0].Kind)
	assert.Equal(t, out.Failure.Message, h.notifier.toasts[0].Message)
	assert.False(t, h.state.Loading())
}

func TestSubmitPanicDoesNotLeavePageLoading(t *testing.T) {
	h := newHarness("a@b.com", "x")
	calls := 0
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), h.dispatcher(func(auth.Credentials) (*auth.Response, error) {
		calls++
		if calls == 1 {
			panic("decode: unexpected payload")
		}
		return &auth.Response{Status: http.StatusOK}, nil
	}), WithNormalizer(h.normalizer))
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.InFlightSubmissions)
	assert.Panics(t, func() {
		wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)
	})

	assert.False(t, h.state.Loading(), "loading is reset even when the dispatch panics")
	assert.Equal(t, before, testutil.ToFloat64(metrics.InFlightSubmissions))
	assert.Equal(t, []bool{true, false}, h.transitions)

	out := wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Equal(t, 2, calls)
}

func TestToastNormalizerNotifiesOnce(t *testing.T) {
	rec := &recorder{}
	n := &fakeNotifier{rec: rec}

	failure := ToastNormalizer{}.Normalize(context.Background(), errors.New("dial tcp: refused"), n)

	assert.Equal(t, auth.KindNetwork, failure.Kind)
	require.Len(t, n.toasts, 1)
	assert.Equal(t, ToastError, n.toasts[0].Kind)
	assert.Equal(t, failure.Message, n.toasts[0].Message)
}

func TestDefaultNormalizerSurfacesFailure(t *testing.T) {
	h := newHarness("a@b.com", "x")
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), h.dispatcher(func(auth.Credentials) (*auth.Response, error) {
		return nil, &auth.StatusError{Status: http.StatusBadGateway}
	}))
	require.NoError(t, err)

	out := wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)

	require.NotNil(t, out.Failure)
	assert.Equal(t, auth.KindServer, out.Failure.Kind)
	require.Len(t, h.notifier.toasts, 1)
	assert.Equal(t, ToastError, h.notifier.toasts[0].Kind)
	assert.Empty(t, h.navigator.paths)
}

func TestNewValidatesConfig(t *testing.T) {
	eps := auth.NewEndpoints(testBase)
	dispatcher := auth.DispatcherFunc(func(context.Context, auth.Endpoint, auth.Credentials) (*auth.Response, error) {
		return nil, nil
	})

	_, err := New(Config{}, dispatcher)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := LoginConfig(eps)
	cfg.RedirectTarget = ""
	_, err = New(cfg, dispatcher)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(LoginConfig(eps), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	wf, err := New(RegisterConfig(eps), dispatcher)
	require.NoError(t, err)
	assert.Equal(t, "/login", wf.Config().RedirectTarget)
}

func TestSubmitSuccessLogOmitsCredentials(t *testing.T) {
	h := newHarness("private@kasho.io", "hunter2")
	var buf bytes.Buffer
	wf, err := New(LoginConfig(auth.NewEndpoints(testBase)), h.dispatcher(ok), WithLogger(zerolog.New(&buf)))
	require.NoError(t, err)

	out := wf.Submit(context.Background(), h.state, h.surface(), fakeEvent{h.rec}, h.form)
	require.Equal(t, StatusSucceeded, out.Status)

	assert.Contains(t, buf.String(), "submission succeeded")
	assert.NotContains(t, buf.String(), "private@kasho.io")
	assert.NotContains(t, buf.String(), "hunter2")
}
