package auth

import (
	"context"
	"fmt"
	"net/http"
)

// Credentials is the body sent to both the login and register endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Response is a successful answer from the authentication API. Callers only
// rely on its presence; the body is kept for logging.
type Response struct {
	Status int
	Body   []byte
}

// Dispatcher sends credentials to an endpoint of the authentication API.
type Dispatcher interface {
	Post(ctx context.Context, endpoint Endpoint, creds Credentials) (*Response, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, endpoint Endpoint, creds Credentials) (*Response, error)

func (f DispatcherFunc) Post(ctx context.Context, endpoint Endpoint, creds Credentials) (*Response, error) {
	return f(ctx, endpoint, creds)
}

// StatusError is returned when the API answered with a non-2xx status. A zero
// Status means the dispatcher produced no response at all. Message, when set,
// is the user-facing text already extracted from the answer.
type StatusError struct {
	Endpoint string
	Status   int
	Body     []byte
	Message  string
}

func (e *StatusError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("auth api %s: no response", e.Endpoint)
	}
	return fmt.Sprintf("auth api %s: unexpected status %d %s", e.Endpoint, e.Status, http.StatusText(e.Status))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
