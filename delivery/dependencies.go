package delivery

import (
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"kasho-web/submit"
)

// AppDependencies defines the contract that the delivery layer (HTTP handlers)
// expects from the core application layer.
type AppDependencies interface {
	// GetWorkflow returns the submission workflow of a page ("login", "register").
	GetWorkflow(name string) (*submit.Workflow, bool)

	// GetSessionStore provides the store holding session ids and toasts.
	GetSessionStore() sessions.Store

	// GetPages provides the loading state of every mounted page.
	GetPages() *submit.Pages

	GetLogger() zerolog.Logger

	// GetRateLimit returns the per-client submit rate and burst.
	GetRateLimit() (rps float64, burst int)
}
