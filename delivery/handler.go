package delivery

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kasho-web/delivery/model"
)

// HTTPEndpoint holds a reference to the core application.
type HTTPEndpoint struct {
	app    AppDependencies
	logger zerolog.Logger
}

type homePageData struct {
	PageTitle string
	Toasts    []model.Toast
}

type errorPageData struct {
	PageTitle string
	ID        string
	Reason    string
	Toasts    []model.Toast
}

func (h *HTTPEndpoint) homeHandler(w http.ResponseWriter, r *http.Request) {
	data := homePageData{
		PageTitle: "Home",
		Toasts:    h.consumeToasts(w, r),
	}
	renderPage(w, homeTemplate, data, http.StatusOK)
}

func (h *HTTPEndpoint) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPEndpoint) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	data := errorPageData{
		PageTitle: "Not found",
		ID:        middleware.GetReqID(r.Context()),
		Reason:    "The page you are looking for does not exist.",
	}
	renderPage(w, errorTemplate, data, http.StatusNotFound)
}

// renderPage executes the layout of tmpl into a buffer so a template failure
// can still produce a clean 500.
func renderPage(w http.ResponseWriter, tmpl *template.Template, data any, status int) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("failed to execute template")
		http.Error(w, "Failed to render the page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
