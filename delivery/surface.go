package delivery

import (
	"context"
	"net/http"
	"strings"

	"kasho-web/delivery/model"
	"kasho-web/submit"
)

// pageSurface is the notifier and navigator of a rendered form page. Toasts
// are held until the response is decided: a navigation carries them over in
// the session, an in-place render shows them directly.
type pageSurface struct {
	h         *HTTPEndpoint
	w         http.ResponseWriter
	r         *http.Request
	toasts    []model.Toast
	navigated string
}

func newPageSurface(h *HTTPEndpoint, w http.ResponseWriter, r *http.Request) *pageSurface {
	return &pageSurface{h: h, w: w, r: r}
}

func (s *pageSurface) Notify(_ context.Context, message string, kind submit.ToastKind) {
	s.toasts = append(s.toasts, model.Toast{Kind: string(kind), Message: message})
}

func (s *pageSurface) Navigate(_ context.Context, path string) {
	if s.navigated != "" {
		return
	}
	s.navigated = path
	s.h.storeToasts(s.w, s.r, s.toasts)
	s.toasts = nil

	if isHTMXRequest(s.r) {
		s.w.Header().Set("HX-Redirect", path)
		s.w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(s.w, s.r, path, http.StatusSeeOther)
}

func (s *pageSurface) surface() submit.Surface {
	return submit.Surface{Notifier: s, Navigator: s}
}

// jsonSurface collects toasts and the navigation target for a JSON answer.
type jsonSurface struct {
	toasts   []model.Toast
	redirect string
}

func (s *jsonSurface) Notify(_ context.Context, message string, kind submit.ToastKind) {
	s.toasts = append(s.toasts, model.Toast{Kind: string(kind), Message: message})
}

func (s *jsonSurface) Navigate(_ context.Context, path string) {
	if s.redirect == "" {
		s.redirect = path
	}
}

func (s *jsonSurface) surface() submit.Surface {
	return submit.Surface{Notifier: s, Navigator: s}
}

func isHTMXRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}
