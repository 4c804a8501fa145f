package delivery

import (
	"context"
	"net/http"
	"strings"

	"kasho-web/auth"
	"kasho-web/delivery/model"
	"kasho-web/submit"
)

const inFlightMessage = "Your previous request is still being processed."

// formPage serves one page built around the shared AuthForm.
func (h *HTTPEndpoint) formPage(name, path string, props AuthForm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := h.app.GetWorkflow(name)
		if !ok {
			h.logger.Error().Str("form", name).Msg("no workflow registered")
			http.Error(w, "Failed to render the page", http.StatusInternalServerError)
			return
		}

		state := h.pageState(r, name)
		form := props
		form.Loading = state.Loading()
		form.Action = path
		form.OnSubmit = func(e *FormEvent, ref FormRef) {
			h.submitForm(wf, state, form, e, ref)
		}

		if r.Method == http.MethodGet {
			form.Render(w, formRenderState{Toasts: h.consumeToasts(w, r)}, http.StatusOK)
			return
		}
		form.ServeHTTP(w, r)
	}
}

func (h *HTTPEndpoint) submitForm(wf *submit.Workflow, state *submit.State, form AuthForm, e *FormEvent, ref FormRef) {
	w, r := e.Writer, e.Request
	sfc := newPageSurface(h, w, r)

	// The call to the API is not abandoned when the browser stops waiting.
	ctx := context.WithoutCancel(r.Context())
	out := wf.Submit(ctx, state, sfc.surface(), e, ref)
	if sfc.navigated != "" {
		return
	}

	rs := formRenderState{
		Email:      ref.Value(submit.FieldEmail),
		Remembered: parseCheckbox(ref.Value("remember")),
		Toasts:     sfc.toasts,
	}
	status := http.StatusOK
	switch out.Status {
	case submit.StatusSkipped:
		form.Loading = true
		rs.Toasts = append(rs.Toasts, model.Toast{Kind: string(submit.ToastInfo), Message: inFlightMessage})
		status = http.StatusConflict
	case submit.StatusFailed:
		form.Loading = state.Loading()
		status = failureStatus(out.Failure)
	default:
		form.Loading = state.Loading()
	}

	if isHTMXRequest(r) && status != http.StatusOK {
		// htmx does not swap error responses, so the page is sent as a 200
		// that replaces the body.
		w.Header().Set("HX-Retarget", "body")
		w.Header().Set("HX-Reswap", "innerHTML")
		status = http.StatusOK
	}
	form.Render(w, rs, status)
}

// pageState returns the loading state of the page for the current browser.
func (h *HTTPEndpoint) pageState(r *http.Request, page string) *submit.State {
	id, ok := SessionIDFromContext(r.Context())
	if !ok {
		// Without a session the page lives for this request only.
		return submit.NewState()
	}
	return h.app.GetPages().Get(submit.PageKey{Session: id, Page: page})
}

// failureStatus is the status of the re-rendered form: the API's own status
// for rejected credentials, 502 when the API could not answer properly.
func failureStatus(f *auth.Failure) int {
	if f == nil {
		return http.StatusBadGateway
	}
	if f.Kind == auth.KindClient {
		if f.Status >= 400 && f.Status < 500 {
			return f.Status
		}
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}
