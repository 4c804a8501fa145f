package delivery

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"kasho-web/delivery/model"
	"kasho-web/submit"
)

const maxRequestBody = 1_048_576 // 1MB

// apiSubmitHandler is the JSON variant of a form page: the same workflow and
// the same page state, answered with a SubmitResponse instead of HTML.
func (h *HTTPEndpoint) apiSubmitHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := h.app.GetWorkflow(name)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "an internal server error occurred"})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		var req model.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "invalid request body"})
			return
		}

		ref := FormRef{values: url.Values{
			submit.FieldEmail:    {req.Email},
			submit.FieldPassword: {req.Password},
		}}
		e := &FormEvent{Writer: w, Request: r}
		sfc := &jsonSurface{}

		ctx := context.WithoutCancel(r.Context())
		out := wf.Submit(ctx, h.pageState(r, name), sfc.surface(), e, ref)

		resp := model.SubmitResponse{
			Status:   string(out.Status),
			Redirect: sfc.redirect,
			Toasts:   sfc.toasts,
			Error:    out.Failure,
		}
		if resp.Toasts == nil {
			resp.Toasts = []model.Toast{}
		}

		switch out.Status {
		case submit.StatusSucceeded:
			writeJSON(w, http.StatusOK, resp)
		case submit.StatusSkipped:
			resp.Toasts = append(resp.Toasts, model.Toast{Kind: string(submit.ToastInfo), Message: inFlightMessage})
			writeJSON(w, http.StatusConflict, resp)
		default:
			writeJSON(w, failureStatus(out.Failure), resp)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
