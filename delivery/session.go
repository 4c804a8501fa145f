package delivery

import (
	"context"
	"encoding/gob"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"kasho-web/delivery/model"
)

// SessionName is the cookie holding the page session and pending toasts.
const SessionName = "kasho_session"

const sessionIDKey = "id"

type contextKey string

const (
	sessionIDContextKey contextKey = "session_id"
	sessionContextKey   contextKey = "session"
)

func init() {
	gob.Register(model.Toast{})
}

// NewCookieStore builds the session store used for toasts.
func NewCookieStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// sessionMiddleware makes sure every browser has a session id before any page
// state is looked up.
func (h *HTTPEndpoint) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := h.session(r)
		id, _ := sess.Values[sessionIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[sessionIDKey] = id
			if err := sess.Save(r, w); err != nil {
				h.logger.Error().Err(err).Msg("failed to save session")
			}
		}
		ctx := context.WithValue(r.Context(), sessionIDContextKey, id)
		ctx = context.WithValue(ctx, sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionIDFromContext returns the id set by the session middleware.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok && id != ""
}

// session returns the session loaded by the middleware, so changes made while
// serving one request all land in the same cookie.
func (h *HTTPEndpoint) session(r *http.Request) *sessions.Session {
	if sess, ok := r.Context().Value(sessionContextKey).(*sessions.Session); ok {
		return sess
	}
	sess, err := h.app.GetSessionStore().Get(r, SessionName)
	if err != nil {
		// A tampered or stale cookie yields a fresh session.
		h.logger.Debug().Err(err).Msg("discarding unreadable session cookie")
	}
	return sess
}

// consumeToasts pops the pending toasts of the session.
func (h *HTTPEndpoint) consumeToasts(w http.ResponseWriter, r *http.Request) []model.Toast {
	sess := h.session(r)
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		h.logger.Error().Err(err).Msg("failed to save session")
	}
	toasts := make([]model.Toast, 0, len(flashes))
	for _, f := range flashes {
		if t, ok := f.(model.Toast); ok {
			toasts = append(toasts, t)
		}
	}
	return toasts
}

// storeToasts keeps toasts for the next page render.
func (h *HTTPEndpoint) storeToasts(w http.ResponseWriter, r *http.Request, toasts []model.Toast) {
	if len(toasts) == 0 {
		return
	}
	sess := h.session(r)
	for _, t := range toasts {
		sess.AddFlash(t)
	}
	if err := sess.Save(r, w); err != nil {
		h.logger.Error().Err(err).Msg("failed to save session")
	}
}
