package delivery

import (
	"net/http"
	"net/url"

	"kasho-web/delivery/model"
)

const (
	defaultFormTitle  = "Login"
	defaultFormButton = "Login"
)

// AccountInfoText is the cross-link under the form, e.g.
// "Already have an account? Login".
type AccountInfoText struct {
	InitialText string
	ActionText  string
	ActionLink  string
}

// AuthForm is the form shared by the login and sign-up pages. It renders the
// email and password controls and hands every submission to OnSubmit; it does
// no network I/O of its own.
type AuthForm struct {
	Title           string
	ButtonTitle     string
	Loading         bool
	ShowRemembered  bool
	AccountInfoText *AccountInfoText

	// Action is the path the form posts to.
	Action   string
	OnSubmit func(e *FormEvent, form FormRef)
}

func (f AuthForm) withDefaults() AuthForm {
	if f.Title == "" {
		f.Title = defaultFormTitle
	}
	if f.ButtonTitle == "" {
		f.ButtonTitle = defaultFormButton
	}
	return f
}

// FormRef is a snapshot of the submitted form controls.
type FormRef struct {
	values url.Values
}

func (f FormRef) Value(name string) string {
	return f.values.Get(name)
}

// FormEvent is a submission of an AuthForm. Unless PreventDefault is called,
// the form answers by rendering itself again.
type FormEvent struct {
	Writer    http.ResponseWriter
	Request   *http.Request
	prevented bool
}

func (e *FormEvent) PreventDefault() {
	if e.prevented {
		return
	}
	e.prevented = true
	e.Writer.Header().Set("Cache-Control", "no-store")
}

func (e *FormEvent) DefaultPrevented() bool { return e.prevented }

type authFormPage struct {
	PageTitle  string
	Form       AuthForm
	Email      string
	Remembered bool
	Toasts     []model.Toast
}

// formRenderState is what a render carries over from a previous submission.
type formRenderState struct {
	Email      string
	Remembered bool
	Toasts     []model.Toast
}

func (f AuthForm) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		f.Render(w, formRenderState{}, http.StatusOK)
	case http.MethodPost:
		f.submit(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (f AuthForm) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	e := &FormEvent{Writer: w, Request: r}
	ref := FormRef{values: cloneValues(r.PostForm)}
	if f.OnSubmit != nil {
		f.OnSubmit(e, ref)
	}
	if !e.DefaultPrevented() {
		f.Render(w, formRenderState{Email: ref.Value("email")}, http.StatusOK)
	}
}

// Render writes the full page containing the form.
func (f AuthForm) Render(w http.ResponseWriter, state formRenderState, status int) {
	f = f.withDefaults()
	data := authFormPage{
		PageTitle:  f.Title,
		Form:       f,
		Email:      state.Email,
		Remembered: state.Remembered,
		Toasts:     state.Toasts,
	}
	renderPage(w, authFormTemplate, data, status)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
