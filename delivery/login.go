package delivery

import "net/http"

// loginForm is the login page configuration: default titles plus the
// "remember me" affordance.
func loginForm() AuthForm {
	return AuthForm{
		ShowRemembered: true,
		AccountInfoText: &AccountInfoText{
			InitialText: "Don't have an account?",
			ActionText:  "Sign Up",
			ActionLink:  "/sign-up",
		},
	}
}

// loginHandler serves GET and POST /login.
func (h *HTTPEndpoint) loginHandler() http.HandlerFunc {
	return h.formPage("login", "/login", loginForm())
}
