package delivery

import "net/http"

func registrationForm() AuthForm {
	return AuthForm{
		Title:       "Sign Up",
		ButtonTitle: "Sign Up",
		AccountInfoText: &AccountInfoText{
			InitialText: "Already have an account?",
			ActionText:  "Login",
			ActionLink:  "/login",
		},
	}
}

// registrationHandler serves GET and POST /sign-up.
func (h *HTTPEndpoint) registrationHandler() http.HandlerFunc {
	return h.formPage("register", "/sign-up", registrationForm())
}
