package model

import "kasho-web/auth"

// Toast is a notification shown once to the user.
type Toast struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type (
	SubmitRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	SubmitResponse struct {
		Status   string        `json:"status"`
		Redirect string        `json:"redirect,omitempty"`
		Toasts   []Toast       `json:"toasts"`
		Error    *auth.Failure `json:"error,omitempty"`
	}
)

type ErrorResponse struct {
	Error string `json:"error"`
}
