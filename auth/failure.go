package auth

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// FailureKind tells apart the ways a request to the API can fail.
type FailureKind string

const (
	KindNetwork FailureKind = "network"
	KindClient  FailureKind = "client"
	KindServer  FailureKind = "server"
)

const (
	defaultNetworkMessage = "Could not reach the server. Check your connection and try again."
	defaultClientMessage  = "The request was rejected. Check your details and try again."
	defaultServerMessage  = "Something went wrong on our side. Please try again later."
)

// Failure is the user-presentable result of a failed request. Status is zero
// for network failures.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Status  int         `json:"status,omitempty"`
	Message string      `json:"message"`
}

// Classify maps any error returned by a Dispatcher to a Failure. It never
// returns a zero Failure.
func Classify(err error) Failure {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return Failure{Kind: KindNetwork, Message: defaultNetworkMessage}
	}

	f := Failure{Kind: KindServer, Status: statusErr.Status, Message: defaultServerMessage}
	if statusErr.Status >= 400 && statusErr.Status < 500 {
		f.Kind = KindClient
		f.Message = defaultClientMessage
	}
	if msg := strings.TrimSpace(statusErr.Message); msg != "" {
		f.Message = msg
	} else if msg := messageFromBody(statusErr.Body); msg != "" {
		f.Message = msg
	}
	return f
}

// errorBody covers {"error": "..."}, {"message": "..."} and the Kratos
// {"error": {"message": "..."}} envelope.
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type nestedError struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if len(eb.Error) > 0 {
		var s string
		if err := json.Unmarshal(eb.Error, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		var nested nestedError
		if err := json.Unmarshal(eb.Error, &nested); err == nil {
			if msg := strings.TrimSpace(nested.Reason); msg != "" {
				return msg
			}
			if msg := strings.TrimSpace(nested.Message); msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(eb.Message)
}
