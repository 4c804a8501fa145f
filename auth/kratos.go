package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	ory "github.com/ory/client-go"
	"github.com/rs/zerolog"
)

// KratosDispatcher drives Ory Kratos native self-service flows instead of a
// plain REST API. The endpoint name selects the flow; its URL is ignored.
type KratosDispatcher struct {
	client *ory.APIClient
	logger zerolog.Logger
}

// NewKratosClient configures an Ory client against the Kratos public API.
func NewKratosClient(publicURL string, httpClient *http.Client) *ory.APIClient {
	conf := ory.NewConfiguration()
	conf.Servers = ory.ServerConfigurations{
		{
			URL: publicURL,
		},
	}
	if httpClient != nil {
		conf.HTTPClient = httpClient
	}
	return ory.NewAPIClient(conf)
}

func NewKratosDispatcher(client *ory.APIClient, logger zerolog.Logger) *KratosDispatcher {
	return &KratosDispatcher{client: client, logger: logger}
}

func (d *KratosDispatcher) Post(ctx context.Context, endpoint Endpoint, creds Credentials) (*Response, error) {
	switch endpoint.Name {
	case EndpointLogin:
		return d.login(ctx, creds)
	case EndpointRegister:
		return d.register(ctx, creds)
	default:
		return nil, fmt.Errorf("kratos: unsupported endpoint %q", endpoint.Name)
	}
}

func (d *KratosDispatcher) login(ctx context.Context, creds Credentials) (*Response, error) {
	flow, resp, err := d.client.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, kratosError(EndpointLogin, resp, err)
	}

	updateBody := ory.UpdateLoginFlowWithPasswordMethod{
		Method:     "password",
		Identifier: creds.Email,
		Password:   creds.Password,
	}
	loginFlowBody := ory.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&updateBody)

	result, resp, err := d.client.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(loginFlowBody).
		Execute()
	if err != nil {
		return nil, kratosError(EndpointLogin, resp, err)
	}

	d.logger.Debug().Str("identity", result.Session.Identity.GetId()).Msg("kratos login succeeded")
	return &Response{Status: statusOf(resp)}, nil
}

func (d *KratosDispatcher) register(ctx context.Context, creds Credentials) (*Response, error) {
	flow, resp, err := d.client.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, kratosError(EndpointRegister, resp, err)
	}

	updateBody := &ory.UpdateRegistrationFlowWithPasswordMethod{
		Method:   "password",
		Password: creds.Password,
		Traits: map[string]interface{}{
			"email": creds.Email,
		},
	}
	registrationFlowBody := ory.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(updateBody)

	result, resp, err := d.client.FrontendAPI.UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(registrationFlowBody).
		Execute()
	if err != nil {
		return nil, kratosError(EndpointRegister, resp, err)
	}

	d.logger.Debug().Str("identity", result.Identity.GetId()).Msg("kratos registration succeeded")
	return &Response{Status: statusOf(resp)}, nil
}

// kratosError turns an API answer into a *StatusError so both backends fail
// the same way. Transport errors are returned wrapped.
func kratosError(endpoint string, resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("kratos %s: %w", endpoint, err)
	}
	statusErr := &StatusError{Endpoint: endpoint, Status: resp.StatusCode}
	var genericError *ory.GenericOpenAPIError
	if errors.As(err, &genericError) {
		statusErr.Body = genericError.Body()
		statusErr.Message = kratosMessage(genericError.Model())
	}
	if isSuccess(statusErr.Status) {
		// Decoding failed on a 2xx answer.
		statusErr.Status = http.StatusBadGateway
	}
	return statusErr
}

// kratosMessage returns the first error text Kratos put in a returned flow:
// flow-level messages first, then the messages attached to form fields.
func kratosMessage(model interface{}) string {
	var ui *ory.UiContainer
	switch m := model.(type) {
	case ory.LoginFlow:
		ui, _ = m.GetUiOk()
	case *ory.LoginFlow:
		ui, _ = m.GetUiOk()
	case ory.RegistrationFlow:
		ui, _ = m.GetUiOk()
	case *ory.RegistrationFlow:
		ui, _ = m.GetUiOk()
	case ory.ErrorGeneric:
		return strings.TrimSpace(m.Error.GetMessage())
	case *ory.ErrorGeneric:
		return strings.TrimSpace(m.Error.GetMessage())
	}
	if ui == nil {
		return ""
	}
	if text := firstText(ui.GetMessages()); text != "" {
		return text
	}
	for _, node := range ui.GetNodes() {
		if text := firstText(node.GetMessages()); text != "" {
			return text
		}
	}
	return ""
}

func firstText(messages []ory.UiText) string {
	for _, msg := range messages {
		if msg.GetType() == "info" {
			continue
		}
		if text := strings.TrimSpace(msg.GetText()); text != "" {
			return text
		}
	}
	return ""
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return http.StatusOK
	}
	return resp.StatusCode
}
