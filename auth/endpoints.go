package auth

// Endpoint names known to the registry.
const (
	EndpointLogin    = "login"
	EndpointRegister = "register"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
)

// Endpoint is a named absolute location on the remote authentication API.
type Endpoint struct {
	Name string
	URL  string
}

func (e Endpoint) String() string { return e.URL }

// Endpoints is the registry of every location the front-end talks to.
type Endpoints struct {
	Login    Endpoint
	Register Endpoint
}

// NewEndpoints derives the registry from base by plain concatenation. The base
// is not validated; a malformed value surfaces later as a network failure.
func NewEndpoints(base string) Endpoints {
	return Endpoints{
		Login:    Endpoint{Name: EndpointLogin, URL: base + loginPath},
		Register: Endpoint{Name: EndpointRegister, URL: base + registerPath},
	}
}
